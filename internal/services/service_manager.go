package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/auth"
	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Auth          ServiceConfig
	PasswordReset ServiceConfig
	User          ServiceConfig
	Course        ServiceConfig
	Draft         ServiceConfig
	Order         ServiceConfig
	Review        ServiceConfig
	Dashboard     ServiceConfig

	PasswordResetSettings config.PasswordResetConfig
	ResolveConcurrency    int
}

type ServiceConfig struct {
	Enabled bool
}

// ServiceDependencies are the collaborators the services are built from
type ServiceDependencies struct {
	DB          *gorm.DB
	Repo        repositories.Repository
	RepoManager repositories.RepositoryManager
	Logger      *slog.Logger
	Validator   *validator.Validator

	Tokens     *auth.TokenManager
	Hasher     *auth.PasswordHasher
	ResetStore *cache.ResetTokenStore
	Mailer     mailer.Sender
	Resolver   VideoResolver
	Publisher  events.EventPublisher
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceDependencies
	logger *slog.Logger
	config ServiceManagerConfig

	// Service instances
	authService          AuthService
	passwordResetService PasswordResetService
	userService          UserService
	courseService        CourseService
	draftService         DraftService
	orderService         OrderService
	reviewService        ReviewService
	dashboardService     DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
		deps.Logger = logger
	}
	return &serviceManager{
		deps:   deps,
		logger: logger,
		config: config,
	}
}

// DefaultServiceManagerConfig enables every service with settings from cfg
func DefaultServiceManagerConfig(cfg *config.Config) ServiceManagerConfig {
	enabled := ServiceConfig{Enabled: true}
	return ServiceManagerConfig{
		Auth:                  enabled,
		PasswordReset:         enabled,
		User:                  enabled,
		Course:                enabled,
		Draft:                 enabled,
		Order:                 enabled,
		Review:                enabled,
		Dashboard:             enabled,
		PasswordResetSettings: cfg.PasswordReset,
		ResolveConcurrency:    cfg.YouTube.MaxConcurrency,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	d := sm.deps
	if d.Repo == nil || d.DB == nil || d.Validator == nil {
		return fmt.Errorf("repository, database and validator are required")
	}

	if sm.config.Auth.Enabled {
		if d.Tokens == nil || d.Hasher == nil {
			return fmt.Errorf("auth service requires a token manager and a password hasher")
		}
		sm.authService = NewAuthService(d.Repo, d.DB, d.Logger, d.Validator, d.Tokens, d.Hasher)
		sm.logger.Info("Auth service initialized")
	}

	if sm.config.PasswordReset.Enabled {
		if d.ResetStore == nil || d.Hasher == nil || d.Mailer == nil {
			return fmt.Errorf("password reset service requires a reset store, a hasher and a mailer")
		}
		sm.passwordResetService = NewPasswordResetService(d.Repo, d.DB, d.Logger, d.Validator, d.ResetStore, d.Hasher, d.Mailer, sm.config.PasswordResetSettings)
		sm.logger.Info("Password reset service initialized")
	}

	if sm.config.User.Enabled {
		sm.userService = NewUserService(d.Repo, d.DB, d.Logger, d.Validator)
		sm.logger.Info("User service initialized")
	}

	if sm.config.Course.Enabled {
		sm.courseService = NewCourseService(d.Repo, d.DB, d.Logger, d.Validator)
		sm.logger.Info("Course service initialized")
	}

	if sm.config.Draft.Enabled {
		if d.Resolver == nil {
			return fmt.Errorf("draft service requires a video resolver")
		}
		sm.draftService = NewDraftService(d.Repo, d.DB, d.Logger, d.Validator, d.Resolver, d.Publisher, sm.config.ResolveConcurrency)
		sm.logger.Info("Draft service initialized")
	}

	if sm.config.Order.Enabled {
		sm.orderService = NewOrderService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
		sm.logger.Info("Order service initialized")
	}

	if sm.config.Review.Enabled {
		sm.reviewService = NewReviewService(d.Repo, d.DB, d.Logger, d.Validator)
		sm.logger.Info("Review service initialized")
	}

	if sm.config.Dashboard.Enabled {
		sm.dashboardService = NewDashboardService(d.Repo, d.DB, d.Logger)
		sm.logger.Info("Dashboard service initialized")
	}

	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Auth.Enabled && sm.authService != nil {
		return sm.authService
	}

	panic("auth service not enabled or not initialized")
}

func (sm *serviceManager) PasswordReset() PasswordResetService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.PasswordReset.Enabled && sm.passwordResetService != nil {
		return sm.passwordResetService
	}

	panic("password reset service not enabled or not initialized")
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.User.Enabled && sm.userService != nil {
		return sm.userService
	}

	panic("user service not enabled or not initialized")
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Course.Enabled && sm.courseService != nil {
		return sm.courseService
	}

	panic("course service not enabled or not initialized")
}

func (sm *serviceManager) Draft() DraftService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Draft.Enabled && sm.draftService != nil {
		return sm.draftService
	}

	panic("draft service not enabled or not initialized")
}

func (sm *serviceManager) Order() OrderService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Order.Enabled && sm.orderService != nil {
		return sm.orderService
	}

	panic("order service not enabled or not initialized")
}

func (sm *serviceManager) Review() ReviewService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Review.Enabled && sm.reviewService != nil {
		return sm.reviewService
	}

	panic("review service not enabled or not initialized")
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Dashboard.Enabled && sm.dashboardService != nil {
		return sm.dashboardService
	}

	panic("dashboard service not enabled or not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if sm.deps.RepoManager != nil {
		if err := sm.deps.RepoManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
		return nil
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if sm.deps.RepoManager != nil {
		if err := sm.deps.RepoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
