package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/course-marketplace/internal/auth"
	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/handlers"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/postgres"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
	"github.com/SAP-F-2025/course-marketplace/internal/youtube"
	"github.com/SAP-F-2025/course-marketplace/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Redis backs the course cache and password reset tokens. Without it
	// reads go straight to the database and resets report the cache as down.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis", "error", err)
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, err := youtube.NewResolver(ctx, cfg.YouTube)
	if err != nil {
		log.Fatalf("Failed to initialize video resolver: %v", err)
	}

	// Event bus and the consumer that mails order and draft outcomes
	bus, err := events.NewBus(cfg.Kafka, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	sender := mailer.NewSender(cfg.SMTP, slogLogger)
	consumer, err := events.NewNotificationConsumer(bus.Subscriber, sender, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize notification consumer: %v", err)
	}
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("Notification consumer stopped", "error", err)
		}
	}()

	cacheManager := cache.NewCacheManager(redisClient)

	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		DB:          db,
		Repo:        repoManager.GetRepository(),
		RepoManager: repoManager,
		Logger:      slogLogger,
		Validator:   validator.New(),
		Tokens:      auth.NewTokenManager(cfg.JWT),
		Hasher:      auth.NewPasswordHasher(cfg.BcryptCost),
		ResetStore:  cache.NewResetTokenStore(cacheManager.Reset, cfg.PasswordReset.TokenTTL, cfg.PasswordReset.RateWindow),
		Mailer:      sender,
		Resolver:    resolver,
		Publisher:   events.NewWatermillEventPublisher(bus.Publisher, slogLogger),
	}, services.DefaultServiceManagerConfig(cfg))
	if err := serviceManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	handlerManager := handlers.NewHandlerManager(serviceManager, logger, cfg.ServiceName)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORS)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "event_bus", bus.Kind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := consumer.Close(); err != nil {
		logger.Error("Failed to stop notification consumer", "error", err)
	}

	// Closes the event publisher, the database and redis
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if bus.Kind == "kafka" {
		if err := bus.Subscriber.Close(); err != nil {
			logger.Error("Failed to close event subscriber", "error", err)
		}
	}

	logger.Info("Server exited")
}
