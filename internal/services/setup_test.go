package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/auth"
	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/postgres"
	"github.com/SAP-F-2025/course-marketplace/internal/testutil"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
	"github.com/SAP-F-2025/course-marketplace/internal/youtube"
)

var testJWTConfig = config.JWTConfig{
	AccessSecret:  "test-access-secret",
	RefreshSecret: "test-refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "course-marketplace-test",
}

var testResetConfig = config.PasswordResetConfig{
	TokenTTL:    10 * time.Minute,
	RateWindow:  60 * time.Second,
	FrontendURL: "https://learn.example.com/",
}

// fakeResolver serves content items from a fixed table. References listed
// in failing return a transport error; unknown ones are unresolvable.
type fakeResolver struct {
	mu      sync.Mutex
	items   map[string]models.ContentItem
	failing map[string]bool
	calls   int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		items:   make(map[string]models.ContentItem),
		failing: make(map[string]bool),
	}
}

func (r *fakeResolver) add(ref, videoID, title, duration string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[ref] = models.ContentItem{VideoID: videoID, Title: title, Duration: duration}
}

func (r *fakeResolver) fail(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[ref] = true
}

func (r *fakeResolver) Resolve(_ context.Context, ref string) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failing[ref] {
		return nil, fmt.Errorf("youtube api: connection reset")
	}
	item, ok := r.items[ref]
	if !ok {
		return nil, youtube.ErrUnresolvable
	}
	return &item, nil
}

type fixture struct {
	db        *gorm.DB
	repo      repositories.Repository
	cache     *cache.CacheManager
	mr        *miniredis.Miniredis
	logger    *slog.Logger
	validator *validator.Validator
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
	store     *cache.ResetTokenStore
	sender    *mailer.MemorySender
	publisher *events.MockEventPublisher
	resolver  *fakeResolver

	auth    AuthService
	reset   PasswordResetService
	users   UserService
	courses CourseService
	drafts  DraftService
	orders  OrderService
	reviews ReviewService
	dash    DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr, client := testutil.NewTestRedis(t)
	logger := testutil.NewTestLogger()

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client})
	cacheManager := cache.NewCacheManager(client)

	f := &fixture{
		db:        db,
		repo:      repo,
		cache:     cacheManager,
		mr:        mr,
		logger:    logger,
		validator: validator.New(),
		tokens:    auth.NewTokenManager(testJWTConfig),
		hasher:    auth.NewPasswordHasher(bcrypt.MinCost),
		store:     cache.NewResetTokenStore(cacheManager.Reset, testResetConfig.TokenTTL, testResetConfig.RateWindow),
		sender:    mailer.NewMemorySender(),
		publisher: events.NewMockEventPublisher(logger),
		resolver:  newFakeResolver(),
	}

	f.auth = NewAuthService(repo, db, logger, f.validator, f.tokens, f.hasher)
	f.reset = NewPasswordResetService(repo, db, logger, f.validator, f.store, f.hasher, f.sender, testResetConfig)
	f.users = NewUserService(repo, db, logger, f.validator)
	f.courses = NewCourseService(repo, db, logger, f.validator)
	f.drafts = NewDraftService(repo, db, logger, f.validator, f.resolver, f.publisher, 4)
	f.orders = NewOrderService(repo, db, logger, f.validator, f.publisher)
	f.reviews = NewReviewService(repo, db, logger, f.validator)
	f.dash = NewDashboardService(repo, db, logger)
	return f
}

// register creates an account through the auth service
func (f *fixture) register(t *testing.T, username string) *AuthResponse {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), &RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
	})
	require.NoError(t, err)
	return resp
}

// actor loads the user the way the credential gate does
func (f *fixture) actor(t *testing.T, userID uint) *authz.Actor {
	t.Helper()
	user, err := f.repo.User().GetByIDWithEnrollments(context.Background(), nil, userID)
	require.NoError(t, err)
	return authz.NewActor(user)
}

func (f *fixture) newUser(t *testing.T, username string) *authz.Actor {
	t.Helper()
	return f.actor(t, f.register(t, username).User.ID)
}

func (f *fixture) newAdmin(t *testing.T, username string) *authz.Actor {
	t.Helper()
	resp := f.register(t, username)
	require.NoError(t, f.repo.User().UpdateRole(context.Background(), nil, resp.User.ID, models.RoleAdmin))
	return f.actor(t, resp.User.ID)
}

// publishCourse stores a course owned by ownerID with two videos
func (f *fixture) publishCourse(t *testing.T, ownerID uint, name string, price float64) *models.Course {
	t.Helper()
	ctx := context.Background()
	course := &models.Course{
		UserID: ownerID,
		Name:   name,
		Author: "author",
		Price:  price,
		Content: []models.CourseSection{{
			SectionTitle: "Basics",
			SectionContent: []models.ContentItem{
				{VideoID: "aaaaaaaaaaa", Title: "Setup", Duration: "4:10"},
				{VideoID: "bbbbbbbbbbb", Title: "Types", Duration: "12:03"},
			},
		}},
	}
	require.NoError(t, f.repo.Course().Create(ctx, nil, course))
	require.NoError(t, f.repo.User().AppendCreatedCourse(ctx, nil, ownerID, course.ID))
	return course
}

func (f *fixture) enroll(t *testing.T, userID, courseID uint) {
	t.Helper()
	require.NoError(t, f.repo.Enrollment().Create(context.Background(), nil, &models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
	}))
}

// placeOrder creates a pending order for the full course price
func (f *fixture) placeOrder(t *testing.T, buyer *authz.Actor, course *models.Course) *models.Order {
	t.Helper()
	order, err := f.orders.Create(context.Background(), &CreateOrderRequest{
		CourseID:      course.ID,
		Amount:        course.Price,
		PaymentMethod: models.PaymentMomo,
	}, buyer)
	require.NoError(t, err)
	return order
}

func strPtr(s string) *string { return &s }
