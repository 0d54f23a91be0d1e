package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/course-marketplace/internal/auth"
	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/postgres"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/testutil"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
	"github.com/SAP-F-2025/course-marketplace/internal/youtube"
)

var testJWTConfig = config.JWTConfig{
	AccessSecret:  "handler-access-secret",
	RefreshSecret: "handler-refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "course-marketplace-test",
}

// staticResolver knows a fixed set of video ids
type staticResolver map[string]models.ContentItem

func (r staticResolver) Resolve(_ context.Context, ref string) (*models.ContentItem, error) {
	id, ok := youtube.ParseVideoID(ref)
	if !ok {
		return nil, youtube.ErrUnresolvable
	}
	item, ok := r[id]
	if !ok {
		return nil, youtube.ErrUnresolvable
	}
	return &item, nil
}

type testServer struct {
	router    *gin.Engine
	repo      repositories.Repository
	mr        *miniredis.Miniredis
	tokens    *auth.TokenManager
	sender    *mailer.MemorySender
	publisher *events.MockEventPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	mr, client := testutil.NewTestRedis(t)
	logger := testutil.NewTestLogger()

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client})
	resetCfg := config.PasswordResetConfig{TokenTTL: 10 * time.Minute, RateWindow: time.Minute, FrontendURL: "https://learn.example.com"}

	ts := &testServer{
		repo:      repo,
		mr:        mr,
		tokens:    auth.NewTokenManager(testJWTConfig),
		sender:    mailer.NewMemorySender(),
		publisher: events.NewMockEventPublisher(logger),
	}

	sm := services.NewServiceManager(services.ServiceDependencies{
		DB:         db,
		Repo:       repo,
		Logger:     logger,
		Validator:  validator.New(),
		Tokens:     ts.tokens,
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
		ResetStore: cache.NewResetTokenStore(cache.NewCacheManager(client).Reset, resetCfg.TokenTTL, resetCfg.RateWindow),
		Mailer:     ts.sender,
		Resolver: staticResolver{
			"dQw4w9WgXcQ": {VideoID: "dQw4w9WgXcQ", Title: "Intro", Duration: "3:33"},
		},
		Publisher: ts.publisher,
	}, services.ServiceManagerConfig{
		Auth:                  services.ServiceConfig{Enabled: true},
		PasswordReset:         services.ServiceConfig{Enabled: true},
		User:                  services.ServiceConfig{Enabled: true},
		Course:                services.ServiceConfig{Enabled: true},
		Draft:                 services.ServiceConfig{Enabled: true},
		Order:                 services.ServiceConfig{Enabled: true},
		Review:                services.ServiceConfig{Enabled: true},
		Dashboard:             services.ServiceConfig{Enabled: true},
		PasswordResetSettings: resetCfg,
		ResolveConcurrency:    2,
	})
	require.NoError(t, sm.Initialize(context.Background()))

	router := gin.New()
	handlerLogger := utils.NewSlogLogger(logger)
	SetupMiddleware(router, handlerLogger, config.CORSConfig{})
	NewHandlerManager(sm, handlerLogger, "course-marketplace").SetupRoutes(router)
	ts.router = router
	return ts
}

type request struct {
	method  string
	path    string
	body    interface{}
	access  string
	refresh string
}

func (ts *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.access != "" {
		req.Header.Set("Authorization", "Bearer "+r.access)
	}
	if r.refresh != "" {
		req.Header.Set(RefreshTokenHeader, r.refresh)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register signs up username and returns its token pair
func (ts *testServer) register(t *testing.T, username string) *services.AuthResponse {
	t.Helper()
	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret-" + username,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[*services.AuthResponse](t, w)
}

// registerAdmin signs up username and promotes it. The gate loads the role
// from storage, so the issued tokens act as admin straight away.
func (ts *testServer) registerAdmin(t *testing.T, username string) *services.AuthResponse {
	t.Helper()
	resp := ts.register(t, username)
	require.NoError(t, ts.repo.User().UpdateRole(context.Background(), nil, resp.User.ID, models.RoleAdmin))
	return resp
}

func (ts *testServer) publishCourse(t *testing.T, ownerID uint, name string, price float64) *models.Course {
	t.Helper()
	ctx := context.Background()
	course := &models.Course{
		UserID: ownerID,
		Name:   name,
		Price:  price,
		Content: []models.CourseSection{{
			SectionTitle: "Start",
			SectionContent: []models.ContentItem{
				{VideoID: "dQw4w9WgXcQ", Title: "Intro", Duration: "3:33"},
			},
		}},
	}
	require.NoError(t, ts.repo.Course().Create(ctx, nil, course))
	require.NoError(t, ts.repo.User().AppendCreatedCourse(ctx, nil, ownerID, course.ID))
	return course
}
