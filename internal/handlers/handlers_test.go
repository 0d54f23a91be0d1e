package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
)

func TestHealthAndMiddleware(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{
			name:   "duplicate username",
			path:   "/api/v1/auth/register",
			body:   map[string]string{"username": "alice", "email": "other@example.com", "password": "secret-x"},
			status: http.StatusConflict,
		},
		{
			name:   "invalid registration",
			path:   "/api/v1/auth/register",
			body:   map[string]string{"username": "a", "email": "nope", "password": "123"},
			status: http.StatusBadRequest,
		},
		{
			name:   "wrong password",
			path:   "/api/v1/auth/login",
			body:   map[string]string{"username": "alice", "password": "wrong-one"},
			status: http.StatusUnauthorized,
		},
		{
			name:   "login",
			path:   "/api/v1/auth/login",
			body:   map[string]string{"username": "alice", "password": "secret-alice"},
			status: http.StatusOK,
		},
		{
			name:   "garbage refresh token",
			path:   "/api/v1/auth/refresh",
			body:   map[string]string{"refresh_token": "garbage"},
			status: http.StatusUnauthorized,
		},
		{
			name:   "reset for unknown email",
			path:   "/api/v1/auth/password-reset/request",
			body:   map[string]string{"email": "ghost@example.com"},
			status: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, request{method: http.MethodPost, path: tt.path, body: tt.body})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	t.Run("validation details name the fields", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{"username": "bob"}})
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[struct {
			Details services.ValidationErrors `json:"details"`
		}](t, w)
		fields := make([]string, 0, len(resp.Details))
		for _, fe := range resp.Details {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"email", "password"}, fields)
	})
}

func TestPasswordResetRateLimit(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "carol")

	body := map[string]string{"email": "carol@example.com"}
	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/auth/password-reset/request", body: body})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/auth/password-reset/request", body: body})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	limited := decode[ErrorResponse](t, w)
	assert.Equal(t, map[string]interface{}{"retry_after_seconds": float64(60)}, limited.Details)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/auth/password-reset/confirm", body: map[string]string{
		"token":        fmt.Sprintf("%064x", 42),
		"new_password": "brand-new",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")
}

func TestCredentialGate(t *testing.T) {
	ts := newTestServer(t)
	session := ts.register(t, "dave")

	t.Run("missing credentials", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/users/me"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid access token", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", access: session.AccessToken})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(AccessTokenHeader))
		me := decode[services.UserResponse](t, w)
		assert.Equal(t, "dave@example.com", me.Email)
	})

	user, err := ts.repo.User().GetByID(context.Background(), nil, session.User.ID)
	require.NoError(t, err)
	expired, err := ts.tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).IssueAccessToken(user)
	require.NoError(t, err)

	t.Run("expired access token is renewed", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", access: expired, refresh: session.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		renewed := w.Header().Get(AccessTokenHeader)
		require.NotEmpty(t, renewed)

		w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", access: renewed})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("expired access token without refresh", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", access: expired})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/auth/logout", body: map[string]string{"refresh_token": session.RefreshToken}})
		require.Equal(t, http.StatusOK, w.Code)

		w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", access: expired, refresh: session.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin routes", func(t *testing.T) {
		w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/users", access: session.AccessToken})
		assert.Equal(t, http.StatusForbidden, w.Code)

		admin := ts.registerAdmin(t, "erin")
		w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/users", access: admin.AccessToken})
		require.Equal(t, http.StatusOK, w.Code)
		users := decode[services.UserListResponse](t, w)
		assert.EqualValues(t, 2, users.Total)
	})
}

func TestCourseVisibilityOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.register(t, "frank")
	buyer := ts.register(t, "grace")
	admin := ts.registerAdmin(t, "heidi")
	course := ts.publishCourse(t, creator.User.ID, "Gin in Depth", 15)
	path := fmt.Sprintf("/api/v1/courses/%d", course.ID)

	videoID := func(t *testing.T, access string) string {
		t.Helper()
		w := ts.do(t, request{method: http.MethodGet, path: path, access: access})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[services.CourseResponse](t, w)
		return resp.Content[0].SectionContent[0].VideoID
	}

	assert.Empty(t, videoID(t, ""))
	assert.Empty(t, videoID(t, "not-a-token"))
	assert.Empty(t, videoID(t, buyer.AccessToken))
	assert.Equal(t, "dQw4w9WgXcQ", videoID(t, creator.AccessToken))

	w := ts.do(t, request{method: http.MethodPost, path: path + "/enroll", access: buyer.AccessToken, body: map[string]interface{}{
		"amount":         15,
		"payment_method": "momo",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, models.OrderPending, order.Status)

	w = ts.do(t, request{method: http.MethodPost, path: path + "/enroll", access: buyer.AccessToken, body: map[string]interface{}{
		"amount":         15,
		"payment_method": "momo",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)

	processPath := fmt.Sprintf("/api/v1/admin/orders/%d/process", order.ID)
	w = ts.do(t, request{method: http.MethodPost, path: processPath, access: admin.AccessToken, body: map[string]string{"action": "approve"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "dQw4w9WgXcQ", videoID(t, buyer.AccessToken))

	w = ts.do(t, request{method: http.MethodPost, path: processPath, access: admin.AccessToken, body: map[string]string{"action": "approve"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/reviews", access: buyer.AccessToken, body: map[string]interface{}{
		"course_id": course.ID,
		"rating":    4,
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/api/v1/reviews/stats/%d", course.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.ReviewStats](t, w)
	assert.Equal(t, 1, stats.TotalReviews)
	assert.InDelta(t, 4.0, stats.AverageRating, 0.0001)
}

func TestCourseRoutes(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.register(t, "ivan")
	stranger := ts.register(t, "judy")
	course := ts.publishCourse(t, creator.User.ID, "Redis Patterns", 20)
	path := fmt.Sprintf("/api/v1/courses/%d", course.ID)

	w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/courses/search?query=redis&sort=price_desc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[services.CourseListResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Empty(t, list.Courses[0].Content[0].SectionContent[0].VideoID)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/courses/search?sort=random"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/courses/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/courses/9999"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: path, access: stranger.AccessToken, body: map[string]interface{}{"price": 1}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodPut, path: path, access: creator.AccessToken, body: map[string]interface{}{"price": 25}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 25.0, decode[services.CourseResponse](t, w).Price)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/courses/me/created", access: creator.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[services.CourseListResponse](t, w).Total)

	w = ts.do(t, request{method: http.MethodPut, path: path + "/progress", access: stranger.AccessToken, body: map[string]interface{}{"video_id": "dQw4w9WgXcQ"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodDelete, path: path, access: creator.AccessToken})
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, request{method: http.MethodGet, path: path})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftApprovalOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	author := ts.register(t, "ken")
	admin := ts.registerAdmin(t, "lena")

	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/drafts", access: author.AccessToken, body: map[string]interface{}{
		"name":  "Draft Course",
		"price": 10,
		"content": []map[string]interface{}{{
			"section_title":   "One",
			"section_content": []string{"https://youtu.be/dQw4w9WgXcQ", "missing"},
		}},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[models.DraftCourse](t, w)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/drafts", access: author.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[services.DraftListResponse](t, w).Total)

	approvePath := fmt.Sprintf("/api/v1/admin/drafts/%d/approve", draft.ID)
	w = ts.do(t, request{method: http.MethodPost, path: approvePath, access: author.AccessToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodPost, path: approvePath, access: admin.AccessToken})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	approval := decode[services.DraftApprovalResponse](t, w)
	assert.Equal(t, 1, approval.ResolvedItems)
	assert.Equal(t, []string{"missing"}, approval.DroppedItems)
	assert.Equal(t, author.User.ID, approval.Course.UserID)

	w = ts.do(t, request{method: http.MethodPost, path: approvePath, access: admin.AccessToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	creator := ts.register(t, "mike")
	buyer := ts.register(t, "nina")
	admin := ts.registerAdmin(t, "oscar")
	course := ts.publishCourse(t, creator.User.ID, "Excel Exports", 5)

	w := ts.do(t, request{method: http.MethodPost, path: "/api/v1/orders", access: buyer.AccessToken, body: map[string]interface{}{
		"course_id":      course.ID,
		"amount":         1,
		"payment_method": "bank_transfer",
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, request{method: http.MethodPost, path: "/api/v1/orders", access: buyer.AccessToken, body: map[string]interface{}{
		"course_id":      course.ID,
		"amount":         5,
		"payment_method": "bank_transfer",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)

	w = ts.do(t, request{method: http.MethodPost, path: fmt.Sprintf("/api/v1/admin/orders/%d/process", order.ID), access: admin.AccessToken, body: map[string]string{
		"action":          "reject",
		"note_from_admin": "missing transfer",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/orders?status=bogus", access: admin.AccessToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/orders?status=rejected", access: admin.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[services.OrderListResponse](t, w)
	require.EqualValues(t, 1, orders.Total)
	assert.Equal(t, "nina", orders.Orders[0].Username)

	w = ts.do(t, request{method: http.MethodPut, path: fmt.Sprintf("/api/v1/orders/%d/resubmit", order.ID), access: buyer.AccessToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.OrderPending, decode[models.Order](t, w).Status)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/orders/export", access: admin.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	assert.Contains(t, book.GetSheetList(), "Orders")
}

func TestDashboardRoute(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.registerAdmin(t, "quinn")
	user := ts.register(t, "rita")
	ts.publishCourse(t, admin.User.ID, "Listed", 12)

	w := ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/dashboard/stats", access: user.AccessToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/dashboard/stats?period=abc", access: admin.AccessToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/dashboard/stats?period=400", access: admin.AccessToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, request{method: http.MethodGet, path: "/api/v1/admin/dashboard/stats?period=14", access: admin.AccessToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[services.DashboardStatsResponse](t, w)
	assert.EqualValues(t, 2, stats.Overview.TotalUsers)
	assert.EqualValues(t, 1, stats.Overview.TotalCourses)
	assert.Equal(t, 14, stats.Trends.Period)
	assert.Len(t, stats.Trends.Daily, 14)
	require.Len(t, stats.TopCourses, 1)
	assert.Equal(t, "Listed", stats.TopCourses[0].Name)
}
