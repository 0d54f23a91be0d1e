package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

func TestUserService_Profiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mona := f.newUser(t, "mona")
	course := f.publishCourse(t, mona.UserID, "Rust", 5)

	profile, err := f.users.GetProfile(ctx, mona)
	require.NoError(t, err)
	assert.Equal(t, "mona@example.com", profile.Email)
	assert.Equal(t, []uint{course.ID}, profile.CreatedCourses)

	public, err := f.users.GetPublicProfile(ctx, mona.UserID)
	require.NoError(t, err)
	assert.Equal(t, "mona", public.Username)
	assert.Equal(t, []uint{course.ID}, public.CreatedCourses)

	_, err = f.users.GetPublicProfile(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.users.GetProfile(ctx, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestUserService_UpdateProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.newUser(t, "nate")
	student := f.newUser(t, "olga")
	course := f.publishCourse(t, owner.UserID, "SQL", 20)

	_, err := f.users.UpdateProgress(ctx, student, course.ID, &UpdateProgressRequest{VideoID: "aaaaaaaaaaa", Completed: true})
	assert.ErrorIs(t, err, ErrNotEnrolled)

	f.enroll(t, student.UserID, course.ID)

	_, err = f.users.UpdateProgress(ctx, student, course.ID, &UpdateProgressRequest{VideoID: "zzzzzzzzzzz", Completed: true})
	assert.ErrorIs(t, err, ErrVideoNotInCourse)

	enrollment, err := f.users.UpdateProgress(ctx, student, course.ID, &UpdateProgressRequest{VideoID: "aaaaaaaaaaa", Completed: true})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, enrollment.Progress, 0.001)
	require.NotNil(t, enrollment.LastWatchedVideo)
	assert.Equal(t, "aaaaaaaaaaa", *enrollment.LastWatchedVideo)

	// completing twice does not double count
	enrollment, err = f.users.UpdateProgress(ctx, student, course.ID, &UpdateProgressRequest{VideoID: "aaaaaaaaaaa", Completed: true})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, enrollment.Progress, 0.001)

	enrollment, err = f.users.UpdateProgress(ctx, student, course.ID, &UpdateProgressRequest{VideoID: "bbbbbbbbbbb", Completed: true})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, enrollment.Progress, 0.001)

	enrollment, err = f.users.UpdateProgress(ctx, student, course.ID, &UpdateProgressRequest{VideoID: "aaaaaaaaaaa", Completed: false})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, enrollment.Progress, 0.001)
	assert.Equal(t, []string{"bbbbbbbbbbb"}, []string(enrollment.CompletedVideos))

	stored, err := f.repo.Enrollment().Get(ctx, nil, student.UserID, course.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, stored.Progress, 0.001)
}

func TestUserService_AdminOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.newAdmin(t, "root")
	paul := f.register(t, "paul")
	quinn := f.newUser(t, "quinn")

	t.Run("non admin is refused", func(t *testing.T) {
		_, err := f.users.List(ctx, quinn, "", PageRequest{})
		var permErr *PermissionError
		require.True(t, errors.As(err, &permErr))
		assert.Equal(t, "user", permErr.Resource)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("list with query", func(t *testing.T) {
		list, err := f.users.List(ctx, admin, "pau", PageRequest{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, list.Total)
		require.Len(t, list.Users, 1)
		assert.Equal(t, "paul", list.Users[0].Username)
	})

	t.Run("admin cannot change own role", func(t *testing.T) {
		_, err := f.users.SetRole(ctx, admin, admin.UserID, &UpdateRoleRequest{Role: models.RoleUser})
		var ruleErr *BusinessRuleError
		require.True(t, errors.As(err, &ruleErr))
		assert.Equal(t, "admin_self_modification", ruleErr.Rule)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := f.users.SetRole(ctx, admin, paul.User.ID, &UpdateRoleRequest{Role: models.UserRole("superuser")})
		var verrs ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})

	t.Run("ban revokes sessions", func(t *testing.T) {
		resp, err := f.users.Ban(ctx, admin, paul.User.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleBanned, resp.Role)

		_, err = f.auth.Refresh(ctx, &RefreshRequest{RefreshToken: paul.RefreshToken})
		assert.ErrorIs(t, err, ErrRefreshRevoked)
	})

	t.Run("promote", func(t *testing.T) {
		resp, err := f.users.SetRole(ctx, admin, quinn.UserID, &UpdateRoleRequest{Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, resp.Role)
	})
}

func TestUserService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.newAdmin(t, "root")
	owner := f.newUser(t, "rita")
	buyer := f.newUser(t, "sam")

	other := f.newUser(t, "tom")

	course := f.publishCourse(t, owner.UserID, "Kafka", 15)
	for _, u := range []*authz.Actor{buyer, other} {
		order := f.placeOrder(t, u, course)
		_, err := f.orders.Process(ctx, order.ID, approveReq(), admin)
		require.NoError(t, err)
	}
	_, err := f.drafts.Create(ctx, &CreateDraftRequest{Name: "Draft", Price: 1}, buyer)
	require.NoError(t, err)

	cached, err := f.courses.GetByID(ctx, course.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, cached.EnrollCount)

	require.NoError(t, f.users.Delete(ctx, admin, buyer.UserID))

	_, err = f.repo.User().GetByID(ctx, nil, buyer.UserID)
	assert.True(t, repositories.IsNotFoundError(err))

	enrolled, err := f.repo.Enrollment().Exists(ctx, nil, buyer.UserID, course.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	uid := buyer.UserID
	orders, total, err := f.repo.Order().ListWithDetails(ctx, nil, repositories.OrderFilters{UserID: &uid})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)

	drafts, total, err := f.repo.DraftCourse().List(ctx, nil, repositories.DraftFilters{UserID: &uid})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, drafts)

	// the published course stays, counting only the remaining enrollment
	after, err := f.courses.GetByID(ctx, course.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, after.EnrollCount)

	stored, err := f.repo.Course().GetByID(ctx, f.db, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollCount)

	assert.ErrorIs(t, f.users.Delete(ctx, admin, buyer.UserID), ErrUserNotFound)
}
