package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

// recacheDuringWrite stores the committed course row in the cache right after
// every UPDATE or DELETE on courses, before the surrounding transaction
// commits. That is what a concurrent reader does under READ COMMITTED.
func (f *fixture) recacheDuringWrite(t *testing.T, courseID uint) {
	t.Helper()
	ctx := context.Background()

	committed, err := f.repo.Course().GetByID(ctx, f.db, courseID)
	require.NoError(t, err)

	recache := func(db *gorm.DB) {
		if db.Statement.Table == "courses" {
			cache.SafeSet(ctx, f.cache.Course, cache.CourseKey(courseID), committed, cache.CourseCacheConfig)
		}
	}
	require.NoError(t, f.db.Callback().Update().After("gorm:update").Register("test:recache_update", recache))
	require.NoError(t, f.db.Callback().Delete().After("gorm:delete").Register("test:recache_delete", recache))
}

func TestCourseCache_RefreshedAfterOrderApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.newAdmin(t, "root")
	creator := f.newUser(t, "creator")
	buyer := f.newUser(t, "buyer")
	course := f.publishCourse(t, creator.UserID, "Cached", 20)
	order := f.placeOrder(t, buyer, course)

	f.recacheDuringWrite(t, course.ID)

	_, err := f.orders.Process(ctx, order.ID, approveReq(), admin)
	require.NoError(t, err)

	got, err := f.courses.GetByID(ctx, course.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EnrollCount)
}

func TestCourseCache_RefreshedAfterReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "creator")
	course := f.publishCourse(t, creator.UserID, "Rated", 0)
	student := f.newUser(t, "student")
	f.enroll(t, student.UserID, course.ID)

	f.recacheDuringWrite(t, course.ID)

	_, err := f.reviews.Upsert(ctx, &UpsertReviewRequest{CourseID: course.ID, Rating: 4}, student)
	require.NoError(t, err)

	stats, err := f.reviews.Stats(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, stats.AverageRating)
	assert.Equal(t, 1, stats.TotalReviews)

	got, err := f.courses.GetByID(ctx, course.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewCount)
}

func TestCourseCache_DroppedAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "creator")
	course := f.publishCourse(t, creator.UserID, "Doomed", 5)

	f.recacheDuringWrite(t, course.ID)

	require.NoError(t, f.courses.Delete(ctx, course.ID, creator))

	_, err := f.courses.GetByID(ctx, course.ID, nil)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	var remaining int64
	require.NoError(t, f.db.Model(&models.Course{}).Where("id = ?", course.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
