package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewService_AggregatesRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "ada")
	first := f.newUser(t, "ben")
	second := f.newUser(t, "cat")
	course := f.publishCourse(t, creator.UserID, "Redis", 5)
	f.enroll(t, first.UserID, course.ID)
	f.enroll(t, second.UserID, course.ID)

	_, err := f.reviews.Upsert(ctx, &UpsertReviewRequest{CourseID: course.ID, Rating: 2, Comment: "  meh  "}, first)
	require.NoError(t, err)
	review, err := f.reviews.Upsert(ctx, &UpsertReviewRequest{CourseID: course.ID, Rating: 4, Comment: "better after update"}, first)
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "better after update", review.Comment)

	_, err = f.reviews.Upsert(ctx, &UpsertReviewRequest{CourseID: course.ID, Rating: 5}, second)
	require.NoError(t, err)

	stats, err := f.reviews.Stats(ctx, course.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, stats.AverageRating, 0.0001)
	assert.Equal(t, 2, stats.TotalReviews)

	list, err := f.reviews.ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 2, list.Total)
	usernames := []string{list.Reviews[0].Username, list.Reviews[1].Username}
	assert.ElementsMatch(t, []string{"ben", "cat"}, usernames)

	mine, err := f.reviews.ListByUser(ctx, first.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, course.ID, mine[0].CourseID)

	projected, err := f.courses.GetByID(ctx, course.ID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, projected.AverageRating, 0.0001)
	assert.Equal(t, 2, projected.ReviewCount)
}

func TestReviewService_Eligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "dan")
	stranger := f.newUser(t, "eve")
	course := f.publishCourse(t, creator.UserID, "Kafka", 9)

	tests := []struct {
		name    string
		req     *UpsertReviewRequest
		wantErr error
	}{
		{name: "creator", req: &UpsertReviewRequest{CourseID: course.ID, Rating: 5}, wantErr: ErrCannotReviewOwnCourse},
		{name: "not enrolled", req: &UpsertReviewRequest{CourseID: course.ID, Rating: 3}, wantErr: ErrNotEnrolled},
		{name: "unknown course", req: &UpsertReviewRequest{CourseID: 777, Rating: 3}, wantErr: ErrCourseNotFound},
	}
	actors := map[string]bool{"creator": true}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			who := stranger
			if actors[tt.name] {
				who = creator
			}
			_, err := f.reviews.Upsert(ctx, tt.req, who)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("rating out of range", func(t *testing.T) {
		f.enroll(t, stranger.UserID, course.ID)
		for _, rating := range []int{0, 6} {
			_, err := f.reviews.Upsert(ctx, &UpsertReviewRequest{CourseID: course.ID, Rating: rating}, stranger)
			var verrs ValidationErrors
			assert.ErrorAs(t, err, &verrs, "rating %d", rating)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.reviews.Upsert(ctx, &UpsertReviewRequest{CourseID: course.ID, Rating: 3}, nil)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	_, err := f.reviews.ListByCourse(ctx, 777)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	stats, err := f.reviews.Stats(ctx, course.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReviews)
	assert.Zero(t, stats.AverageRating)
}
