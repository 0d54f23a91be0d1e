package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

type reviewService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewReviewService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ReviewService {
	return &reviewService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// Upsert writes the actor's review of a course and recomputes the course's
// rating aggregates from every review it has.
func (s *reviewService) Upsert(ctx context.Context, req *UpsertReviewRequest, actor *authz.Actor) (*models.Review, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, req.CourseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}
	if actor.IsCourseCreator(course) {
		return nil, ErrCannotReviewOwnCourse
	}

	enrolled, err := s.repo.Enrollment().Exists(ctx, nil, actor.UserID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	review := &models.Review{
		CourseID:  course.ID,
		UserID:    actor.UserID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: time.Now().UTC(),
	}

	var stats models.ReviewStats
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Review().Upsert(ctx, tx, review); err != nil {
			return err
		}
		var err error
		stats, err = s.repo.Review().ComputeStats(ctx, tx, course.ID)
		if err != nil {
			return err
		}
		return s.repo.Course().UpdateReviewStats(ctx, tx, course.ID, stats)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	s.repo.Course().InvalidateCache(ctx, course.ID)

	stored, err := s.repo.Review().Get(ctx, nil, course.ID, actor.UserID)
	if err != nil {
		return nil, mapNotFound(err, ErrReviewNotFound)
	}

	s.logger.Info("Review saved",
		"course_id", course.ID,
		"user_id", actor.UserID,
		"rating", review.Rating,
		"average_rating", stats.AverageRating,
		"review_count", stats.TotalReviews)
	return stored, nil
}

func (s *reviewService) ListByCourse(ctx context.Context, courseID uint) (*ReviewListResponse, error) {
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}

	reviews, err := s.repo.Review().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return &ReviewListResponse{Reviews: reviews, Total: len(reviews)}, nil
}

func (s *reviewService) ListByUser(ctx context.Context, userID uint) ([]*models.Review, error) {
	reviews, err := s.repo.Review().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// Stats returns the aggregates stored on the course
func (s *reviewService) Stats(ctx context.Context, courseID uint) (*models.ReviewStats, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}
	return &models.ReviewStats{
		AverageRating: course.AverageRating,
		TotalReviews:  course.ReviewCount,
	}, nil
}
