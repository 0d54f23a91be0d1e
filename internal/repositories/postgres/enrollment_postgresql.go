package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type enrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &enrollmentPostgreSQL{db: db}
}

func (r *enrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return handleDBError(err, "create enrollment")
	}
	return nil
}

func (r *enrollmentPostgreSQL) Get(ctx context.Context, tx *gorm.DB, userID, courseID uint) (*models.Enrollment, error) {
	db := getDB(r.db, tx)
	var enrollment models.Enrollment

	if err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return nil, handleDBError(err, "get enrollment")
	}

	return &enrollment, nil
}

func (r *enrollmentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, userID, courseID uint) (bool, error) {
	db := getDB(r.db, tx)
	var count int64

	if err := db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check enrollment")
	}

	return count > 0, nil
}

func (r *enrollmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.Enrollment, error) {
	db := getDB(r.db, tx)
	var enrollments []*models.Enrollment

	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, handleDBError(err, "list enrollments")
	}

	return enrollments, nil
}

func (r *enrollmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Updates(map[string]interface{}{
			"progress":           enrollment.Progress,
			"last_watched_video": enrollment.LastWatchedVideo,
			"completed_videos":   enrollment.CompletedVideos,
		})
	return requireAffected(result, "update enrollment")
}

func (r *enrollmentPostgreSQL) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Enrollment{}).Error; err != nil {
		return handleDBError(err, "delete enrollments")
	}
	return nil
}
