package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type reviewPostgreSQL struct {
	db *gorm.DB
}

func NewReviewPostgreSQL(db *gorm.DB) repositories.ReviewRepository {
	return &reviewPostgreSQL{db: db}
}

func (r *reviewPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, review *models.Review) error {
	db := getDB(r.db, tx)

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "created_at"}),
	}).Create(review).Error
	if err != nil {
		return handleDBError(err, "upsert review")
	}

	return nil
}

func (r *reviewPostgreSQL) Get(ctx context.Context, tx *gorm.DB, courseID, userID uint) (*models.Review, error) {
	db := getDB(r.db, tx)
	var review models.Review

	err := db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&review).Error
	if err != nil {
		return nil, handleDBError(err, "get review")
	}

	return &review, nil
}

func (r *reviewPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.ReviewWithUser, error) {
	db := getDB(r.db, tx)
	reviews := make([]*models.ReviewWithUser, 0)

	err := db.WithContext(ctx).
		Table("reviews AS r").
		Select("r.*, COALESCE(u.username, '') AS username").
		Joins("LEFT JOIN users u ON u.id = r.user_id").
		Where("r.course_id = ?", courseID).
		Order("r.created_at DESC").Order("r.id DESC").
		Scan(&reviews).Error
	if err != nil {
		return nil, handleDBError(err, "list course reviews")
	}

	return reviews, nil
}

func (r *reviewPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.Review, error) {
	db := getDB(r.db, tx)
	var reviews []*models.Review

	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, handleDBError(err, "list user reviews")
	}

	return reviews, nil
}

func (r *reviewPostgreSQL) ComputeStats(ctx context.Context, tx *gorm.DB, courseID uint) (models.ReviewStats, error) {
	db := getDB(r.db, tx)

	var row struct {
		Avg   float64
		Count int
	}
	err := db.WithContext(ctx).Model(&models.Review{}).
		Select("CAST(COALESCE(AVG(rating), 0) AS FLOAT) AS avg, COUNT(*) AS count").
		Where("course_id = ?", courseID).
		Scan(&row).Error
	if err != nil {
		return models.ReviewStats{}, handleDBError(err, "compute review stats")
	}

	return models.ReviewStats{AverageRating: row.Avg, TotalReviews: row.Count}, nil
}

func (r *reviewPostgreSQL) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uint) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Where("course_id = ?", courseID).Delete(&models.Review{}).Error; err != nil {
		return handleDBError(err, "delete course reviews")
	}
	return nil
}
