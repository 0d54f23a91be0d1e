package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type draftCoursePostgreSQL struct {
	db *gorm.DB
}

func NewDraftCoursePostgreSQL(db *gorm.DB) repositories.DraftCourseRepository {
	return &draftCoursePostgreSQL{db: db}
}

func (r *draftCoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, draft *models.DraftCourse) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(draft).Error; err != nil {
		return handleDBError(err, "create draft course")
	}
	return nil
}

func (r *draftCoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.DraftCourse, error) {
	db := getDB(r.db, tx)
	var draft models.DraftCourse

	if err := db.WithContext(ctx).First(&draft, id).Error; err != nil {
		return nil, handleDBError(err, "get draft course by id")
	}

	return &draft, nil
}

func (r *draftCoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, draft *models.DraftCourse) error {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Model(draft).
		Select("name", "author", "tags", "description", "content", "price", "banner", "updated_at").
		Updates(draft)
	return requireAffected(result, "update draft course")
}

func (r *draftCoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)
	return requireAffected(db.WithContext(ctx).Delete(&models.DraftCourse{}, id), "delete draft course")
}

func (r *draftCoursePostgreSQL) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.DraftCourse{}).Error; err != nil {
		return handleDBError(err, "delete user drafts")
	}
	return nil
}

func (r *draftCoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.DraftFilters) ([]*models.DraftCourse, int64, error) {
	db := getDB(r.db, tx)
	var drafts []*models.DraftCourse
	var total int64

	query := db.WithContext(ctx).Model(&models.DraftCourse{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count draft courses")
	}

	query = applyPagination(query.Order("created_at DESC").Order("id DESC"), filters.Limit, filters.Offset)

	if err := query.Find(&drafts).Error; err != nil {
		return nil, 0, handleDBError(err, "list draft courses")
	}

	return drafts, total, nil
}
