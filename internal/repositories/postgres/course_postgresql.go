package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type coursePostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
	// readThrough is off for transaction-bound instances so reads see
	// uncommitted writes of the same transaction
	readThrough bool
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &coursePostgreSQL{db: db, cache: cacheManager, readThrough: true}
}

func newTxCoursePostgreSQL(tx *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &coursePostgreSQL{db: tx, cache: cacheManager}
}

// ===== BASIC CRUD OPERATIONS =====

func (r *coursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return handleDBError(err, "create course")
	}
	return nil
}

func (r *coursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	useCache := r.readThrough && tx == nil

	var course models.Course
	if useCache {
		err := r.cache.Course.Get(ctx, cache.CourseKey(id), &course)
		if err == nil {
			return &course, nil
		}
		if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
			// Broken cache entries fall through to the database
			cache.SafeDelete(ctx, r.cache.Course, cache.CourseKey(id))
		}
	}

	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, handleDBError(err, "get course by id")
	}

	if useCache {
		cache.SafeSet(ctx, r.cache.Course, cache.CourseKey(id), &course, cache.CourseCacheConfig)
	}

	return &course, nil
}

func (r *coursePostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Course, error) {
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}

	db := getDB(r.db, tx)
	var courses []*models.Course
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, handleDBError(err, "get courses by ids")
	}
	return courses, nil
}

func (r *coursePostgreSQL) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]interface{}) error {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Updates(fields)
	if err := requireAffected(result, "update course"); err != nil {
		return err
	}
	r.invalidate(ctx, tx, id)
	return nil
}

func (r *coursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)
	if err := requireAffected(db.WithContext(ctx).Delete(&models.Course{}, id), "delete course"); err != nil {
		return err
	}
	r.invalidate(ctx, tx, id)
	return nil
}

// ===== AGGREGATES =====

func (r *coursePostgreSQL) IncrementEnrollCount(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		UpdateColumn("enroll_count", gorm.Expr("enroll_count + ?", 1))
	if err := requireAffected(result, "increment enroll count"); err != nil {
		return err
	}
	r.invalidate(ctx, tx, id)
	return nil
}

func (r *coursePostgreSQL) UpdateReviewStats(ctx context.Context, tx *gorm.DB, id uint, stats models.ReviewStats) error {
	db := getDB(r.db, tx)
	result := db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"average_rating": stats.AverageRating,
			"review_count":   stats.TotalReviews,
		})
	if err := requireAffected(result, "update review stats"); err != nil {
		return err
	}
	r.invalidate(ctx, tx, id)
	return nil
}

// RecountEnrollments resets enroll_count of the given courses to the number
// of enrollment rows they have
func (r *coursePostgreSQL) RecountEnrollments(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	db := getDB(r.db, tx)
	err := db.WithContext(ctx).Model(&models.Course{}).
		Where("id IN ?", ids).
		UpdateColumn("enroll_count", gorm.Expr("(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id)")).
		Error
	if err != nil {
		return handleDBError(err, "recount enrollments")
	}
	for _, id := range ids {
		r.invalidate(ctx, tx, id)
	}
	return nil
}

// ===== CACHE =====

// InvalidateCache drops cached course documents. Writers running inside a
// transaction call it once the transaction has committed.
func (r *coursePostgreSQL) InvalidateCache(ctx context.Context, ids ...uint) {
	for _, id := range ids {
		cache.InvalidateCourseCache(ctx, r.cache, id)
	}
}

// invalidate drops the cached course only for auto-committed writes. A
// reader racing an open transaction would re-cache the old row otherwise.
func (r *coursePostgreSQL) invalidate(ctx context.Context, tx *gorm.DB, id uint) {
	if r.readThrough && tx == nil {
		cache.InvalidateCourseCache(ctx, r.cache, id)
	}
}

// ===== QUERY OPERATIONS =====

func (r *coursePostgreSQL) Search(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, error) {
	db := getDB(r.db, tx)
	var courses []*models.Course

	query := db.WithContext(ctx).Model(&models.Course{})

	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := containsPattern(q)
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(CAST(tags AS TEXT)) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}
	if filters.MinRating != nil {
		query = query.Where("average_rating >= ?", *filters.MinRating)
	}

	query = applyCourseSort(query, filters.Sort)
	query = applyPagination(query, filters.Limit, 0)

	if err := query.Find(&courses).Error; err != nil {
		return nil, handleDBError(err, "search courses")
	}

	return courses, nil
}

// applyCourseSort maps the public sort keys onto fixed ORDER BY clauses
func applyCourseSort(query *gorm.DB, sort repositories.CourseSort) *gorm.DB {
	switch sort {
	case repositories.SortPriceAsc:
		return query.Order("price ASC").Order("id ASC")
	case repositories.SortPriceDesc:
		return query.Order("price DESC").Order("id ASC")
	case repositories.SortEnrollDesc:
		return query.Order("enroll_count DESC").Order("id ASC")
	case repositories.SortCreatedAsc:
		return query.Order("last_modified ASC").Order("id ASC")
	default:
		return query.Order("last_modified DESC").Order("id DESC")
	}
}
