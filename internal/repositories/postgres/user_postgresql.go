package postgres

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type userPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &userPostgreSQL{db: db}
}

// ===== BASIC CRUD OPERATIONS =====

func (r *userPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return r.handleDBError(err, "create user")
	}
	return nil
}

func (r *userPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := r.getDB(tx)
	var user models.User

	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, r.handleDBError(err, "get user by id")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByIDWithEnrollments(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := r.getDB(tx)
	var user models.User

	if err := db.WithContext(ctx).
		Preload("OwnedCourses", func(q *gorm.DB) *gorm.DB {
			return q.Order("enrolled_at ASC")
		}).
		First(&user, id).Error; err != nil {
		return nil, r.handleDBError(err, "get user with enrollments")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	db := r.getDB(tx)
	var user models.User

	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, r.handleDBError(err, "get user by username")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	db := r.getDB(tx)
	var user models.User

	if err := db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, r.handleDBError(err, "get user by email")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	db := r.getDB(tx)
	var users []*models.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, r.handleDBError(err, "get users by ids")
	}
	return users, nil
}

func (r *userPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)
	return requireAffected(db.WithContext(ctx).Delete(&models.User{}, id), "delete user")
}

// ===== QUERY OPERATIONS =====

func (r *userPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	db := r.getDB(tx)
	var users []*models.User
	var total int64

	query := db.WithContext(ctx).Model(&models.User{})

	if filters.Role != nil {
		query = query.Where("role = ?", string(*filters.Role))
	}
	if filters.Query != "" {
		pattern := containsPattern(filters.Query)
		query = query.Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.handleDBError(err, "count users")
	}

	query = applyPagination(query.Order("id ASC"), filters.Limit, filters.Offset)

	if err := query.Find(&users).Error; err != nil {
		return nil, 0, r.handleDBError(err, "list users")
	}

	return users, total, nil
}

func (r *userPostgreSQL) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, r.handleDBError(err, "check username")
	}
	return count > 0, nil
}

func (r *userPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error; err != nil {
		return false, r.handleDBError(err, "check email")
	}
	return count > 0, nil
}

// ===== FIELD UPDATES =====

func (r *userPostgreSQL) UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", passwordHash)
	return requireAffected(result, "update password")
}

func (r *userPostgreSQL) UpdateRole(ctx context.Context, tx *gorm.DB, id uint, role models.UserRole) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	return requireAffected(result, "update role")
}

func (r *userPostgreSQL) AppendCreatedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint) error {
	db := r.getDB(tx).WithContext(ctx)

	var user models.User
	if err := lockForUpdate(db).Select("id", "created_courses").First(&user, userID).Error; err != nil {
		return r.handleDBError(err, "load created courses")
	}

	for _, id := range user.CreatedCourses {
		if id == courseID {
			return nil
		}
	}
	user.CreatedCourses = append(user.CreatedCourses, courseID)

	result := db.Model(&models.User{}).Where("id = ?", userID).Update("created_courses", user.CreatedCourses)
	return requireAffected(result, "append created course")
}

func (r *userPostgreSQL) RemoveCreatedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint) error {
	db := r.getDB(tx).WithContext(ctx)

	var user models.User
	if err := lockForUpdate(db).Select("id", "created_courses").First(&user, userID).Error; err != nil {
		return r.handleDBError(err, "load created courses")
	}

	kept := make([]uint, 0, len(user.CreatedCourses))
	for _, id := range user.CreatedCourses {
		if id != courseID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(user.CreatedCourses) {
		return nil
	}

	result := db.Model(&models.User{}).Where("id = ?", userID).Update("created_courses", datatypes.JSONSlice[uint](kept))
	return requireAffected(result, "remove created course")
}

func (r *userPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return getDB(r.db, tx)
}

func (r *userPostgreSQL) handleDBError(err error, operation string) error {
	return handleDBError(err, operation)
}
