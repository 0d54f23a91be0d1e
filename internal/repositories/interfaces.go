package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

// ===== FILTERS =====

type UserFilters struct {
	Role   *models.UserRole
	Query  string
	Limit  int
	Offset int
}

// CourseSort names the supported catalogue orderings
type CourseSort string

const (
	SortPriceAsc    CourseSort = "price_asc"
	SortPriceDesc   CourseSort = "price_desc"
	SortEnrollDesc  CourseSort = "enroll_desc"
	SortCreatedAsc  CourseSort = "created_asc"
	SortCreatedDesc CourseSort = "created_desc"
)

type CourseFilters struct {
	Query     string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	Sort      CourseSort
	Limit     int
}

type DraftFilters struct {
	UserID *uint
	Limit  int
	Offset int
}

type OrderFilters struct {
	UserID *uint
	Status *models.OrderStatus
	Limit  int
	Offset int
}

// ===== REPOSITORIES =====

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByIDWithEnrollments(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.User, error)
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)

	UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error
	UpdateRole(ctx context.Context, tx *gorm.DB, id uint, role models.UserRole) error
	AppendCreatedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint) error
	RemoveCreatedCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	Get(ctx context.Context, tx *gorm.DB, userID, courseID uint) (*models.Enrollment, error)
	Exists(ctx context.Context, tx *gorm.DB, userID, courseID uint) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.Enrollment, error)
	Update(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, tx *gorm.DB, token *models.RefreshToken) error
	// Exists reports whether hash is in the user's set and not yet expired
	Exists(ctx context.Context, tx *gorm.DB, userID uint, hash string, now time.Time) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, hash string) (bool, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error
	DeleteExpired(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error)
}

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Course, error)
	Search(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]interface{}) error
	IncrementEnrollCount(ctx context.Context, tx *gorm.DB, id uint) error
	UpdateReviewStats(ctx context.Context, tx *gorm.DB, id uint, stats models.ReviewStats) error
	RecountEnrollments(ctx context.Context, tx *gorm.DB, ids []uint) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// InvalidateCache must be called after commit by writers that passed a
	// transaction; such writes leave the cache untouched
	InvalidateCache(ctx context.Context, ids ...uint)
}

type DraftCourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, draft *models.DraftCourse) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.DraftCourse, error)
	Update(ctx context.Context, tx *gorm.DB, draft *models.DraftCourse) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error
	List(ctx context.Context, tx *gorm.DB, filters DraftFilters) ([]*models.DraftCourse, int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Order, error)
	ListWithDetails(ctx context.Context, tx *gorm.DB, filters OrderFilters) ([]*models.OrderWithDetails, int64, error)
	// Transition applies updates only while the order is still in status from.
	// It returns ErrNotFound for a missing order and ErrStaleState when the
	// order exists in another status.
	Transition(ctx context.Context, tx *gorm.DB, id uint, from models.OrderStatus, updates map[string]interface{}) error
	HasPending(ctx context.Context, tx *gorm.DB, userID, courseID uint) (bool, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error
}

type ReviewRepository interface {
	// Upsert inserts or replaces the review keyed by (course_id, user_id)
	Upsert(ctx context.Context, tx *gorm.DB, review *models.Review) error
	Get(ctx context.Context, tx *gorm.DB, courseID, userID uint) (*models.Review, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.ReviewWithUser, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.Review, error)
	// ComputeStats scans every review of the course
	ComputeStats(ctx context.Context, tx *gorm.DB, courseID uint) (models.ReviewStats, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uint) error
}

// OrderActivity is the slice of an order the dashboard buckets by day
type OrderActivity struct {
	Status    models.OrderStatus
	Amount    float64
	CreatedAt time.Time
	ApproveAt *time.Time
}

type DashboardRepository interface {
	CountUsers(ctx context.Context, tx *gorm.DB) (int64, error)
	CountCourses(ctx context.Context, tx *gorm.DB) (int64, error)
	CountDrafts(ctx context.Context, tx *gorm.DB) (int64, error)
	CountEnrollments(ctx context.Context, tx *gorm.DB) (int64, error)
	CountOrdersByStatus(ctx context.Context, tx *gorm.DB) (map[models.OrderStatus]int64, error)
	// ApprovedRevenue sums approved order amounts, from since when given
	ApprovedRevenue(ctx context.Context, tx *gorm.DB, since *time.Time) (float64, error)
	// OrderActivitySince returns orders placed or approved at or after since
	OrderActivitySince(ctx context.Context, tx *gorm.DB, since time.Time) ([]OrderActivity, error)
}
