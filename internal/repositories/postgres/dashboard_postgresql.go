package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type dashboardPostgreSQL struct {
	db *gorm.DB
}

func NewDashboardPostgreSQL(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardPostgreSQL{db: db}
}

func (r *dashboardPostgreSQL) count(ctx context.Context, tx *gorm.DB, model interface{}, op string) (int64, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).Model(model).Count(&count).Error; err != nil {
		return 0, handleDBError(err, op)
	}
	return count, nil
}

func (r *dashboardPostgreSQL) CountUsers(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.User{}, "count users")
}

func (r *dashboardPostgreSQL) CountCourses(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.Course{}, "count courses")
}

func (r *dashboardPostgreSQL) CountDrafts(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.DraftCourse{}, "count drafts")
}

func (r *dashboardPostgreSQL) CountEnrollments(ctx context.Context, tx *gorm.DB) (int64, error) {
	return r.count(ctx, tx, &models.Enrollment{}, "count enrollments")
}

func (r *dashboardPostgreSQL) CountOrdersByStatus(ctx context.Context, tx *gorm.DB) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Total  int64
	}

	err := getDB(r.db, tx).WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, handleDBError(err, "count orders by status")
	}

	counts := map[models.OrderStatus]int64{
		models.OrderPending:  0,
		models.OrderApproved: 0,
		models.OrderRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *dashboardPostgreSQL) ApprovedRevenue(ctx context.Context, tx *gorm.DB, since *time.Time) (float64, error) {
	var total float64

	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", models.OrderApproved)
	if since != nil {
		query = query.Where("approve_at >= ?", *since)
	}

	if err := query.Scan(&total).Error; err != nil {
		return 0, handleDBError(err, "sum approved revenue")
	}
	return total, nil
}

func (r *dashboardPostgreSQL) OrderActivitySince(ctx context.Context, tx *gorm.DB, since time.Time) ([]repositories.OrderActivity, error) {
	var orders []models.Order

	err := getDB(r.db, tx).WithContext(ctx).
		Select("status", "amount", "created_at", "approve_at").
		Where("created_at >= ? OR approve_at >= ?", since, since).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, handleDBError(err, "list order activity")
	}

	activity := make([]repositories.OrderActivity, len(orders))
	for i, o := range orders {
		activity[i] = repositories.OrderActivity{
			Status:    o.Status,
			Amount:    o.Amount,
			CreatedAt: o.CreatedAt,
			ApproveAt: o.ApproveAt,
		}
	}
	return activity, nil
}
