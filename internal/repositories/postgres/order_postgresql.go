package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type orderPostgreSQL struct {
	db *gorm.DB
}

func NewOrderPostgreSQL(db *gorm.DB) repositories.OrderRepository {
	return &orderPostgreSQL{db: db}
}

// ===== BASIC CRUD OPERATIONS =====

func (r *orderPostgreSQL) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(order).Error; err != nil {
		return handleDBError(err, "create order")
	}
	return nil
}

func (r *orderPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Order, error) {
	db := getDB(r.db, tx)
	var order models.Order

	if err := db.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, handleDBError(err, "get order by id")
	}

	return &order, nil
}

func (r *orderPostgreSQL) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uint) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Order{}).Error; err != nil {
		return handleDBError(err, "delete user orders")
	}
	return nil
}

// ===== STATE TRANSITIONS =====

func (r *orderPostgreSQL) Transition(ctx context.Context, tx *gorm.DB, id uint, from models.OrderStatus, updates map[string]interface{}) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return handleDBError(result.Error, "transition order")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return handleDBError(err, "transition order")
	}
	if count == 0 {
		return fmt.Errorf("transition order failed: %w", repositories.ErrNotFound)
	}
	return fmt.Errorf("transition order failed: %w", repositories.ErrStaleState)
}

func (r *orderPostgreSQL) HasPending(ctx context.Context, tx *gorm.DB, userID, courseID uint) (bool, error) {
	db := getDB(r.db, tx)
	var count int64

	err := db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.OrderPending).
		Count(&count).Error
	if err != nil {
		return false, handleDBError(err, "check pending order")
	}

	return count > 0, nil
}

// ===== QUERY OPERATIONS =====

func (r *orderPostgreSQL) ListWithDetails(ctx context.Context, tx *gorm.DB, filters repositories.OrderFilters) ([]*models.OrderWithDetails, int64, error) {
	db := getDB(r.db, tx)
	var total int64

	countQuery := applyOrderFilters(db.WithContext(ctx).Model(&models.Order{}), "", filters)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count orders")
	}

	query := db.WithContext(ctx).
		Table("orders AS o").
		Select(`o.*,
			COALESCE(u.username, '') AS username,
			COALESCE(u.email, '') AS email,
			COALESCE(c.name, '') AS course_name,
			COALESCE(c.price, 0) AS course_price,
			COALESCE(c.banner, '') AS banner`).
		Joins("LEFT JOIN users u ON u.id = o.user_id").
		Joins("LEFT JOIN courses c ON c.id = o.course_id")
	query = applyOrderFilters(query, "o.", filters)
	query = applyPagination(query.Order("o.created_at DESC").Order("o.id DESC"), filters.Limit, filters.Offset)

	orders := make([]*models.OrderWithDetails, 0)
	if err := query.Scan(&orders).Error; err != nil {
		return nil, 0, handleDBError(err, "list orders")
	}

	return orders, total, nil
}

func applyOrderFilters(query *gorm.DB, alias string, filters repositories.OrderFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where(alias+"user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where(alias+"status = ?", *filters.Status)
	}
	return query
}
