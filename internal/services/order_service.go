package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/export"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

type orderService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewOrderService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) OrderService {
	return &orderService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== BUYER OPERATIONS =====

// Create opens a pending order. Enrollment only ever results from an admin
// approving it.
func (s *orderService) Create(ctx context.Context, req *CreateOrderRequest, actor *authz.Actor) (*models.Order, error) {
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
		return nil, ErrOwnCourse
	}

	enrolled, err := s.repo.Enrollment().Exists(ctx, nil, actor.UserID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled || actor.IsEnrolled(course.ID) {
		return nil, ErrAlreadyEnrolled
	}

	pending, err := s.repo.Order().HasPending(ctx, nil, actor.UserID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending orders: %w", err)
	}
	if pending {
		return nil, ErrOrderPending
	}

	if req.Amount < course.Price {
		return nil, NewBusinessRuleError("amount_below_price",
			"order amount is below the course price",
			map[string]interface{}{"amount": req.Amount, "price": course.Price})
	}

	order := &models.Order{
		UserID:        actor.UserID,
		CourseID:      course.ID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentProof:  req.PaymentProof,
		Note:          req.Note,
		Status:        models.OrderPending,
	}
	if err := s.repo.Order().Create(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		"order_id", order.ID,
		"user_id", actor.UserID,
		"course_id", course.ID,
		"amount", order.Amount)

	publishEvent(ctx, s.publisher, s.logger, events.OrderCreated, orderEventData(order, actor.Username, actor.Email, course.Name))
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, actor *authz.Actor, page PageRequest) (*OrderListResponse, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	userID := actor.UserID
	return s.list(ctx, repositories.OrderFilters{UserID: &userID}, page)
}

// Resubmit puts a rejected order back in the queue. The admin's note and
// approval time are cleared; the buyer's note is replaced when given.
func (s *orderService) Resubmit(ctx context.Context, id uint, req *ResubmitOrderRequest, actor *authz.Actor) (*models.Order, error) {
	if req == nil {
		req = &ResubmitOrderRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	order, err := s.repo.Order().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrOrderNotFound)
	}
	if !actor.IsOrderOwner(order) {
		return nil, NewPermissionError(actor.UserID, id, "order", "resubmit", "not order owner")
	}
	if order.Status != models.OrderRejected {
		return nil, ErrOrderNotRejected
	}

	updates := map[string]interface{}{
		"status":          models.OrderPending,
		"note_from_admin": nil,
		"approve_at":      nil,
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}

	if err := s.repo.Order().Transition(ctx, nil, id, models.OrderRejected, updates); err != nil {
		return nil, s.transitionError(err, ErrOrderNotRejected)
	}

	updated, err := s.repo.Order().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrOrderNotFound)
	}

	s.logger.Info("Order resubmitted", "order_id", id, "user_id", actor.UserID)
	publishEvent(ctx, s.publisher, s.logger, events.OrderResubmitted, orderEventData(updated, actor.Username, actor.Email, ""))
	return updated, nil
}

// ===== ADMIN OPERATIONS =====

func (s *orderService) ListAll(ctx context.Context, actor *authz.Actor, status *models.OrderStatus, page PageRequest) (*OrderListResponse, error) {
	if err := requireAdmin(actor, "order", "list"); err != nil {
		return nil, err
	}
	return s.list(ctx, repositories.OrderFilters{Status: status}, page)
}

func (s *orderService) list(ctx context.Context, filters repositories.OrderFilters, page PageRequest) (*OrderListResponse, error) {
	page = page.normalize()
	filters.Limit = page.Size
	filters.Offset = page.offset()

	orders, total, err := s.repo.Order().ListWithDetails(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &OrderListResponse{Orders: orders, Total: total, Page: page.Page, Size: page.Size}, nil
}

// Process approves or rejects a pending order. Approval re-checks the
// buyer's enrollment, then moves the order to approved, creates the
// enrollment and bumps the course's enroll count in one transaction.
func (s *orderService) Process(ctx context.Context, id uint, req *ProcessOrderRequest, actor *authz.Actor) (*models.Order, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireAdmin(actor, "order", "process"); err != nil {
		return nil, err
	}

	order, err := s.repo.Order().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrOrderNotFound)
	}
	if order.Status != models.OrderPending {
		return nil, ErrOrderNotPending
	}

	var note interface{}
	if req.NoteFromAdmin != nil {
		note = *req.NoteFromAdmin
	}

	var courseName string
	switch req.Action {
	case models.OrderActionApprove:
		courseName, err = s.approve(ctx, order, note)
	case models.OrderActionReject:
		err = s.repo.Order().Transition(ctx, nil, id, models.OrderPending, map[string]interface{}{
			"status":          models.OrderRejected,
			"note_from_admin": note,
		})
		if err != nil {
			err = s.transitionError(err, ErrOrderNotPending)
		}
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Order().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrOrderNotFound)
	}

	s.logger.Info("Order processed",
		"order_id", id,
		"action", req.Action,
		"status", updated.Status,
		"admin_id", actor.UserID)

	eventType := events.OrderRejected
	if updated.Status == models.OrderApproved {
		eventType = events.OrderApproved
	}
	var username, email string
	if buyer, err := s.repo.User().GetByID(ctx, nil, updated.UserID); err == nil {
		username, email = buyer.Username, buyer.Email
	}
	if courseName == "" {
		if course, err := s.repo.Course().GetByID(ctx, nil, updated.CourseID); err == nil {
			courseName = course.Name
		}
	}
	publishEvent(ctx, s.publisher, s.logger, eventType, orderEventData(updated, username, email, courseName))

	return updated, nil
}

func (s *orderService) approve(ctx context.Context, order *models.Order, note interface{}) (string, error) {
	var courseName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrolled, err := s.repo.Enrollment().Exists(ctx, tx, order.UserID, order.CourseID)
		if err != nil {
			return err
		}
		if enrolled {
			return ErrAlreadyEnrolled
		}

		course, err := s.repo.Course().GetByID(ctx, tx, order.CourseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}
		courseName = course.Name

		err = s.repo.Order().Transition(ctx, tx, order.ID, models.OrderPending, map[string]interface{}{
			"status":          models.OrderApproved,
			"approve_at":      time.Now().UTC(),
			"note_from_admin": note,
		})
		if err != nil {
			return s.transitionError(err, ErrOrderNotPending)
		}

		enrollment := &models.Enrollment{
			UserID:          order.UserID,
			CourseID:        order.CourseID,
			CompletedVideos: datatypes.JSONSlice[string]{},
		}
		if err := s.repo.Enrollment().Create(ctx, tx, enrollment); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyEnrolled
			}
			return err
		}

		return s.repo.Course().IncrementEnrollCount(ctx, tx, order.CourseID)
	})
	if err != nil {
		return "", err
	}

	s.repo.Course().InvalidateCache(ctx, order.CourseID)
	return courseName, nil
}

func (s *orderService) transitionError(err error, stale error) error {
	switch {
	case repositories.IsNotFoundError(err):
		return ErrOrderNotFound
	case repositories.IsStaleStateError(err):
		return stale
	}
	return err
}

// ExportAll writes every order as an xlsx workbook
func (s *orderService) ExportAll(ctx context.Context, actor *authz.Actor, w io.Writer) error {
	if err := requireAdmin(actor, "order", "export"); err != nil {
		return err
	}

	orders, _, err := s.repo.Order().ListWithDetails(ctx, nil, repositories.OrderFilters{})
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	if err := export.WriteOrders(w, orders); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	s.logger.Info("Orders exported", "count", len(orders), "admin_id", actor.UserID)
	return nil
}

func orderEventData(order *models.Order, username, email, courseName string) events.OrderEventData {
	data := events.OrderEventData{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Username:   username,
		Email:      email,
		CourseID:   order.CourseID,
		CourseName: courseName,
		Amount:     order.Amount,
		Status:     string(order.Status),
	}
	if order.NoteFromAdmin != nil {
		data.NoteFromAdmin = *order.NoteFromAdmin
	}
	return data
}
