package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const (
	defaultDashboardPeriod = 30
	maxDashboardPeriod     = 365
	dashboardTopCourses    = 5
	dashboardDateLayout    = "2006-01-02"
)

// ===== RESPONSE DTOs =====

type DashboardStatsResponse struct {
	Overview   DashboardOverview `json:"overview"`
	Trends     DashboardTrends   `json:"trends"`
	TopCourses []*CourseResponse `json:"top_courses"`
}

type DashboardOverview struct {
	TotalUsers       int64                        `json:"total_users"`
	TotalCourses     int64                        `json:"total_courses"`
	PendingDrafts    int64                        `json:"pending_drafts"`
	TotalEnrollments int64                        `json:"total_enrollments"`
	Orders           map[models.OrderStatus]int64 `json:"orders"`
	Revenue          float64                      `json:"revenue"`
}

type DashboardTrends struct {
	Period         int                  `json:"period"`
	OrdersPlaced   int64                `json:"orders_placed"`
	OrdersApproved int64                `json:"orders_approved"`
	Revenue        float64              `json:"revenue"`
	Daily          []DailyOrderActivity `json:"daily"`
}

type DailyOrderActivity struct {
	Date     string  `json:"date"`
	Placed   int64   `json:"placed"`
	Approved int64   `json:"approved"`
	Revenue  float64 `json:"revenue"`
}

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Stats summarises the marketplace for admins. Trends cover the trailing
// period days, today included.
func (s *dashboardService) Stats(ctx context.Context, actor *authz.Actor, period int) (*DashboardStatsResponse, error) {
	if err := requireAdmin(actor, "dashboard", "read"); err != nil {
		return nil, err
	}
	if period == 0 {
		period = defaultDashboardPeriod
	}
	if period < 0 || period > maxDashboardPeriod {
		return nil, ErrInvalidPeriod
	}

	s.logger.Info("Getting dashboard stats", "period", period, "admin_id", actor.UserID)

	overview, err := s.overview(ctx)
	if err != nil {
		return nil, err
	}

	trends, err := s.trends(ctx, period)
	if err != nil {
		return nil, err
	}

	top, err := s.repo.Course().Search(ctx, nil, repositories.CourseFilters{
		Sort:  repositories.SortEnrollDesc,
		Limit: dashboardTopCourses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get top courses: %w", err)
	}

	return &DashboardStatsResponse{
		Overview:   *overview,
		Trends:     *trends,
		TopCourses: projectCourses(top, nil),
	}, nil
}

func (s *dashboardService) overview(ctx context.Context) (*DashboardOverview, error) {
	dash := s.repo.Dashboard()

	users, err := dash.CountUsers(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	courses, err := dash.CountCourses(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	drafts, err := dash.CountDrafts(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count drafts: %w", err)
	}

	enrollments, err := dash.CountEnrollments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	orders, err := dash.CountOrdersByStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	revenue, err := dash.ApprovedRevenue(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	return &DashboardOverview{
		TotalUsers:       users,
		TotalCourses:     courses,
		PendingDrafts:    drafts,
		TotalEnrollments: enrollments,
		Orders:           orders,
		Revenue:          roundFloat(revenue, 2),
	}, nil
}

func (s *dashboardService) trends(ctx context.Context, period int) (*DashboardTrends, error) {
	today := s.now().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(period - 1))

	activity, err := s.repo.Dashboard().OrderActivitySince(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get order activity: %w", err)
	}

	daily := make([]DailyOrderActivity, period)
	index := make(map[string]int, period)
	for i := range daily {
		date := since.AddDate(0, 0, i).Format(dashboardDateLayout)
		daily[i].Date = date
		index[date] = i
	}

	trends := &DashboardTrends{Period: period}
	for _, a := range activity {
		if i, ok := index[a.CreatedAt.UTC().Format(dashboardDateLayout)]; ok {
			daily[i].Placed++
			trends.OrdersPlaced++
		}
		if a.Status != models.OrderApproved || a.ApproveAt == nil {
			continue
		}
		if i, ok := index[a.ApproveAt.UTC().Format(dashboardDateLayout)]; ok {
			daily[i].Approved++
			daily[i].Revenue += a.Amount
			trends.OrdersApproved++
			trends.Revenue += a.Amount
		}
	}

	for i := range daily {
		daily[i].Revenue = roundFloat(daily[i].Revenue, 2)
	}
	trends.Revenue = roundFloat(trends.Revenue, 2)
	trends.Daily = daily
	return trends, nil
}

func roundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
