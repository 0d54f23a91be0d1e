package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetDashboardStats returns marketplace totals and daily order activity
// @Summary Get dashboard statistics
// @Description Users, courses, drafts, enrollments, orders by status and revenue, plus per-day order activity
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param period query int false "Trend window in days, 1-365 (default: 30)"
// @Success 200 {object} services.DashboardStatsResponse
// @Failure 400 {object} ErrorResponse "Invalid period"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Admin role required"
// @Router /admin/dashboard/stats [get]
func (h *DashboardHandler) GetDashboardStats(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard stats")

	period := 0
	if raw := c.Query("period"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid period"})
			return
		}
		period = p
	}

	stats, err := h.service.Stats(c.Request.Context(), h.actor(c), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
