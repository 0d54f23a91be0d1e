package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderHandler struct {
	BaseHandler
	service services.OrderService
}

func NewOrderHandler(service services.OrderService, logger utils.Logger) *OrderHandler {
	return &OrderHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateOrder
// @Summary Place an order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateOrderRequest true "Order"
// @Success 201 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.service.Create(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ListMyOrders
// @Summary List own orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} services.OrderListResponse
// @Router /orders/me [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.service.ListMine(c.Request.Context(), h.actor(c), h.parsePage(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// ResubmitOrder
// @Summary Resubmit a rejected order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param body body services.ResubmitOrderRequest false "Updated note"
// @Success 200 {object} models.Order
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Order is not rejected"
// @Router /orders/{id}/resubmit [put]
func (h *OrderHandler) ResubmitOrder(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ResubmitOrderRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	order, err := h.service.Resubmit(c.Request.Context(), id, &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ===== ADMIN =====

// ListAllOrders
// @Summary List orders
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} services.OrderListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/orders [get]
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	var status *models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s := models.OrderStatus(raw)
		switch s {
		case models.OrderPending, models.OrderApproved, models.OrderRejected:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid status",
				Details: raw,
			})
			return
		}
	}

	orders, err := h.service.ListAll(c.Request.Context(), h.actor(c), status, h.parsePage(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// ExportOrders
// @Summary Export every order as a spreadsheet
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /admin/orders/export [get]
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.ExportAll(c.Request.Context(), h.actor(c), &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ProcessOrder approves or rejects a pending order
// @Summary Process order
// @Description Approval enrolls the buyer; both outcomes notify the buyer by email
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param body body services.ProcessOrderRequest true "Decision"
// @Success 200 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Order not pending or buyer already enrolled"
// @Router /admin/orders/{id}/process [post]
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ProcessOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Processing order", "order_id", id, "action", req.Action)

	order, err := h.service.Process(c.Request.Context(), id, &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
