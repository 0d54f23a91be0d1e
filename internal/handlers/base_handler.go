package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is returned by operations that have no resource to show
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.GetLogger(c, h.logger).ErrorContext(c.Request.Context(), msg, args...)
}

// actor returns the caller resolved by the credential gate, nil when anonymous
func (h *BaseHandler) actor(c *gin.Context) *authz.Actor {
	v, exists := c.Get(contextActorKey)
	if !exists {
		return nil
	}
	actor, _ := v.(*authz.Actor)
	return actor
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parsePage(c *gin.Context) services.PageRequest {
	var page services.PageRequest
	if p, err := strconv.Atoi(c.Query("page")); err == nil {
		page.Page = p
	}
	if s, err := strconv.Atoi(c.Query("size")); err == nil {
		page.Size = s
	}
	return page
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var rateLimitError *services.RateLimitError
	if errors.As(err, &rateLimitError) {
		seconds := int(math.Ceil(rateLimitError.RetryAfter.Seconds()))
		if seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Message: err.Error(),
			Details: map[string]interface{}{"retry_after_seconds": seconds},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrUpstream):
		h.LogError(c, err, "Upstream dependency failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Upstream service unavailable"})
	default:
		var workflowError *services.WorkflowError
		if errors.As(err, &workflowError) {
			h.LogError(c, err, "Workflow failed", "workflow", workflowError.Workflow, "stage", workflowError.Stage)
		} else {
			h.LogError(c, err, "Unexpected service error")
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
