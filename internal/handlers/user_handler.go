package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type UserHandler struct {
	BaseHandler
	service services.UserService
}

func NewUserHandler(service services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetMe returns the caller's profile
// @Summary Get own profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetUser returns a user's public profile
// @Summary Get public profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} services.PublicUserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := h.service.GetPublicProfile(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProgress records a watched video
// @Summary Update course progress
// @Description Marks a video as watched and, when completed is set, as finished
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param body body services.UpdateProgressRequest true "Video progress"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not enrolled"
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/progress [put]
func (h *UserHandler) UpdateProgress(c *gin.Context) {
	courseID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	enrollment, err := h.service.UpdateProgress(c.Request.Context(), h.actor(c), courseID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// ===== ADMIN =====

// ListUsers
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Username or email fragment"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} services.UserListResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	users, err := h.service.List(c.Request.Context(), h.actor(c), c.Query("q"), h.parsePage(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// SetRole
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateRoleRequest true "New role"
// @Success 200 {object} services.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Admins cannot change their own role"
// @Router /admin/users/{id}/role [put]
func (h *UserHandler) SetRole(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.service.SetRole(c.Request.Context(), h.actor(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// BanUser
// @Summary Ban a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} services.UserResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/ban [post]
func (h *UserHandler) BanUser(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.service.Ban(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser
// @Summary Delete a user
// @Description Removes the account with its tokens, enrollments, drafts and orders
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), h.actor(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "User deleted"})
}
