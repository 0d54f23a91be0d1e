package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	auth  services.AuthService
	reset services.PasswordResetService
}

func NewAuthHandler(auth services.AuthService, reset services.PasswordResetService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		auth:        auth,
		reset:       reset,
	}
}

// Register creates an account and signs it in
// @Summary Register
// @Description Creates a learner account and returns an access/refresh token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.RegisterRequest true "Account data"
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Username or email taken"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginRequest true "Credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Account banned"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a stored refresh token for a new access token
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.RefreshRequest true "Refresh token"
// @Success 200 {object} services.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Refresh(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout revokes a refresh token
// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.RefreshRequest true "Refresh token"
// @Success 200 {object} SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req services.RefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out"})
}

// ChangePassword
// @Summary Change password
// @Description Changes the caller's password and revokes every refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), h.actor(c), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed"})
}

// RequestPasswordReset mails a one-time reset link
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.PasswordResetRequest true "Account email"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Unknown email"
// @Failure 429 {object} ErrorResponse "Requested too recently"
// @Failure 502 {object} ErrorResponse "Token store unavailable"
// @Router /auth/password-reset/request [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req services.PasswordResetRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Password reset email sent"})
}

// ConfirmPasswordReset
// @Summary Reset password with a one-time token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.PasswordResetConfirmRequest true "Token and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Invalid or expired token"
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req services.PasswordResetConfirmRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.reset.ResetPassword(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Password has been reset"})
}
