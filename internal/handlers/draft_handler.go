package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type DraftHandler struct {
	BaseHandler
	service services.DraftService
}

func NewDraftHandler(service services.DraftService, logger utils.Logger) *DraftHandler {
	return &DraftHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateDraft submits a course draft for review
// @Summary Submit a draft
// @Description Section content holds YouTube ids or URLs; they are resolved on approval
// @Tags drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateDraftRequest true "Draft"
// @Success 201 {object} models.DraftCourse
// @Failure 400 {object} ErrorResponse
// @Router /drafts [post]
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req services.CreateDraftRequest
	if !h.bindJSON(c, &req) {
		return
	}

	draft, err := h.service.Create(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, draft)
}

// ListMyDrafts
// @Summary List own drafts
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} services.DraftListResponse
// @Router /drafts [get]
func (h *DraftHandler) ListMyDrafts(c *gin.Context) {
	drafts, err := h.service.ListMine(c.Request.Context(), h.actor(c), h.parsePage(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, drafts)
}

// GetDraft
// @Summary Get draft
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Draft ID"
// @Success 200 {object} models.DraftCourse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{id} [get]
func (h *DraftHandler) GetDraft(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	draft, err := h.service.Get(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// UpdateDraft
// @Summary Update own draft
// @Tags drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Draft ID"
// @Param body body services.UpdateDraftRequest true "Fields to change"
// @Success 200 {object} models.DraftCourse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{id} [put]
func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateDraftRequest
	if !h.bindJSON(c, &req) {
		return
	}

	draft, err := h.service.Update(c.Request.Context(), id, &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// DeleteDraft
// @Summary Withdraw own draft
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Draft ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /drafts/{id} [delete]
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, h.actor(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Draft deleted"})
}

// ===== ADMIN =====

// ListAllDrafts
// @Summary List drafts awaiting review
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} services.DraftListResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/drafts [get]
func (h *DraftHandler) ListAllDrafts(c *gin.Context) {
	drafts, err := h.service.ListAll(c.Request.Context(), h.actor(c), h.parsePage(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, drafts)
}

// ApproveDraft publishes a draft as a course
// @Summary Approve draft
// @Description Resolves every video reference, creates the course and removes the draft atomically
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Draft ID"
// @Success 201 {object} services.DraftApprovalResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Video metadata lookup failed"
// @Router /admin/drafts/{id}/approve [post]
func (h *DraftHandler) ApproveDraft(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Approving draft", "draft_id", id)

	resp, err := h.service.Approve(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// RejectDraft
// @Summary Reject draft
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Draft ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/drafts/{id}/reject [post]
func (h *DraftHandler) RejectDraft(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Reject(c.Request.Context(), id, h.actor(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Draft rejected"})
}
