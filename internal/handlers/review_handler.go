package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type ReviewHandler struct {
	BaseHandler
	service services.ReviewService
}

func NewReviewHandler(service services.ReviewService, logger utils.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// UpsertReview creates or replaces the caller's review of a course
// @Summary Review a course
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpsertReviewRequest true "Rating 1-5 and optional comment"
// @Success 200 {object} models.Review
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not enrolled, or reviewing own course"
// @Failure 404 {object} ErrorResponse
// @Router /reviews [post]
func (h *ReviewHandler) UpsertReview(c *gin.Context) {
	var req services.UpsertReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.service.Upsert(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// ListCourseReviews
// @Summary Reviews of a course
// @Tags reviews
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} services.ReviewListResponse
// @Failure 404 {object} ErrorResponse
// @Router /reviews/course/{id} [get]
func (h *ReviewHandler) ListCourseReviews(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	reviews, err := h.service.ListByCourse(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// ListUserReviews
// @Summary Reviews written by a user
// @Tags reviews
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Review
// @Router /reviews/user/{id} [get]
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	reviews, err := h.service.ListByUser(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// CourseReviewStats
// @Summary Rating aggregates of a course
// @Tags reviews
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} models.ReviewStats
// @Failure 404 {object} ErrorResponse
// @Router /reviews/stats/{id} [get]
func (h *ReviewHandler) CourseReviewStats(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
