package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	service services.CourseService
	orders  services.OrderService
}

func NewCourseHandler(service services.CourseService, orders services.OrderService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		orders:      orders,
	}
}

// SearchCourses
// @Summary Search courses
// @Description Matches name or tags; content is never revealed in listings
// @Tags courses
// @Produce json
// @Param query query string false "Name or tag fragment"
// @Param min query number false "Minimum price"
// @Param max query number false "Maximum price"
// @Param rating query number false "Minimum average rating"
// @Param sort query string false "price_asc, price_desc, enroll_desc, created_asc or created_desc"
// @Param limit query int false "Maximum results (default: 50, max: 100)"
// @Success 200 {object} services.CourseListResponse
// @Failure 400 {object} ErrorResponse
// @Router /courses/search [get]
func (h *CourseHandler) SearchCourses(c *gin.Context) {
	var req services.CourseSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Searching courses", "query", req.Query, "sort", req.Sort)

	courses, err := h.service.Search(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse
// @Summary Get course
// @Description Video ids are included only for the creator and enrolled users
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	course, err := h.service.GetByID(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// MyCreatedCourses
// @Summary Courses created by the caller
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.CourseListResponse
// @Router /courses/me/created [get]
func (h *CourseHandler) MyCreatedCourses(c *gin.Context) {
	courses, err := h.service.MyCreated(c.Request.Context(), h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// MyEnrolledCourses
// @Summary Courses the caller is enrolled in, with progress
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.EnrolledCourseResponse
// @Router /courses/me/enrolled [get]
func (h *CourseHandler) MyEnrolledCourses(c *gin.Context) {
	courses, err := h.service.MyEnrolled(c.Request.Context(), h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// UpdateCourse
// @Summary Update course
// @Description Creator or admin only. Ratings and enroll counts are derived and cannot be written.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param body body services.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [put]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.service.Update(c.Request.Context(), id, &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse
// @Summary Delete course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [delete]
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, h.actor(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Course deleted"})
}

// Enroll places a pending order for the course
// @Summary Enroll in a course
// @Description Creates a pending order; enrollment happens when an admin approves it
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param body body services.CreateOrderRequest true "Payment details (course_id is taken from the path)"
// @Success 201 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already enrolled or order pending"
// @Failure 422 {object} ErrorResponse "Amount below price"
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CourseID = id

	order, err := h.orders.Create(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}
