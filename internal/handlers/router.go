package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

type HandlerManager struct {
	authHandler      *AuthHandler
	userHandler      *UserHandler
	courseHandler    *CourseHandler
	draftHandler     *DraftHandler
	orderHandler     *OrderHandler
	reviewHandler    *ReviewHandler
	dashboardHandler *DashboardHandler
	gate             *CredentialGate

	serviceManager services.ServiceManager
	serviceName    string
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, serviceName string) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), serviceManager.PasswordReset(), logger),
		userHandler:      NewUserHandler(serviceManager.User(), logger),
		courseHandler:    NewCourseHandler(serviceManager.Course(), serviceManager.Order(), logger),
		draftHandler:     NewDraftHandler(serviceManager.Draft(), logger),
		orderHandler:     NewOrderHandler(serviceManager.Order(), logger),
		reviewHandler:    NewReviewHandler(serviceManager.Review(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		gate:             NewCredentialGate(serviceManager.Auth(), logger),
		serviceManager:   serviceManager,
		serviceName:      serviceName,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	authenticated := hm.gate.Authenticate()
	optional := hm.gate.Optional()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", hm.authHandler.Register)
			auth.POST("/login", hm.authHandler.Login)
			auth.POST("/refresh", hm.authHandler.Refresh)
			auth.POST("/logout", hm.authHandler.Logout)
			auth.POST("/change-password", authenticated, hm.authHandler.ChangePassword)
			auth.POST("/password-reset/request", hm.authHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", hm.authHandler.ConfirmPasswordReset)
		}

		users := v1.Group("/users")
		{
			users.GET("/me", authenticated, hm.userHandler.GetMe)
			users.GET("/:id", hm.userHandler.GetUser)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("/search", hm.courseHandler.SearchCourses)
			courses.GET("/me/created", authenticated, hm.courseHandler.MyCreatedCourses)
			courses.GET("/me/enrolled", authenticated, hm.courseHandler.MyEnrolledCourses)
			courses.GET("/:id", optional, hm.courseHandler.GetCourse)
			courses.PUT("/:id", authenticated, hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", authenticated, hm.courseHandler.DeleteCourse)
			courses.PUT("/:id/progress", authenticated, hm.userHandler.UpdateProgress)
			courses.POST("/:id/enroll", authenticated, hm.courseHandler.Enroll)
		}

		drafts := v1.Group("/drafts")
		drafts.Use(authenticated)
		{
			drafts.POST("", hm.draftHandler.CreateDraft)
			drafts.GET("", hm.draftHandler.ListMyDrafts)
			drafts.GET("/:id", hm.draftHandler.GetDraft)
			drafts.PUT("/:id", hm.draftHandler.UpdateDraft)
			drafts.DELETE("/:id", hm.draftHandler.DeleteDraft)
		}

		orders := v1.Group("/orders")
		orders.Use(authenticated)
		{
			orders.POST("", hm.orderHandler.CreateOrder)
			orders.GET("/me", hm.orderHandler.ListMyOrders)
			orders.PUT("/:id/resubmit", hm.orderHandler.ResubmitOrder)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.POST("", authenticated, hm.reviewHandler.UpsertReview)
			reviews.GET("/course/:id", hm.reviewHandler.ListCourseReviews)
			reviews.GET("/user/:id", hm.reviewHandler.ListUserReviews)
			reviews.GET("/stats/:id", hm.reviewHandler.CourseReviewStats)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(authenticated, hm.gate.RequireAdmin())
		{
			admin.GET("/users", hm.userHandler.ListUsers)
			admin.PUT("/users/:id/role", hm.userHandler.SetRole)
			admin.POST("/users/:id/ban", hm.userHandler.BanUser)
			admin.DELETE("/users/:id", hm.userHandler.DeleteUser)

			admin.GET("/drafts", hm.draftHandler.ListAllDrafts)
			admin.POST("/drafts/:id/approve", hm.draftHandler.ApproveDraft)
			admin.POST("/drafts/:id/reject", hm.draftHandler.RejectDraft)

			admin.GET("/orders", hm.orderHandler.ListAllOrders)
			admin.GET("/orders/export", hm.orderHandler.ExportOrders)
			admin.POST("/orders/:id/process", hm.orderHandler.ProcessOrder)

			admin.GET("/dashboard/stats", hm.dashboardHandler.GetDashboardStats)
		}
	}

	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": hm.serviceName,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": hm.serviceName,
	})
}
