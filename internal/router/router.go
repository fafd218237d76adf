package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizreview-backend/config"
	"github.com/ikkim/bizreview-backend/internal/app/controller"
	"github.com/ikkim/bizreview-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	reviewController       *controller.ReviewController
	companyController      *controller.CompanyController
	notificationController *controller.NotificationController
	authMiddleware         *middleware.AuthMiddleware
	config                 *config.Config
}

func NewRouter(
	reviewController *controller.ReviewController,
	companyController *controller.CompanyController,
	notificationController *controller.NotificationController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		reviewController:       reviewController,
		companyController:      companyController,
		notificationController: notificationController,
		authMiddleware:         authMiddleware,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "BizReview API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Storage.Driver == "local" {
		router.Static(r.config.Storage.LocalBaseURL, r.config.Storage.LocalDir)
	}

	auth := r.authMiddleware.Authenticate()

	v1 := router.Group("/api/v1")
	{
		companies := v1.Group("/companies")
		{
			companies.GET("", r.companyController.ListCompanies)
			companies.GET("/:slug", r.companyController.GetCompany)
			companies.POST("", auth, r.companyController.CreateCompany)
			companies.POST("/:slug/members", auth, r.companyController.AddMember)
		}

		targets := v1.Group("/targets/:kind/:id")
		{
			targets.GET("/reviews", r.reviewController.ListTargetReviews)
			targets.POST("/reviews", auth, r.reviewController.SubmitReview)
			targets.GET("/reviews/me", auth, r.reviewController.GetMyReview)
			targets.GET("/rating", r.reviewController.GetRating)
		}

		reviews := v1.Group("/reviews")
		reviews.Use(auth)
		{
			reviews.PATCH("/:id", r.reviewController.EditReview)
			reviews.DELETE("/:id", r.reviewController.DeleteReview)
			reviews.POST("/:id/reply", r.reviewController.UpsertReply)
			reviews.POST("/:id/media", r.reviewController.UploadMedia)
			reviews.PATCH("/:id/moderation", r.reviewController.ModerateReview)
			reviews.POST("/moderation/bulk", r.reviewController.BulkModerate)
		}

		v1.GET("/users/me/reviews", auth, r.reviewController.ListMyReviews)

		dashboard := v1.Group("/dashboard/targets/:kind/:id")
		dashboard.Use(auth)
		{
			dashboard.GET("/reviews", r.reviewController.ListDashboardReviews)
			dashboard.GET("/reviews/export", r.reviewController.ExportDashboardReviews)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(auth)
		{
			notifications.GET("", r.notificationController.GetNotifications)
			notifications.GET("/unread-count", r.notificationController.GetUnreadCount)
			notifications.PUT("/read-all", r.notificationController.MarkAllAsRead)
			notifications.PUT("/:id/read", r.notificationController.MarkAsRead)
			notifications.DELETE("/:id", r.notificationController.DeleteNotification)
			notifications.GET("/settings", r.notificationController.GetNotificationSettings)
			notifications.PUT("/settings", r.notificationController.UpdateNotificationSettings)
		}

		v1.GET("/ws/notifications", auth, r.notificationController.Connect)

		admin := v1.Group("/admin")
		admin.Use(auth, r.authMiddleware.RequireStaff())
		{
			admin.DELETE("/companies/:id", r.companyController.DeleteCompany)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
