package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/deniz/labstock/internal/app/controllers"
	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/middleware"
	"github.com/deniz/labstock/internal/pkg/changefeed"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	componentController *controllers.ComponentController,
	requestController *controllers.RequestController,
	reportController *controllers.ReportController,
	systemController *controllers.SystemController,
	feedHandler *changefeed.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// Health check outside the versioned API
	router.GET("/ping", systemController.Ping)

	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
	}

	// Inbound webhooks are authenticated by the caller's infrastructure, not
	// by user tokens
	v1.POST("/webhooks/:source", systemController.Webhook)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.GET("/users/me", authController.GetProfile)

		// Change feed (token passed as query parameter on the handshake)
		authenticated.GET("/ws/changes", feedHandler.HandleConnection)

		// Component catalog: reads for everyone, writes for mentors
		components := authenticated.Group("/components")
		{
			components.GET("", componentController.ListComponents)
			components.GET("/:id", componentController.GetComponent)

			componentsMentor := components.Group("")
			componentsMentor.Use(authMiddleware.RoleRequired(string(models.RoleMentor)))
			{
				componentsMentor.POST("", componentController.CreateComponent)
				componentsMentor.PUT("/:id", componentController.UpdateComponent)
				componentsMentor.DELETE("/:id", componentController.DeleteComponent)
			}
		}

		// Borrow request lifecycle; only students open requests
		requests := authenticated.Group("/requests")
		{
			requests.POST("", authMiddleware.RoleRequired(string(models.RoleStudent)), requestController.CreateRequest)
			requests.GET("", requestController.ListRequests)
			requests.GET("/:id", requestController.GetRequest)
			requests.POST("/:id/return", requestController.ReturnRequest)

			requestsMentor := requests.Group("")
			requestsMentor.Use(authMiddleware.RoleRequired(string(models.RoleMentor)))
			{
				requestsMentor.POST("/:id/approve", requestController.ApproveRequest)
				requestsMentor.POST("/:id/reject", requestController.RejectRequest)
			}
		}

		// Mentor-only reporting and email relay
		mentorOnly := authenticated.Group("")
		mentorOnly.Use(authMiddleware.RoleRequired(string(models.RoleMentor)))
		{
			mentorOnly.GET("/reports/usage", reportController.UsageReport)
			mentorOnly.POST("/send-email", systemController.SendEmail)
		}
	}
}
