package routes

import (
	"net/http"

	"book-submission-api/controllers"
	"book-submission-api/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the /api/v1 surface. auth guards every route except
// the health check; main passes middleware.AuthMiddleware().
func SetupRoutes(router *gin.Engine, submissions *controllers.SubmissionController, auth gin.HandlerFunc) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"message": "Book Submission API is running",
			})
		})

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(auth)
		{
			books := protected.Group("/submissions")
			{
				// All authenticated users can browse the queue
				books.GET("", submissions.GetSubmissions)
				books.GET("/stats", submissions.GetSubmissionStats)
				books.GET("/:id", submissions.GetSubmission)
				books.GET("/:id/documents/:document_id", submissions.DownloadDocument)

				books.POST("", middleware.RequireRole(middleware.RoleContributor, middleware.RoleAdmin), submissions.CreateSubmission)

				// Only reviewers and admins can decide
				books.POST("/:id/review", middleware.RequireRole(middleware.RoleReviewer, middleware.RoleAdmin), submissions.ReviewSubmission)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found"})
	})
}
