package main

import (
	"context"
	"log"
	"os"
	"time"

	"book-submission-api/config"
	"book-submission-api/controllers"
	"book-submission-api/middleware"
	"book-submission-api/monitor"
	"book-submission-api/routes"
	"book-submission-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, logWriter := config.InitLogging()
	defer logFile.Close()

	// Documents are never stored in plaintext, so a missing key is fatal.
	codec, err := config.LoadDocumentCodec()
	if err != nil {
		log.Fatalf("❌ Document encryption key not configured: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := config.NewStorageBackend(startupCtx)
	if err != nil {
		log.Fatalf("❌ Failed to initialise document storage: %v", err)
	}
	documents := services.NewDocumentStore(backend, codec, config.AllowedDocumentExtensions())

	// Initialize database
	config.InitDB()

	var persister services.SubmissionPersister
	if config.DB != nil {
		store := services.NewGormSubmissionStore(config.DB)
		if os.Getenv("DB_AUTO_MIGRATE") == "true" || config.DatabaseDriver() == "sqlite" {
			if err := store.AutoMigrate(); err != nil {
				log.Fatalf("❌ Failed to migrate submission tables: %v", err)
			}
		}
		persister = store
	}
	repo := services.NewSubmissionRepository(documents, persister)
	if err := repo.Restore(startupCtx); err != nil {
		log.Fatalf("❌ Failed to load submissions: %v", err)
	}

	if config.MailConfigured() {
		repo.SetNotifier(services.NewMailNotifier(config.ReviewerNotifyEmails()))
		log.Printf("📧 Review notifications enabled")
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.LoggerWithWriter(logWriter))

	// Add recovery middleware
	router.Use(gin.RecoveryWithWriter(logWriter))

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Multipart bodies beyond this spill to temp files.
	router.MaxMultipartMemory = 32 << 20

	// Register /logs, /metrics and /monitor before the 404 catch-all in SetupRoutes
	monitor.RegisterLogsRoute(router, config.LogFilePath(), os.Getenv("LOG_ACCESS_TOKEN"))
	monitor.RegisterMetricsRoute(router)
	monitor.RegisterMonitorPage(router)

	// Setup routes
	submissions := controllers.NewSubmissionController(repo, config.MaxUploadBytes())
	routes.SetupRoutes(router, submissions, middleware.AuthMiddleware())

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("🗄️  Database driver: %s", config.DatabaseDriver())
	log.Printf("🔐 Document encryption enabled")

	if ginMode == "release" {
		log.Printf("🏭 Running in production mode")
	} else {
		log.Printf("🔧 Running in development mode")
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
}
