package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepverse/mockportal-backend/internal/config"
	"github.com/prepverse/mockportal-backend/internal/handler"
	"github.com/prepverse/mockportal-backend/internal/middleware"
	"github.com/prepverse/mockportal-backend/internal/response"
	"github.com/prepverse/mockportal-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Attempt *handler.AttemptHandler
	History *handler.HistoryHandler
	Admin   *handler.AdminHandler
	Media   *handler.MediaHandler
	Monitor *handler.MonitorHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded question images statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", "./uploads")
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/signup", handlers.Auth.StudentSignup)
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Catalog
		studentAPI.GET("/tests", handlers.Catalog.ListTests)
		studentAPI.GET("/tests/categories", handlers.Catalog.ListCategories)
		studentAPI.GET("/tests/:test_id/leaderboard", handlers.History.GetLeaderboard)

		// Attempt lifecycle
		studentAPI.POST("/tests/:test_id/start", handlers.Attempt.StartAttempt)
		studentAPI.GET("/attempt/saved", handlers.Attempt.GetResumeOffer)
		studentAPI.POST("/attempt/resume", handlers.Attempt.ResumeAttempt)
		studentAPI.DELETE("/attempt/saved", handlers.Attempt.DiscardSaved)

		// Live attempt operations
		studentAPI.GET("/attempt", handlers.Attempt.GetState)
		studentAPI.POST("/attempt/answer", handlers.Attempt.Answer)
		studentAPI.POST("/attempt/clear", handlers.Attempt.ClearAnswer)
		studentAPI.POST("/attempt/next", handlers.Attempt.SaveAndNext)
		studentAPI.POST("/attempt/mark", handlers.Attempt.MarkAndNext)
		studentAPI.POST("/attempt/navigate", handlers.Attempt.Navigate)
		studentAPI.POST("/attempt/violation", handlers.Attempt.ReportViolation)
		studentAPI.POST("/attempt/submit", handlers.Attempt.Submit)

		// History
		studentAPI.GET("/history", handlers.History.GetMyHistory)
	}

	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempt/stream", handlers.WS.ProctorStream)
	}

	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Catalog management
		adminAPI.POST("/tests", handlers.Admin.CreateTest)
		adminAPI.GET("/tests/:test_id", handlers.Admin.GetTestWithQuestions)
		adminAPI.DELETE("/tests/:test_id", handlers.Admin.DeleteTest)
		adminAPI.PUT("/tests/:test_id/questions", handlers.Admin.ReplaceQuestions)

		// Reports and live monitoring
		adminAPI.GET("/history", handlers.History.GetAllHistory)
		adminAPI.GET("/tests/:test_id/report", handlers.History.GetTestReport)
		adminAPI.GET("/tests/:test_id/monitor", handlers.Monitor.MonitorTestSSE)

		// Signup approval queue
		adminAPI.GET("/students/pending", handlers.Admin.ListPendingStudents)
		adminAPI.POST("/students/:id/approve", handlers.Admin.ApproveStudent)
		adminAPI.POST("/students/:id/reject", handlers.Admin.RejectStudent)
		adminAPI.POST("/students/:id/reset-session", handlers.Admin.ResetStudentSession)

		// Media upload
		adminAPI.POST("/media/questions", handlers.Media.UploadQuestionImage)
	}

	return router
}
