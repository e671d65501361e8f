package router

import (
	"net/http"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/handler"
	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Proctor *handler.ProctorHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for admission and login (30 requests per minute per IP).
	// Keeps name/password guessing on the public endpoints slow.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Exams Group (Public, Rate Limited) ─────────────────────────
	exams := router.Group("/api/v1/exams")
	{
		exams.GET("/:serial", handlers.Exam.GetExam)
		exams.POST("/:serial/start", authLimiter.Middleware(), handlers.Exam.StartExam)
	}

	// ─── 2. Exam Session Group (Exam Token) ────────────────────────────
	// The :serial here is the exam serial; the session serial rides in
	// the token. The check endpoint is polled once per second while the
	// participant waits for a proctor.
	sessionAPI := router.Group("/api/v1/exam-session/:serial")
	sessionAPI.Use(middleware.RequireExamToken(authService))
	{
		sessionAPI.GET("/check", handlers.Exam.CheckAuthorization)
		sessionAPI.GET("/questions", handlers.Exam.GetSessionQuestions)
		sessionAPI.GET("/questions/:id", handlers.Exam.GetSessionQuestion)
		sessionAPI.POST("/questions/:id", handlers.Exam.SaveAnswer)
		sessionAPI.POST("/submit", handlers.Exam.SubmitExam)
	}

	// ─── 3. Proctor Group (Proctor JWT) ────────────────────────────────
	proctorAPI := router.Group("/api/v1/proctor")
	{
		proctorAPI.POST("/login", authLimiter.Middleware(), handlers.Proctor.Login)

		authed := proctorAPI.Group("")
		authed.Use(middleware.RequireProctorJWT(authService))
		{
			authed.GET("/sessions/:serial/check", handlers.Proctor.CheckSession)
			authed.POST("/sessions/:serial/authorize", handlers.Proctor.AuthorizeSession)
		}
	}

	// ─── 4. WebSocket Group (Proctor WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireProctorWSAuth(authService))
	{
		ws.GET("/proctor/exams/:serial/monitor", handlers.Monitor.MonitorExamWS)
	}

	return router
}
