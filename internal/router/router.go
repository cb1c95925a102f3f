package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/handler"
	"github.com/searchlab/examgen-backend/internal/metrics"
	"github.com/searchlab/examgen-backend/internal/middleware"
	"github.com/searchlab/examgen-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam *handler.ExamHandler
	WS   *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint.
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Rate limiter for generation routes (30 requests per minute per IP).
	// The single-job gate already serializes heavy work; this only blunts
	// request floods.
	examLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── Exam generation ───────────────────────────────────────────────
	exam := router.Group("/exam")
	exam.Use(examLimiter.Middleware())
	{
		exam.POST("/from-topic", handlers.Exam.GenerateFromTopic)
		exam.POST("/from-file", handlers.Exam.GenerateFromFile)
		exam.POST("/regenerate-question/:exam_id/:question_id", handlers.Exam.RegenerateQuestion)
		exam.GET("/presets", handlers.Exam.Presets)
		exam.GET("/:exam_id", handlers.Exam.GetExam)
	}

	// ─── WebSocket variant of the generation stream ────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/exam/generate", handlers.WS.GenerateExam)
	}

	return router
}
