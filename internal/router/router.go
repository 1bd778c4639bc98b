package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/leafscan/backend/internal/api"
	"github.com/leafscan/backend/internal/middleware"
	"github.com/leafscan/backend/internal/service"
)

// Dependencies carries everything the routes need.
type Dependencies struct {
	Detections service.IDetectionService
	Gemini     service.IGeminiService
	Sessions   *middleware.SessionManager
	// Redis backs the rate limiters; nil disables limiting.
	Redis *redis.Client
	// Ping reports database health for /health.
	Ping api.Pinger
	Log  logrus.FieldLogger

	AllowedOrigins   []string
	MaxUploadBytes   int64
	RateLimitPerHour int
}

// SetupRouter configures the application routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	router.Use(middleware.RequestLogger(deps.Log))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.MaxBodySize(deps.MaxUploadBytes))

	health := api.HealthCheck(deps.Ping)
	router.GET("/health", health)

	uploadLimiter := middleware.NewUploadRateLimiter(deps.Redis, deps.RateLimitPerHour)
	chatLimiter := middleware.NewChatRateLimiter(deps.Redis, deps.RateLimitPerHour)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", health)
		apiGroup.GET("/catalog", api.Catalog)

		api.NewDetectionHandler(deps.Detections).RegisterRoutes(apiGroup, uploadLimiter)
		api.NewAssistantHandler(deps.Gemini, deps.Sessions).RegisterRoutes(apiGroup, chatLimiter, uploadLimiter)
	}

	return router
}
