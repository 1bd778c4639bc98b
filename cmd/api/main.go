package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/leafscan/backend/config"
	"github.com/leafscan/backend/internal/database"
	"github.com/leafscan/backend/internal/detector"
	"github.com/leafscan/backend/internal/logger"
	"github.com/leafscan/backend/internal/middleware"
	"github.com/leafscan/backend/internal/router"
	"github.com/leafscan/backend/internal/server"
	"github.com/leafscan/backend/internal/service"
	"github.com/leafscan/backend/internal/storage"
)

func main() {
	log := logger.Component("main")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	gin.SetMode(cfg.Environment.GinMode())

	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.RunMigrations(db, envOr("MIGRATIONS_DIR", "migrations")); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Redis is optional; without it sessions live in memory, the treatment
	// cache is off and rate limiting is skipped.
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without it")
		redisClient = nil
	}
	var sessions service.SessionStore
	if redisClient != nil {
		sessions = service.NewRedisSessionStore(redisClient, service.DefaultSessionPolicy())
	} else {
		sessions = service.NewMemorySessionStore(service.DefaultSessionPolicy())
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize upload storage")
	}

	opts := detector.DefaultOptions()
	opts.BlendProbability = cfg.BlendProbability
	opts.SampleTableDir = cfg.SampleTableDir
	det := detector.New(opts, nil, logger.Logger)

	// Initialize services
	detections := service.NewDetectionService(db, store, det, logger.Logger)
	gemini := service.NewGeminiService(cfg, sessions, redisClient, logger.Logger)
	sessionManager := middleware.NewSessionManager(cfg.SessionSecret, service.DefaultSessionPolicy().TTL, cfg.Environment.IsProduction())

	engine := router.SetupRouter(router.Dependencies{
		Detections:       detections,
		Gemini:           gemini,
		Sessions:         sessionManager,
		Redis:            redisClient,
		Ping:             func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
		Log:              logger.Logger,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		RateLimitPerHour: cfg.RateLimitPerHour,
	})

	srv := server.New(cfg, engine, logger.Logger)

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("Server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
	closeAll(db, redisClient)
	log.Info("Server stopped")
}

func closeAll(db *gorm.DB, redisClient *redis.Client) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
