package service

import (
	"context"

	"github.com/leafscan/backend/internal/models"
)

// IDetectionService defines the upload and result-history operations
type IDetectionService interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (*models.DetectionResult, error)
	List(ctx context.Context, limit int) ([]models.DetectionResult, error)
	Get(ctx context.Context, id uint) (*models.DetectionResult, error)
	Similar(ctx context.Context, id uint, limit int) ([]models.DetectionResult, error)
}

// IGeminiService defines the generative-AI operations. None of them fail;
// each degrades to a fixed reply.
type IGeminiService interface {
	TreatmentRecommendation(ctx context.Context, disease string) string
	Chat(ctx context.Context, sessionID, message string) string
	ClassifyImage(ctx context.Context, data []byte, mimeType string) (string, float64)
}

var (
	_ IDetectionService = (*DetectionService)(nil)
	_ IGeminiService    = (*GeminiService)(nil)
	_ SessionStore      = (*RedisSessionStore)(nil)
	_ SessionStore      = (*MemorySessionStore)(nil)
)
