package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leafscan/backend/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Fixed replies returned when the Gemini API cannot be used.
const (
	ChatReplyMissingKey = "API key missing."
	ChatReplyError      = "Error occurred during chat."
	ChatReplyEmpty      = "No response."
	VisionUnknownLabel  = "Unknown Disease"
	VisionMissingKey    = "API key missing"

	// Gemini does not report a confidence for vision answers.
	VisionConfidence = 0.95

	chatSystemInstruction = "You are a plant health assistant."
	treatmentCacheTTL     = 24 * time.Hour
)

var errMissingKey = errors.New("GEMINI_API_KEY is not set")

// GeminiService talks to the Gemini generateContent REST endpoint. Every
// public method degrades to a fixed reply instead of returning an error.
type GeminiService struct {
	apiKey      string
	apiURL      string
	model       string
	visionModel string
	client      *http.Client
	sessions    SessionStore
	cache       *redis.Client
	log         logrus.FieldLogger
}

// NewGeminiService builds the client. cache may be nil, in which case
// treatment answers are not cached.
func NewGeminiService(cfg *config.Config, sessions SessionStore, cache *redis.Client, log logrus.FieldLogger) *GeminiService {
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set, Gemini features will use fallbacks")
	}
	return &GeminiService{
		apiKey:      cfg.GeminiAPIKey,
		apiURL:      strings.TrimRight(cfg.GeminiAPIURL, "/"),
		model:       cfg.GeminiModel,
		visionModel: cfg.GeminiVisionModel,
		client:      &http.Client{Timeout: 60 * time.Second},
		sessions:    sessions,
		cache:       cache,
		log:         log.WithField("component", "gemini"),
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

// TreatmentRecommendation returns markdown treatment advice for a disease
// label. It falls back to generic advice on any failure.
func (s *GeminiService) TreatmentRecommendation(ctx context.Context, disease string) string {
	name := strings.ReplaceAll(disease, "_", " ")
	log := s.log.WithField("disease", disease)

	cacheKey := "treatment:" + disease
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			return cached
		} else if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warn("Treatment cache unavailable")
		}
	}

	prompt := fmt.Sprintf(`You are a plant disease expert. Provide treatment recommendations for plants affected by %s.
Follow this structure in your response:
1. Brief description of the disease
2. Symptoms
3. Treatment recommendations (organic and chemical options)
4. Prevention tips

Keep your response informative but concise (less than 500 words).`, name)

	text, err := s.generate(ctx, s.model, geminiRequest{
		Contents: []geminiContent{{Role: RoleUser, Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		log.WithError(err).Error("Error generating treatment recommendations")
		return FallbackTreatment(disease)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, text, treatmentCacheTTL).Err(); err != nil {
			log.WithError(err).Warn("Failed to cache treatment")
		}
	}
	return text
}

// FallbackTreatment is the generic advice used when Gemini is unavailable.
func FallbackTreatment(disease string) string {
	name := strings.ReplaceAll(disease, "_", " ")
	return fmt.Sprintf(`# Treatment Recommendations for %s

## Description
This is a common plant disease that affects crops and ornamental plants.

## Symptoms
- Discoloration of leaves
- Spots or lesions
- Wilting or stunted growth

## Treatment
- Remove affected plant parts
- Apply appropriate fungicide or insecticide
- Ensure proper plant nutrition

## Prevention
- Rotate crops
- Use disease-resistant varieties
- Maintain good air circulation
- Water at the base of plants to keep foliage dry

*Note: These are general recommendations. For specific treatment, please consult with a local agricultural extension service.*
`, name)
}

// Chat sends message within the session's conversation and records both
// sides of the exchange.
func (s *GeminiService) Chat(ctx context.Context, sessionID, message string) string {
	if s.apiKey == "" {
		return ChatReplyMissingKey
	}
	log := s.log.WithField("session_id", sessionID)

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		log.WithError(err).Error("Chat error")
		return ChatReplyError
	}

	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, geminiContent{Role: turn.Role, Parts: []geminiPart{{Text: turn.Text}}})
	}
	contents = append(contents, geminiContent{Role: RoleUser, Parts: []geminiPart{{Text: message}}})

	reply, err := s.generate(ctx, s.model, geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: chatSystemInstruction}}},
		Contents:          contents,
	})
	if err != nil {
		log.WithError(err).Error("Chat error")
		return ChatReplyError
	}
	if reply == "" {
		return ChatReplyEmpty
	}

	if err := s.sessions.Append(ctx, sessionID,
		ChatTurn{Role: RoleUser, Text: message},
		ChatTurn{Role: RoleModel, Text: reply},
	); err != nil {
		log.WithError(err).Warn("Failed to save chat history")
	}
	return reply
}

// ClassifyImage asks the vision model to name the disease in an image. The
// confidence is fixed because the API does not report one.
func (s *GeminiService) ClassifyImage(ctx context.Context, data []byte, mimeType string) (string, float64) {
	if s.apiKey == "" {
		return VisionMissingKey, 0
	}

	prompt := "You are an expert plant pathologist. Identify the disease in this plant image, " +
		"and respond only with the disease name (e.g., 'Tomato Late Blight'). " +
		"If it's healthy, say 'Healthy Plant'."

	text, err := s.generate(ctx, s.visionModel, geminiRequest{
		Contents: []geminiContent{{
			Role: RoleUser,
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
			},
		}},
	})
	if err != nil || text == "" {
		s.log.WithError(err).Error("Gemini Vision classification error")
		return VisionUnknownLabel, 0
	}
	return strings.TrimSpace(text), VisionConfidence
}

// generate posts req to the model and returns the first candidate's text.
func (s *GeminiService) generate(ctx context.Context, model string, req geminiRequest) (string, error) {
	if s.apiKey == "" {
		return "", errMissingKey
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.apiURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = string(body)
		}
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, msg)
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		reason := gjson.GetBytes(body, "promptFeedback.blockReason").String()
		if reason != "" {
			return "", fmt.Errorf("prompt blocked: %s", reason)
		}
		return "", fmt.Errorf("no candidates in response")
	}
	return text.String(), nil
}
