package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leafscan/backend/internal/apperrors"
	"github.com/leafscan/backend/internal/detector"
	"github.com/leafscan/backend/internal/logger"
	"github.com/leafscan/backend/internal/middleware"
	"github.com/leafscan/backend/internal/service"
	"github.com/leafscan/backend/internal/types"
)

// AssistantHandler serves the Gemini-backed endpoints.
type AssistantHandler struct {
	gemini   service.IGeminiService
	sessions *middleware.SessionManager
}

func NewAssistantHandler(gemini service.IGeminiService, sessions *middleware.SessionManager) *AssistantHandler {
	return &AssistantHandler{gemini: gemini, sessions: sessions}
}

func (h *AssistantHandler) RegisterRoutes(router *gin.RouterGroup, chatLimiter, uploadLimiter *middleware.RateLimiter) {
	router.POST("/get_treatment", chatLimiter.Middleware(), h.GetTreatment)
	router.POST("/chat", chatLimiter.Middleware(), h.sessions.Middleware(), h.Chat)
	router.POST("/classify/ai", uploadLimiter.Middleware(), h.ClassifyAI)
}

func (h *AssistantHandler) GetTreatment(c *gin.Context) {
	var req types.TreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Disease) == "" {
		c.Error(apperrors.NewValidationError("Disease name is required", err))
		return
	}

	treatment := h.gemini.TreatmentRecommendation(c.Request.Context(), strings.TrimSpace(req.Disease))
	c.JSON(http.StatusOK, types.TreatmentResponse{Treatment: treatment})
}

// Chat answers a message within a session. The session id comes from the
// body, then the signed cookie, and is generated when neither is present.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.Error(apperrors.NewValidationError("Message is required", err))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetString(middleware.SessionContextKey)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := h.sessions.SetCookie(c, sessionID); err != nil {
		logger.Component("http").WithError(err).Warn("Failed to issue session cookie")
	}

	reply := h.gemini.Chat(c.Request.Context(), sessionID, req.Message)
	c.JSON(http.StatusOK, types.ChatResponse{Response: reply, SessionID: sessionID})
}

// ClassifyAI asks the vision model to name the disease in an uploaded image.
func (h *AssistantHandler) ClassifyAI(c *gin.Context) {
	_, data, contentType, err := readUpload(c)
	if err != nil {
		c.Error(err)
		return
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	label, confidence := h.gemini.ClassifyImage(c.Request.Context(), data, contentType)
	resp := types.ClassifyResponse{Prediction: label, Confidence: confidence}
	if confidence > 0 {
		if canonical, ok := detector.CanonicalLabel(label); ok {
			resp.CatalogLabel = canonical
		}
	}
	c.JSON(http.StatusOK, resp)
}
