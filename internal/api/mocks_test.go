package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leafscan/backend/internal/middleware"
	"github.com/leafscan/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockDetectionService struct {
	mock.Mock
}

func (m *MockDetectionService) Upload(ctx context.Context, filename string, data []byte, contentType string) (*models.DetectionResult, error) {
	args := m.Called(ctx, filename, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DetectionResult), args.Error(1)
}

func (m *MockDetectionService) List(ctx context.Context, limit int) ([]models.DetectionResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DetectionResult), args.Error(1)
}

func (m *MockDetectionService) Get(ctx context.Context, id uint) (*models.DetectionResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DetectionResult), args.Error(1)
}

func (m *MockDetectionService) Similar(ctx context.Context, id uint, limit int) ([]models.DetectionResult, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DetectionResult), args.Error(1)
}

type MockGeminiService struct {
	mock.Mock
}

func (m *MockGeminiService) TreatmentRecommendation(ctx context.Context, disease string) string {
	return m.Called(ctx, disease).String(0)
}

func (m *MockGeminiService) Chat(ctx context.Context, sessionID, message string) string {
	return m.Called(ctx, sessionID, message).String(0)
}

func (m *MockGeminiService) ClassifyImage(ctx context.Context, data []byte, mimeType string) (string, float64) {
	args := m.Called(ctx, data, mimeType)
	return args.String(0), args.Get(1).(float64)
}

// newTestRouter mounts the handlers behind the error middleware with a body cap.
func newTestRouter(detections *MockDetectionService, gemini *MockGeminiService, maxBody int64) (*gin.Engine, *middleware.SessionManager) {
	sessions := middleware.NewSessionManager("test-secret", time.Hour, false)
	router := gin.New()
	router.Use(middleware.ErrorHandler(), middleware.MaxBodySize(maxBody))
	group := router.Group("/api")
	NewDetectionHandler(detections).RegisterRoutes(group, nil)
	NewAssistantHandler(gemini, sessions).RegisterRoutes(group, nil, nil)
	group.GET("/catalog", Catalog)
	return router, sessions
}

// multipartBody builds a form with one file part named field.
func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	// an empty filename is what browsers send when nothing was selected
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
