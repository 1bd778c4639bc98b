package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leafscan/backend/internal/apperrors"
	"github.com/leafscan/backend/internal/models"
	"github.com/leafscan/backend/internal/types"
)

var stamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestUpload_Success(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 1<<20)

	data := []byte("fake png bytes")
	detections.On("Upload", mock.Anything, "leaf.png", data, "image/png").Return(&models.DetectionResult{
		ID:         7,
		ImagePath:  "static/uploads/abc_leaf.png",
		Prediction: "Tomato_Late_blight",
		Confidence: 0.87,
		Timestamp:  stamp,
	}, nil)

	body, contentType := multipartBody(t, "file", "leaf.png", "image/png", data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.ResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint(7), resp.ID)
	assert.Equal(t, "Tomato_Late_blight", resp.Prediction)
	assert.InDelta(t, 0.87, resp.Confidence, 1e-9)
	assert.True(t, stamp.Equal(resp.Timestamp))
	assert.NotContains(t, w.Body.String(), "features")
	detections.AssertExpectations(t)
}

func TestUpload_Rejections(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 512)

	t.Run("no file part", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := serve(router, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No file part"}`, w.Body.String())
	})

	t.Run("wrong field name", func(t *testing.T) {
		body, contentType := multipartBody(t, "image", "leaf.png", "image/png", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := serve(router, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No file part"}`, w.Body.String())
	})

	t.Run("no selected file", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := serve(router, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No selected file"}`, w.Body.String())
	})

	t.Run("too large", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "big.png", "image/png", bytes.Repeat([]byte("a"), 4096))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := serve(router, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	detections.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_StorageFailure(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 1<<20)
	detections.On("Upload", mock.Anything, "leaf.png", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewStorageError("Failed to store upload", errors.New("disk full")))

	body, contentType := multipartBody(t, "file", "leaf.png", "image/png", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := serve(router, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to store upload"}`, w.Body.String())
}

func TestListResults(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 1<<20)
	detections.On("List", mock.Anything, 20).Return([]models.DetectionResult{
		{ID: 2, Prediction: "Corn_Common_rust", Confidence: 0.8, Timestamp: stamp},
		{ID: 1, Prediction: "Apple_Apple_scab", Confidence: 0.9, Timestamp: stamp},
	}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp []types.ResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, uint(2), resp[0].ID)
	detections.AssertExpectations(t)
}

func TestListResults_EmptyIsArray(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 1<<20)
	detections.On("List", mock.Anything, 20).Return([]models.DetectionResult{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetResult(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 1<<20)
	detections.On("Get", mock.Anything, uint(3)).
		Return(&models.DetectionResult{ID: 3, Prediction: "Grape_Black_rot", Confidence: 0.89, Timestamp: stamp}, nil)
	detections.On("Get", mock.Anything, uint(99)).
		Return(nil, apperrors.NewNotFoundError("Result not found", nil))

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"found", "/api/result/3", http.StatusOK, ""},
		{"missing", "/api/result/99", http.StatusNotFound, `{"error":"Result not found"}`},
		{"not an integer", "/api/result/abc", http.StatusBadRequest, `{"error":"Invalid result id"}`},
		{"negative", "/api/result/-1", http.StatusBadRequest, `{"error":"Invalid result id"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestSimilarResults(t *testing.T) {
	detections := new(MockDetectionService)
	router, _ := newTestRouter(detections, new(MockGeminiService), 1<<20)
	detections.On("Similar", mock.Anything, uint(4), 5).Return([]models.DetectionResult{{ID: 5}}, nil).Once()
	detections.On("Similar", mock.Anything, uint(4), 20).Return([]models.DetectionResult{}, nil).Once()

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/result/4/similar", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/result/4/similar?limit=500", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/result/4/similar?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	detections.AssertExpectations(t)
}
