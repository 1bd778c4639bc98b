package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/leafscan/backend/internal/apperrors"
	"github.com/leafscan/backend/internal/middleware"
	"github.com/leafscan/backend/internal/models"
	"github.com/leafscan/backend/internal/service"
	"github.com/leafscan/backend/internal/types"
)

// DetectionHandler serves image uploads and the result history.
type DetectionHandler struct {
	detections service.IDetectionService
}

func NewDetectionHandler(detections service.IDetectionService) *DetectionHandler {
	return &DetectionHandler{detections: detections}
}

func (h *DetectionHandler) RegisterRoutes(router *gin.RouterGroup, uploadLimiter *middleware.RateLimiter) {
	router.POST("/upload", uploadLimiter.Middleware(), h.Upload)
	router.GET("/results", h.ListResults)
	router.GET("/result/:id", h.GetResult)
	router.GET("/result/:id/similar", h.SimilarResults)
}

// Upload stores the multipart "file" field, classifies it and records the result.
func (h *DetectionHandler) Upload(c *gin.Context) {
	filename, data, contentType, err := readUpload(c)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.detections.Upload(c.Request.Context(), filename, data, contentType)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, toResultResponse(result))
}

// ListResults returns the 20 newest results.
func (h *DetectionHandler) ListResults(c *gin.Context) {
	results, err := h.detections.List(c.Request.Context(), service.DefaultResultLimit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResultResponses(results))
}

func (h *DetectionHandler) GetResult(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.detections.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResultResponse(result))
}

// SimilarResults returns stored results whose features are closest to the
// given result's. The optional "limit" query caps the list at 20.
func (h *DetectionHandler) SimilarResults(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.Error(err)
		return
	}

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.Error(apperrors.NewValidationError("Invalid limit", err))
			return
		}
		limit = min(n, service.DefaultResultLimit)
	}

	results, err := h.detections.Similar(c.Request.Context(), id, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResultResponses(results))
}

// readUpload extracts the "file" part of a multipart request.
func readUpload(c *gin.Context) (string, []byte, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			return "", nil, "", apperrors.NewTooLargeError("File too large", err)
		}
		if errors.Is(err, http.ErrMissingFile) {
			// A file input submitted without a selection arrives as a plain field.
			if form := c.Request.MultipartForm; form != nil {
				if _, ok := form.Value["file"]; ok {
					return "", nil, "", apperrors.NewValidationError("No selected file", nil)
				}
			}
		}
		return "", nil, "", apperrors.NewValidationError("No file part", err)
	}
	if header.Filename == "" {
		return "", nil, "", apperrors.NewValidationError("No selected file", nil)
	}

	data, err := readFileHeader(header)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			return "", nil, "", apperrors.NewTooLargeError("File too large", err)
		}
		return "", nil, "", apperrors.NewValidationError("Failed to read file", err)
	}
	return header.Filename, data, header.Header.Get("Content-Type"), nil
}

func readFileHeader(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperrors.NewValidationError("Invalid result id", err)
	}
	return uint(id), nil
}

func toResultResponse(r *models.DetectionResult) types.ResultResponse {
	return types.ResultResponse{
		ID:         r.ID,
		ImagePath:  r.ImagePath,
		Prediction: r.Prediction,
		Confidence: r.Confidence,
		Timestamp:  r.Timestamp,
	}
}

func toResultResponses(results []models.DetectionResult) []types.ResultResponse {
	out := make([]types.ResultResponse, 0, len(results))
	for i := range results {
		out = append(out, toResultResponse(&results[i]))
	}
	return out
}
