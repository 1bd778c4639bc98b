package types

import "time"

// TreatmentRequest is the body of POST /api/get_treatment.
type TreatmentRequest struct {
	Disease string `json:"disease"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ResultResponse is the public view of a stored detection result.
type ResultResponse struct {
	ID         uint      `json:"id"`
	ImagePath  string    `json:"image_path"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

type TreatmentResponse struct {
	Treatment string `json:"treatment"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// ClassifyResponse carries the vision model's answer. CatalogLabel is set
// when the answer maps onto a catalog label.
type ClassifyResponse struct {
	Prediction   string  `json:"prediction"`
	Confidence   float64 `json:"confidence"`
	CatalogLabel string  `json:"catalog_label,omitempty"`
}

// IndicatorResponse describes one color indicator range in 8-bit HSV.
type IndicatorResponse struct {
	Name  string   `json:"name"`
	Lower [3]uint8 `json:"lower"`
	Upper [3]uint8 `json:"upper"`
}

type CatalogResponse struct {
	Version    string              `json:"version"`
	Labels     []string            `json:"labels"`
	Indicators []IndicatorResponse `json:"indicators"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	CatalogVersion string `json:"catalog_version"`
	Database       string `json:"database"`
}
