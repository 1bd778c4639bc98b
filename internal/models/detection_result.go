package models

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// DetectionResult is one persisted classification of an uploaded image.
type DetectionResult struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ImagePath  string    `gorm:"size:255;not null" json:"image_path"`
	Prediction string    `gorm:"size:100;not null;index" json:"prediction"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`

	// Source and CatalogVersion are kept for diagnostics and never exposed.
	Source         string `gorm:"size:20" json:"-"`
	CatalogVersion string `gorm:"size:20" json:"-"`

	// Features is NULL for fallback results, which have no extracted vector.
	Features *pgvector.Vector `gorm:"type:vector(11)" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName keeps the table name stable across model renames.
func (DetectionResult) TableName() string {
	return "detection_results"
}

// BeforeCreate stamps results that arrive without a timestamp.
func (r *DetectionResult) BeforeCreate(tx *gorm.DB) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return nil
}
