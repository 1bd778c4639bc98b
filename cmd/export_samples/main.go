// Command export_samples writes stored detection results as a sample table
// that the detector's blend selector can load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/leafscan/backend/config"
	"github.com/leafscan/backend/internal/database"
	"github.com/leafscan/backend/internal/detector"
	"github.com/leafscan/backend/internal/logger"
	"github.com/leafscan/backend/internal/models"
)

type sampleRecord struct {
	ImagePath  string    `json:"image_path"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

func main() {
	out := flag.String("out", filepath.Join("static", "data", "detection_results.json"), "output file")
	limit := flag.Int("limit", 500, "maximum number of results to export")
	flag.Parse()

	log := logger.Component("export_samples")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	db, err := database.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.WithError(err).Fatal("Failed to create output directory")
	}
	f, err := os.Create(*out)
	if err != nil {
		log.WithError(err).Fatal("Failed to create output file")
	}
	defer f.Close()

	n, err := exportSamples(db, f, *limit)
	if err != nil {
		log.WithError(err).Fatal("Failed to export samples")
	}
	log.WithField("path", *out).WithField("count", n).Info("Exported sample predictions")
}

// exportSamples writes the newest results with catalog labels as a JSON array
// and returns how many were written.
func exportSamples(db *gorm.DB, w io.Writer, limit int) (int, error) {
	var results []models.DetectionResult
	if err := db.Order("timestamp DESC").Limit(limit).Find(&results).Error; err != nil {
		return 0, fmt.Errorf("failed to query results: %w", err)
	}

	records := make([]sampleRecord, 0, len(results))
	for _, r := range results {
		if !detector.InCatalog(r.Prediction) {
			continue
		}
		records = append(records, sampleRecord{
			ImagePath:  r.ImagePath,
			Prediction: r.Prediction,
			Confidence: r.Confidence,
			Timestamp:  r.Timestamp,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("failed to write samples: %w", err)
	}
	return len(records), nil
}
