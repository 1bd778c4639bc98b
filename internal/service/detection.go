package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/leafscan/backend/internal/apperrors"
	"github.com/leafscan/backend/internal/detector"
	"github.com/leafscan/backend/internal/models"
	"github.com/leafscan/backend/internal/storage"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultResultLimit is the number of results returned by history listings.
const DefaultResultLimit = 20

// DetectionService stores uploads, runs the detector on them and keeps the
// result history.
type DetectionService struct {
	db       *gorm.DB
	store    storage.Store
	detector *detector.Detector
	log      logrus.FieldLogger
}

func NewDetectionService(db *gorm.DB, store storage.Store, det *detector.Detector, log logrus.FieldLogger) *DetectionService {
	return &DetectionService{
		db:       db,
		store:    store,
		detector: det,
		log:      log.WithField("component", "detection"),
	}
}

// Upload saves the image, classifies the stored copy and records the result.
// Classification itself never fails; only storage and database errors are
// returned.
func (s *DetectionService) Upload(ctx context.Context, filename string, data []byte, contentType string) (*models.DetectionResult, error) {
	name := storage.ObjectName(filename)
	ref, err := s.store.Save(ctx, name, data, contentType)
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to save file", err)
	}

	var res detector.Result
	rc, err := s.store.Open(ctx, ref)
	if err != nil {
		// The detector turns an unreadable source into a fallback result.
		s.log.WithError(err).WithField("image_path", ref).Warn("Stored upload unreadable")
		res = s.detector.DetectFile(ref)
	} else {
		res = s.detector.Detect(rc)
		rc.Close()
	}

	row := &models.DetectionResult{
		ImagePath:      ref,
		Prediction:     res.Label,
		Confidence:     res.Confidence,
		Source:         res.Source,
		CatalogVersion: detector.CatalogVersion,
	}
	if res.Features != nil {
		vec := pgvector.NewVector(res.Features.Slice())
		row.Features = &vec
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, apperrors.NewStorageError("Failed to save result", err)
	}

	s.log.WithFields(logrus.Fields{
		"id":         row.ID,
		"prediction": row.Prediction,
		"source":     row.Source,
	}).Info("Stored detection result")
	return row, nil
}

// List returns the newest results first.
func (s *DetectionService) List(ctx context.Context, limit int) ([]models.DetectionResult, error) {
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	var results []models.DetectionResult
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to fetch results", err)
	}
	return results, nil
}

// Get returns one result or a not-found error.
func (s *DetectionService) Get(ctx context.Context, id uint) (*models.DetectionResult, error) {
	var result models.DetectionResult
	err := s.db.WithContext(ctx).First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("Result not found", err)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to fetch result", err)
	}
	return &result, nil
}

// Similar returns up to limit other results ordered by feature-vector
// distance to the given one. Without pgvector (SQLite) or without stored
// features it returns the newest results with the same prediction.
func (s *DetectionService) Similar(ctx context.Context, id uint, limit int) ([]models.DetectionResult, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	query := s.db.WithContext(ctx).Where("id <> ?", target.ID).Limit(limit)
	if s.db.Dialector.Name() == "postgres" && target.Features != nil {
		query = query.Where("features IS NOT NULL").Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "features <-> ?", Vars: []interface{}{*target.Features}},
		})
	} else {
		query = query.Where("prediction = ?", target.Prediction).Order("timestamp DESC").Order("id DESC")
	}

	var results []models.DetectionResult
	if err := query.Find(&results).Error; err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("Failed to find results similar to %d", id), err)
	}
	return results, nil
}
