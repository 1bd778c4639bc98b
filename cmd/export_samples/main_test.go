package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafscan/backend/config"
	"github.com/leafscan/backend/internal/database"
	"github.com/leafscan/backend/internal/detector"
	"github.com/leafscan/backend/internal/models"
)

func TestExportSamples_RoundTripsThroughSampleTable(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&config.Config{DatabaseURL: "sqlite://" + filepath.Join(dir, "export.db")})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, ""))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.DetectionResult{
		{ImagePath: "a.png", Prediction: "Corn_Common_rust", Confidence: 0.81, Timestamp: base},
		{ImagePath: "b.png", Prediction: "Tomato_Late_blight", Confidence: 0.93, Timestamp: base.Add(time.Hour)},
		{ImagePath: "c.png", Prediction: "Unknown Disease", Confidence: 0.95, Timestamp: base.Add(2 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	var buf bytes.Buffer
	n, err := exportSamples(db, &buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "detection_results.json"), buf.Bytes(), 0o644))
	log, _ := test.NewNullLogger()
	samples := detector.NewSampleTable(dir, log).Load()
	require.Len(t, samples, 2)
	assert.Equal(t, "Tomato_Late_blight", samples[0].Prediction)
	assert.InDelta(t, 0.93, samples[0].Confidence, 1e-9)
}
