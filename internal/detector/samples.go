package detector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// SamplePrediction is one historical (label, confidence) example.
type SamplePrediction struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// SampleTableLocations are the candidate files, relative to the table
// directory, searched in order for sample predictions.
var SampleTableLocations = []string{
	filepath.Join("attached_assets", "detection_results.json"),
	filepath.Join("static", "data", "detection_results.json"),
	"detection_results.json",
}

// DefaultSamples is used when no sample table file can be loaded.
var DefaultSamples = []SamplePrediction{
	{Prediction: "Apple_Apple_scab", Confidence: 0.904},
	{Prediction: "Tomato_Late_blight", Confidence: 0.856},
	{Prediction: "Potato_Healthy", Confidence: 0.736},
	{Prediction: "Grape_Black_rot", Confidence: 0.892},
	{Prediction: "Corn_Common_rust", Confidence: 0.817},
}

// SampleTable loads sample predictions from disk on every call.
type SampleTable struct {
	Dir       string
	Locations []string
	log       logrus.FieldLogger
}

// NewSampleTable returns a table searching the default locations under dir.
func NewSampleTable(dir string, log logrus.FieldLogger) *SampleTable {
	return &SampleTable{Dir: dir, Locations: SampleTableLocations, log: log}
}

// Load returns the samples of the first existing and usable candidate file,
// or DefaultSamples when there is none. The result is never empty.
func (t *SampleTable) Load() []SamplePrediction {
	for _, loc := range t.Locations {
		path := loc
		if t.Dir != "" && !filepath.IsAbs(loc) {
			path = filepath.Join(t.Dir, loc)
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}

		samples, err := readSampleFile(path)
		if err != nil {
			t.log.WithError(err).WithField("path", path).Warn("Skipping sample table")
			continue
		}
		t.log.WithFields(logrus.Fields{
			"path":  path,
			"count": len(samples),
		}).Info("Loaded sample predictions")
		return samples
	}

	out := make([]SamplePrediction, len(DefaultSamples))
	copy(out, DefaultSamples)
	return out
}

// readSampleFile parses a JSON array of records carrying "prediction" and
// "confidence". Records missing either field, or naming a label outside the
// catalog, are dropped. A confidence that is not a number rejects the file.
func readSampleFile(path string) ([]SamplePrediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TableLoadError{Path: path, Err: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &TableLoadError{Path: path, Err: errors.New("invalid JSON")}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, &TableLoadError{Path: path, Err: errors.New("expected a JSON array")}
	}

	var samples []SamplePrediction
	var bad int
	var parseErr error
	for i, item := range doc.Array() {
		pred, conf := item.Get("prediction"), item.Get("confidence")
		if !pred.Exists() || !conf.Exists() {
			continue
		}
		confidence, err := parseConfidence(conf)
		if err != nil {
			parseErr = fmt.Errorf("record %d: %w", i, err)
			break
		}
		label, ok := CanonicalLabel(pred.String())
		if !ok {
			bad++
			continue
		}
		samples = append(samples, SamplePrediction{Prediction: label, Confidence: confidence})
	}
	if parseErr != nil {
		return nil, &TableLoadError{Path: path, Err: parseErr}
	}

	if len(samples) == 0 {
		return nil, &TableLoadError{
			Path: path,
			Err:  fmt.Errorf("no usable records (%d with unknown labels)", bad),
		}
	}
	return samples, nil
}

// parseConfidence accepts a JSON number or a numeric string.
func parseConfidence(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q is not a number", v.Str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("confidence %s is not a number", v.Raw)
	}
}
