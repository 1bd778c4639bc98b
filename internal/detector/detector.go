// Package detector implements the heuristic plant-disease classifier: canonical
// image loading, color and texture feature extraction, rule-based
// classification and the sample-blend selector.
package detector

import (
	"image"
	"io"
	"math"

	"github.com/sirupsen/logrus"
)

// Result sources.
const (
	SourceHeuristic = "heuristic"
	SourceSample    = "sample"
	SourceFallback  = "fallback"
)

// Defaults for the blend selector.
const (
	DefaultBlendProbability = 0.3
	DefaultConfidenceFloor  = 0.75
)

// State names a step of a detection run; used in diagnostics.
type State string

const (
	StateLoading           State = "loading"
	StateFeatureExtraction State = "feature_extraction"
	StateClassifying       State = "classifying"
	StateBlendDecision     State = "blend_decision"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Result is the outcome of a detection run.
type Result struct {
	Label      string
	Confidence float64
	// Source tells whether the label came from the heuristic, the blend
	// selector or the error fallback. It is diagnostic only.
	Source   string
	Features *FeatureVector
}

// Options configures a Detector.
type Options struct {
	BlendProbability float64
	ConfidenceFloor  float64
	SampleTableDir   string
}

// DefaultOptions returns the production configuration.
func DefaultOptions() Options {
	return Options{
		BlendProbability: DefaultBlendProbability,
		ConfidenceFloor:  DefaultConfidenceFloor,
	}
}

// Detector runs the full detection flow. It holds no per-call state and is
// safe for concurrent use when its Random is.
type Detector struct {
	opts    Options
	rng     Random
	samples *SampleTable
	log     logrus.FieldLogger
}

// New builds a Detector. A nil rng gets a time-seeded generator; a nil log
// gets the standard logrus logger.
func New(opts Options, rng Random, log logrus.FieldLogger) *Detector {
	if rng == nil {
		rng = NewTimeSeededRandom()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.ConfidenceFloor <= 0 || opts.ConfidenceFloor > 1 {
		opts.ConfidenceFloor = DefaultConfidenceFloor
	}
	log = log.WithField("component", "detector")
	return &Detector{
		opts:    opts,
		rng:     rng,
		samples: NewSampleTable(opts.SampleTableDir, log),
		log:     log,
	}
}

// DetectFile classifies the image stored at path. It never fails: any error
// is logged and replaced by a sample fallback.
func (d *Detector) DetectFile(path string) Result {
	return d.run(path, func() (*image.NRGBA, error) { return LoadFile(path) })
}

// Detect classifies an image stream. Like DetectFile it never fails.
func (d *Detector) Detect(r io.Reader) Result {
	return d.run("stream", func() (*image.NRGBA, error) { return Load(r) })
}

func (d *Detector) run(source string, load func() (*image.NRGBA, error)) Result {
	log := d.log.WithField("source", source)

	state := StateLoading
	img, err := load()
	if err != nil {
		return d.fallback(log, state, err)
	}

	state = StateFeatureExtraction
	features, err := ExtractFeatures(img)
	if err != nil {
		return d.fallback(log, state, err)
	}

	state = StateClassifying
	label, rule := Classify(features, d.rng)
	result := Result{
		Label:      label,
		Confidence: HeuristicConfidence(label, d.rng),
		Source:     SourceHeuristic,
		Features:   &features,
	}

	state = StateBlendDecision
	if d.rng.Float64() < d.opts.BlendProbability {
		s := d.pickSample()
		result.Label, result.Confidence, result.Source = s.Prediction, s.Confidence, SourceSample
		log.WithFields(logrus.Fields{
			"prediction": result.Label,
			"confidence": result.Confidence,
		}).Info("Using sample prediction")
		return result
	}

	log.WithFields(logrus.Fields{
		"prediction": result.Label,
		"confidence": result.Confidence,
		"rule":       rule,
		"state":      StateDone,
	}).Info("Classified using heuristic")
	return result
}

func (d *Detector) fallback(log logrus.FieldLogger, state State, err error) Result {
	log.WithError(err).WithField("state", state).Error("Error detecting disease")
	s := d.pickSample()
	log.WithFields(logrus.Fields{
		"prediction": s.Prediction,
		"confidence": s.Confidence,
		"state":      StateFailed,
	}).Warn("Using fallback prediction")
	return Result{Label: s.Prediction, Confidence: s.Confidence, Source: SourceFallback}
}

// pickSample draws a sample uniformly and applies the confidence floor.
func (d *Detector) pickSample() SamplePrediction {
	samples := d.samples.Load()
	s := samples[d.rng.IntN(len(samples))]
	s.Confidence = clampConfidence(s.Confidence, d.opts.ConfidenceFloor)
	return s
}

func clampConfidence(c, floor float64) float64 {
	if math.IsNaN(c) || c < floor {
		c = floor
	}
	return math.Min(c, 1)
}
