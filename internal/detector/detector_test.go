package detector

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T, opts Options, rng Random) (*Detector, *test.Hook) {
	t.Helper()
	log, hook := newTestLogger()
	if opts.SampleTableDir == "" {
		opts.SampleTableDir = t.TempDir()
	}
	return New(opts, rng, log), hook
}

func TestDetectFile_BlackImageIsLateBlight(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "black.png", solidImage(black))

	d, hook := newTestDetector(t, Options{BlendProbability: 0}, NewRandom(1))
	res := d.DetectFile(path)

	assert.Equal(t, "Tomato_Late_blight", res.Label)
	assert.Equal(t, SourceHeuristic, res.Source)
	assert.GreaterOrEqual(t, res.Confidence, 0.70)
	assert.LessOrEqual(t, res.Confidence, 0.92)
	require.NotNil(t, res.Features)
	assert.InDelta(t, 1.0, res.Features[SlotBlack], 1e-9)
	assert.True(t, hasEntry(hook, logrus.InfoLevel, "Classified using heuristic"))
}

func TestDetectFile_NeverFails(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	text := filepath.Join(dir, "readme.png")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	tiny := writeImage(t, dir, "tiny.png", imaging.New(1, 1, yellow))

	d, _ := newTestDetector(t, DefaultOptions(), NewRandom(3))
	for _, path := range []string{filepath.Join(dir, "nope.png"), empty, text, tiny} {
		res := d.DetectFile(path)
		assert.True(t, InCatalog(res.Label), "%s: %s", path, res.Label)
		assert.Greater(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestDetectFile_FallbackUsesSamples(t *testing.T) {
	d, hook := newTestDetector(t, Options{BlendProbability: 0}, NewRandom(9))
	res := d.DetectFile(filepath.Join(t.TempDir(), "corrupted.jpg"))

	assert.Equal(t, SourceFallback, res.Source)
	assert.Nil(t, res.Features)
	assert.GreaterOrEqual(t, res.Confidence, DefaultConfidenceFloor)

	var known bool
	for _, s := range DefaultSamples {
		known = known || s.Prediction == res.Label
	}
	assert.True(t, known, res.Label)
	assert.True(t, hasEntry(hook, logrus.ErrorLevel, "Error detecting disease"))
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Using fallback prediction"))
}

func TestDetect_BlendAppliesConfidenceFloor(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "detection_results.json",
		`[{"prediction":"Grape_Leaf_blight","confidence":0.6}]`)

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, solidImage(black), imaging.PNG))

	d, hook := newTestDetector(t, Options{BlendProbability: 1, SampleTableDir: dir}, NewRandom(5))
	res := d.Detect(&buf)

	assert.Equal(t, "Grape_Leaf_blight", res.Label)
	assert.Equal(t, SourceSample, res.Source)
	assert.InDelta(t, 0.75, res.Confidence, 1e-9)
	assert.True(t, hasEntry(hook, logrus.InfoLevel, "Using sample prediction"))
}

func TestDetect_RandomImagesStayInCatalog(t *testing.T) {
	rng := NewRandom(11)
	d, _ := newTestDetector(t, DefaultOptions(), rng)

	for i := 0; i < 25; i++ {
		img := imaging.New(64, 48, black)
		for p := 0; p < len(img.Pix); p++ {
			if p%4 != 3 {
				img.Pix[p] = uint8(rng.IntN(256))
			}
		}
		var buf bytes.Buffer
		require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))

		res := d.Detect(&buf)
		assert.True(t, InCatalog(res.Label), res.Label)
		assert.Greater(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestNew_NormalizesOptions(t *testing.T) {
	d := New(Options{ConfidenceFloor: 3}, nil, nil)
	assert.Equal(t, DefaultConfidenceFloor, d.opts.ConfidenceFloor)
	assert.NotNil(t, d.rng)
}

func TestClampConfidence(t *testing.T) {
	assert.InDelta(t, 0.75, clampConfidence(0.2, 0.75), 1e-9)
	assert.InDelta(t, 0.9, clampConfidence(0.9, 0.75), 1e-9)
	assert.InDelta(t, 1.0, clampConfidence(1.4, 0.75), 1e-9)
}
