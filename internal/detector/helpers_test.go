package detector

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// solidImage creates a canonical image filled with one color.
func solidImage(c color.NRGBA) *image.NRGBA {
	return imaging.New(CanonicalWidth, CanonicalHeight, c)
}

// halfImage creates a canonical image whose left half is left and right half is right.
func halfImage(left, right color.NRGBA) *image.NRGBA {
	img := solidImage(left)
	for y := 0; y < CanonicalHeight; y++ {
		for x := CanonicalWidth / 2; x < CanonicalWidth; x++ {
			img.SetNRGBA(x, y, right)
		}
	}
	return img
}

// writeImage saves img under dir using the format implied by name.
func writeImage(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func hasEntry(hook *test.Hook, level logrus.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

var (
	black  = color.NRGBA{0, 0, 0, 255}
	white  = color.NRGBA{255, 255, 255, 255}
	yellow = color.NRGBA{255, 255, 0, 255}
	blue   = color.NRGBA{0, 0, 200, 255}
)
