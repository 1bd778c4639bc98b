package detector

import (
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
)

// FeatureLength is the fixed size of every FeatureVector.
const FeatureLength = ColorFeatureCount + TextureFeatureCount

// Named slots of a FeatureVector.
const (
	SlotBrown = iota
	SlotYellow
	SlotBlack
	SlotWhite
	SlotRotting
	SlotMeanHue
	SlotMeanSaturation
	SlotMeanValue
	SlotGradientMean
	SlotGradientStd
	SlotGradientP90
)

// FeatureVector is the numeric summary of a canonical image used as classifier input.
type FeatureVector [FeatureLength]float64

// IndicatorMean averages the five indicator-color ratios.
func (f FeatureVector) IndicatorMean() float64 {
	var sum float64
	for i := SlotBrown; i <= SlotRotting; i++ {
		sum += f[i]
	}
	return sum / float64(SlotRotting-SlotBrown+1)
}

// Slice returns the vector as a float32 slice, the layout pgvector stores.
func (f FeatureVector) Slice() []float32 {
	out := make([]float32, FeatureLength)
	for i, v := range f {
		out[i] = float32(v)
	}
	return out
}

// ExtractFeatures runs the color and texture extractors side by side and
// concatenates their output.
func ExtractFeatures(img *image.NRGBA) (FeatureVector, error) {
	var (
		fv      FeatureVector
		color   []float64
		texture []float64
		g       errgroup.Group
	)

	g.Go(func() error {
		var err error
		color, err = ExtractColorFeatures(img)
		return err
	})
	g.Go(func() error {
		var err error
		texture, err = ExtractTextureFeatures(img)
		return err
	})
	if err := g.Wait(); err != nil {
		return fv, err
	}

	if len(color) != ColorFeatureCount || len(texture) != TextureFeatureCount {
		return fv, &ExtractionError{
			Stage: "concatenate",
			Err:   fmt.Errorf("got %d color and %d texture values", len(color), len(texture)),
		}
	}
	copy(fv[:ColorFeatureCount], color)
	copy(fv[ColorFeatureCount:], texture)
	return fv, nil
}
