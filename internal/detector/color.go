package detector

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorFeatureCount is the number of values ExtractColorFeatures returns.
const ColorFeatureCount = 8

// ExtractColorFeatures computes, for each indicator range, the fraction of
// pixels whose HSV value falls inside it, followed by the mean H, S and V
// channels each divided by 255.
func ExtractColorFeatures(img *image.NRGBA) ([]float64, error) {
	if err := checkCanonical(img); err != nil {
		return nil, &ExtractionError{Stage: "color", Err: err}
	}

	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())
	counts := make([]int, len(Indicators))
	var sumH, sumS, sumV float64

	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+3]
			c := toHSV(p[0], p[1], p[2])
			for i, r := range Indicators {
				if r.Contains(c) {
					counts[i]++
				}
			}
			sumH += float64(c.H)
			sumS += float64(c.S)
			sumV += float64(c.V)
		}
	}

	features := make([]float64, 0, ColorFeatureCount)
	for _, n := range counts {
		features = append(features, float64(n)/total)
	}
	features = append(features,
		sumH/total/255.0,
		sumS/total/255.0,
		sumV/total/255.0,
	)
	return features, nil
}

// toHSV converts an 8-bit RGB triple into the OpenCV-style 8-bit HSV encoding.
func toHSV(r, g, b uint8) HSV {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, v := c.Hsv()
	return HSV{
		H: clamp8(math.Round(h/2), 180),
		S: clamp8(math.Round(s*255), 255),
		V: clamp8(math.Round(v*255), 255),
	}
}

func clamp8(v, limit float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return uint8(limit)
	}
	return uint8(v)
}
