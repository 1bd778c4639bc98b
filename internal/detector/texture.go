package detector

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TextureFeatureCount is the number of values ExtractTextureFeatures returns.
const TextureFeatureCount = 3

// textureQuantile is the high percentile reported for the gradient magnitude map.
const textureQuantile = 0.9

// sobelX is the horizontal 3x3 derivative kernel; its transpose is the vertical one.
var sobelX = &convolution.Kernel{
	Matrix: []float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	},
	Width:  3,
	Height: 3,
}

// ExtractTextureFeatures returns the mean, standard deviation and 90th
// percentile of the max-normalized Sobel gradient magnitude of img.
//
// A flat image has an all-zero magnitude map; it is left unnormalized and every
// statistic is zero.
func ExtractTextureFeatures(img *image.NRGBA) ([]float64, error) {
	if err := checkCanonical(img); err != nil {
		return nil, &ExtractionError{Stage: "texture", Err: err}
	}

	gray := effect.GrayscaleWithWeights(img, 0.299, 0.587, 0.114)
	mag := gradientMagnitude(lumaPlane(gray), gray.Bounds().Dx(), gray.Bounds().Dy())

	if peak := floats.Max(mag); peak > 0 {
		floats.Scale(1/peak, mag)
	}

	mean, std := stat.PopMeanStdDev(mag, nil)

	sorted := make([]float64, len(mag))
	copy(sorted, mag)
	sort.Float64s(sorted)
	p90 := percentile(sorted, textureQuantile)

	features := []float64{mean, std, p90}
	for _, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ExtractionError{Stage: "texture", Err: errors.New("non-finite gradient statistic")}
		}
	}
	return features, nil
}

// lumaPlane reads the intensity of a grayscale RGBA image into a row-major
// plane. Every channel holds the same value, so R is used.
func lumaPlane(gray *image.RGBA) []float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			plane[y*w+x] = float64(row[x*4])
		}
	}
	return plane
}

// gradientMagnitude applies the Sobel kernels with reflect-101 borders to a
// w*h row-major plane and returns sqrt(gx^2 + gy^2) in the same layout.
func gradientMagnitude(plane []float64, w, h int) []float64 {
	sobelY := sobelX.Transposed()
	mag := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := 0; ky < 3; ky++ {
				sy := reflect101(y+ky-1, h)
				for kx := 0; kx < 3; kx++ {
					sx := reflect101(x+kx-1, w)
					v := plane[sy*w+sx]
					gx += v * sobelX.At(kx, ky)
					gy += v * sobelY.At(kx, ky)
				}
			}
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return mag
}

// percentile linearly interpolates sorted at index (n-1)*q.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := float64(len(sorted)-1) * q
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(idx-float64(lo))
}

// reflect101 mirrors an out-of-range index without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}
