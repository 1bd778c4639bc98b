package detector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Canonical dimensions every image is resized to before feature extraction.
const (
	CanonicalWidth  = 224
	CanonicalHeight = 224
)

var errEmptyImage = errors.New("image data is empty")

// LoadFile reads the image at path and returns its canonical form.
func LoadFile(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return decodeCanonical(path, data)
}

// Load reads an image stream and returns its canonical form.
func Load(r io.Reader) (*image.NRGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Source: "stream", Err: err}
	}
	return decodeCanonical("stream", data)
}

// decodeCanonical decodes data and resizes it to the canonical resolution.
// The aspect ratio is not preserved: the image is stretched, never cropped.
func decodeCanonical(source string, data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, &LoadError{Source: source, Err: errEmptyImage}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &LoadError{Source: source, Err: errEmptyImage}
	}

	return imaging.Resize(img, CanonicalWidth, CanonicalHeight, imaging.Linear), nil
}

func checkCanonical(img *image.NRGBA) error {
	if img == nil {
		return errors.New("nil image")
	}
	b := img.Bounds()
	if b.Dx() != CanonicalWidth || b.Dy() != CanonicalHeight {
		return fmt.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), CanonicalWidth, CanonicalHeight)
	}
	return nil
}
