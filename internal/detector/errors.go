package detector

import "fmt"

// LoadError is returned when image bytes cannot be read or decoded.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load image from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when feature extraction sees malformed intermediate data.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("feature extraction failed in %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TableLoadError is returned when a sample table file exists but cannot be used.
// It is never fatal: the loader moves on to the next candidate location.
type TableLoadError struct {
	Path string
	Err  error
}

func (e *TableLoadError) Error() string {
	return fmt.Sprintf("failed to load sample predictions from %s: %v", e.Path, e.Err)
}

func (e *TableLoadError) Unwrap() error {
	return e.Err
}
