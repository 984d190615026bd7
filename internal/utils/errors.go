package utils

import "fmt"

// ReadError reports a failed read of one physical frame.
type ReadError struct {
	Path  string
	Frame int // physical frame index, -1 when not frame-specific
	Cause error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("read %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("read %s (frame %d): %v", e.Path, e.Frame, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *ReadError) Unwrap() error {
	return e.Cause
}

// WrapReadError attaches path and frame context to a read failure.
func WrapReadError(path string, frame int, cause error) error {
	if cause == nil {
		return nil
	}
	return &ReadError{
		Path:  path,
		Frame: frame,
		Cause: cause,
	}
}
