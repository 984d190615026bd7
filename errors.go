package tileio

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them with errors.Is.
var (
	ErrDatasetParameter = errors.New("invalid dataset parameter")
	ErrOffsetRange      = errors.New("sync offset out of range")
	ErrTileShape        = errors.New("invalid tile shape")
	ErrShape            = errors.New("invalid shape")
	ErrFileSet          = errors.New("invalid file set")
	ErrCorrection       = errors.New("invalid correction data")
	ErrUnknownFormat    = errors.New("unknown dataset format")
	ErrNotInitialized   = errors.New("dataset not initialized")
)

// OffsetRangeError reports a sync offset outside (-ImageCount, ImageCount).
type OffsetRangeError struct {
	Offset     int
	ImageCount int
}

func (e *OffsetRangeError) Error() string {
	return fmt.Sprintf("offset should be in (-%d, %d), which is (-image_count, image_count), got %d",
		e.ImageCount, e.ImageCount, e.Offset)
}

// Is matches ErrOffsetRange and ErrDatasetParameter.
func (e *OffsetRangeError) Is(target error) bool {
	return target == ErrOffsetRange || target == ErrDatasetParameter
}

// TileShapeError reports a signal shape whose size differs from the data.
type TileShapeError struct {
	Got      []int
	Expected int
}

func (e *TileShapeError) Error() string {
	return fmt.Sprintf("sig_shape must be of size: %d, got %v", e.Expected, e.Got)
}

// Is matches ErrTileShape and ErrDatasetParameter.
func (e *TileShapeError) Is(target error) bool {
	return target == ErrTileShape || target == ErrDatasetParameter
}

// FileSetError reports a file that cannot take part in a file set.
type FileSetError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *FileSetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fileset: %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("fileset: %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *FileSetError) Unwrap() error { return e.Cause }

// Is matches ErrFileSet.
func (e *FileSetError) Is(target error) bool { return target == ErrFileSet }

// CorrectionError reports correction data that does not fit the signal shape.
type CorrectionError struct {
	Field  string
	Reason string
}

func (e *CorrectionError) Error() string {
	return fmt.Sprintf("correction %s: %s", e.Field, e.Reason)
}

// Is matches ErrCorrection.
func (e *CorrectionError) Is(target error) bool { return target == ErrCorrection }

func paramError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDatasetParameter, fmt.Sprintf(format, args...))
}
