package tileio

import (
	"fmt"
	"slices"
	"strings"

	"github.com/scigolib/tileio/internal/utils"
)

// Shape is a flat shape split into navigation and signal parts.
// The last SigDims entries are the signal dimensions.
//
// Shape values are immutable; every method returns a new value.
type Shape struct {
	dims    []int
	sigDims int
}

// NewShape creates a shape from all dimensions and the signal rank.
func NewShape(dims []int, sigDims int) (Shape, error) {
	if sigDims < 1 || sigDims > len(dims) {
		return Shape{}, fmt.Errorf("%w: sig_dims %d for %d dimensions", ErrShape, sigDims, len(dims))
	}
	for i, d := range dims {
		if d <= 0 {
			return Shape{}, fmt.Errorf("%w: non-positive extent %d at dimension %d", ErrShape, d, i)
		}
	}
	if _, err := utils.Product(dims); err != nil {
		return Shape{}, fmt.Errorf("%w: %v", ErrShape, err)
	}
	return Shape{dims: slices.Clone(dims), sigDims: sigDims}, nil
}

// MustShape is NewShape for shapes known to be valid.
func MustShape(dims []int, sigDims int) Shape {
	s, err := NewShape(dims, sigDims)
	if err != nil {
		panic(err)
	}
	return s
}

// NavSig creates a shape from separate navigation and signal parts.
func NavSig(nav, sig []int) (Shape, error) {
	return NewShape(append(slices.Clone(nav), sig...), len(sig))
}

// Dims returns a copy of all dimensions.
func (s Shape) Dims() []int { return slices.Clone(s.dims) }

// SigDims returns the signal rank.
func (s Shape) SigDims() int { return s.sigDims }

// NavDims returns the navigation rank.
func (s Shape) NavDims() int { return len(s.dims) - s.sigDims }

// Nav returns the navigation extents.
func (s Shape) Nav() []int { return slices.Clone(s.dims[:s.NavDims()]) }

// Sig returns the signal extents.
func (s Shape) Sig() []int { return slices.Clone(s.dims[s.NavDims():]) }

// Size returns the product of all dimensions.
func (s Shape) Size() int { return utils.MustProduct(s.dims) }

// NavSize returns the number of frames.
func (s Shape) NavSize() int { return utils.MustProduct(s.dims[:s.NavDims()]) }

// SigSize returns the number of pixels per frame.
func (s Shape) SigSize() int { return utils.MustProduct(s.dims[s.NavDims():]) }

// FlattenNav collapses the navigation dimensions into one.
func (s Shape) FlattenNav() Shape {
	dims := append([]int{s.NavSize()}, s.dims[s.NavDims():]...)
	return Shape{dims: dims, sigDims: s.sigDims}
}

// ReshapeNav replaces the navigation part by nav, which must hold the
// same number of frames.
func (s Shape) ReshapeNav(nav []int) (Shape, error) {
	if len(nav) == 0 {
		return Shape{}, fmt.Errorf("%w: empty navigation shape", ErrShape)
	}
	n, err := utils.Product(nav)
	if err != nil {
		return Shape{}, fmt.Errorf("%w: %v", ErrShape, err)
	}
	if n != s.NavSize() {
		return Shape{}, fmt.Errorf("%w: cannot reshape navigation %v (%d frames) to %v (%d frames)",
			ErrShape, s.Nav(), s.NavSize(), nav, n)
	}
	return NavSig(nav, s.dims[s.NavDims():])
}

// Equal reports whether both shapes have the same dimensions and split.
func (s Shape) Equal(o Shape) bool {
	return s.sigDims == o.sigDims && slices.Equal(s.dims, o.dims)
}

// IsZero reports whether s is the zero value.
func (s Shape) IsZero() bool { return len(s.dims) == 0 }

func (s Shape) String() string {
	parts := make([]string, len(s.dims))
	for i, d := range s.dims {
		parts[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("(%s, sig_dims=%d)", strings.Join(parts, ", "), s.sigDims)
}
