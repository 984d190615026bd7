package tileio

import (
	"fmt"
	"slices"
)

// Slice addresses a block of a dataset in flattened-frame form: Origin[0]
// is the first frame index, the remaining entries are signal-space indices.
// Shape holds the extent, with the frame count first.
type Slice struct {
	Origin []int
	Shape  Shape
}

// Start returns the first frame index.
func (s Slice) Start() int { return s.Origin[0] }

// Frames returns the number of frames covered.
func (s Slice) Frames() int { return s.Shape.dims[0] }

// End returns one past the last frame index.
func (s Slice) End() int { return s.Start() + s.Frames() }

func (s Slice) String() string {
	return fmt.Sprintf("<Slice origin=%v shape=%v>", s.Origin, s.Shape.dims)
}

// frameSlice builds a slice over frames [start, start+n) covering all of sig.
func frameSlice(start, n int, sig []int) Slice {
	origin := make([]int, 1+len(sig))
	origin[0] = start
	dims := append([]int{n}, sig...)
	return Slice{Origin: origin, Shape: Shape{dims: dims, sigDims: len(sig)}}
}

// Equal reports whether both slices address the same block.
func (s Slice) Equal(o Slice) bool {
	return slices.Equal(s.Origin, o.Origin) && s.Shape.Equal(o.Shape)
}
