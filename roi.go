package tileio

import (
	"fmt"
	"slices"

	"github.com/scigolib/tileio/internal/utils"
)

// ROI is a boolean selection over navigation space. A nil *ROI selects
// every frame; all methods accept a nil receiver.
//
// The mask is stored flattened in row-major order, so the same ROI can be
// addressed by flat frame index or by navigation coordinate regardless of
// how the navigation space is shaped.
type ROI struct {
	nav  []int
	mask []bool
}

// NewROI creates a ROI from a flat row-major mask over nav.
func NewROI(nav []int, mask []bool) (*ROI, error) {
	n, err := utils.Product(nav)
	if err != nil || len(nav) == 0 {
		return nil, paramError("roi: invalid navigation shape %v", nav)
	}
	if len(mask) != n {
		return nil, paramError("roi has %d entries, navigation shape %v has %d", len(mask), nav, n)
	}
	return &ROI{nav: slices.Clone(nav), mask: slices.Clone(mask)}, nil
}

// ROIFromIndices selects the given flat frame indices.
func ROIFromIndices(nav []int, indices ...int) (*ROI, error) {
	n, err := utils.Product(nav)
	if err != nil || len(nav) == 0 {
		return nil, paramError("roi: invalid navigation shape %v", nav)
	}
	mask := make([]bool, n)
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, paramError("roi index %d out of range [0, %d)", i, n)
		}
		mask[i] = true
	}
	return &ROI{nav: slices.Clone(nav), mask: mask}, nil
}

// Nav returns the navigation shape of the mask.
func (r *ROI) Nav() []int {
	if r == nil {
		return nil
	}
	return slices.Clone(r.nav)
}

// Size returns the number of navigation positions, or -1 for nil.
func (r *ROI) Size() int {
	if r == nil {
		return -1
	}
	return len(r.mask)
}

// Selected reports whether flat frame i is selected.
func (r *ROI) Selected(i int) bool {
	if r == nil {
		return true
	}
	return i >= 0 && i < len(r.mask) && r.mask[i]
}

// At reports whether the frame at a navigation coordinate is selected.
func (r *ROI) At(coord ...int) (bool, error) {
	if r == nil {
		return true, nil
	}
	flat, err := flatIndex(r.nav, coord)
	if err != nil {
		return false, err
	}
	return r.mask[flat], nil
}

// Count returns the number of selected frames in [start, end).
func (r *ROI) Count(start, end int) int {
	if r == nil {
		return max(end-start, 0)
	}
	start = max(start, 0)
	end = min(end, len(r.mask))
	n := 0
	for i := start; i < end; i++ {
		if r.mask[i] {
			n++
		}
	}
	return n
}

// Flat returns a copy of the flattened mask, or nil for a nil ROI.
func (r *ROI) Flat() []bool {
	if r == nil {
		return nil
	}
	return slices.Clone(r.mask)
}

// Reshape returns the same selection over a navigation shape of equal size.
func (r *ROI) Reshape(nav []int) (*ROI, error) {
	if r == nil {
		return nil, nil
	}
	return NewROI(nav, r.mask)
}

// packMask packs mask one bit per entry, least significant bit first.
func packMask(mask []bool) []byte {
	buf := make([]byte, (len(mask)+7)/8)
	for i, v := range mask {
		if v {
			buf[i/8] |= 1 << (i % 8)
		}
	}
	return buf
}

// unpackMask reverses packMask for a mask of n entries.
func unpackMask(buf []byte, n int) ([]bool, error) {
	if len(buf) != (n+7)/8 {
		return nil, fmt.Errorf("roi mask has %d bytes, %d frames need %d", len(buf), n, (n+7)/8)
	}
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = buf[i/8]&(1<<(i%8)) != 0
	}
	return mask, nil
}
