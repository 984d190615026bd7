// Copyright (c) 2025 SciGo Tileio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package tileio

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"slices"

	"github.com/scigolib/tileio/internal/utils"
)

// CorrectionSet holds dark frame, gain map and excluded (defect) pixels
// for one signal shape.
//
// Correction is elementwise:
//
//	corrected = (raw - dark) * gain
//
// after which every excluded pixel is replaced by the mean of its direct
// neighbours along each signal axis that are not excluded themselves, or 0
// when it has none. A nil or empty CorrectionSet leaves data unchanged.
//
// A CorrectionSet is read-only after construction and may be shared by all
// partitions of a dataset.
type CorrectionSet struct {
	sig        []int
	sigSize    int
	dark       []float64
	gain       []float64
	excluded   []int   // flat pixel indices, ascending
	neighbours [][]int // valid neighbours per excluded pixel
}

// NewCorrectionSet validates correction data against sig. dark and gain
// may be nil; excluded holds signal coordinates.
func NewCorrectionSet(sig []int, dark, gain []float64, excluded [][]int) (*CorrectionSet, error) {
	sigSize, err := utils.Product(sig)
	if err != nil || len(sig) == 0 || sigSize == 0 {
		return nil, &CorrectionError{Field: "sig_shape", Reason: fmt.Sprintf("invalid signal shape %v", sig)}
	}
	if dark != nil && len(dark) != sigSize {
		return nil, &CorrectionError{Field: "dark", Reason: fmt.Sprintf("has %d pixels, signal has %d", len(dark), sigSize)}
	}
	if gain != nil && len(gain) != sigSize {
		return nil, &CorrectionError{Field: "gain", Reason: fmt.Sprintf("has %d pixels, signal has %d", len(gain), sigSize)}
	}

	c := &CorrectionSet{
		sig:     slices.Clone(sig),
		sigSize: sigSize,
		dark:    slices.Clone(dark),
		gain:    slices.Clone(gain),
	}

	isExcluded := make(map[int]bool, len(excluded))
	for _, coord := range excluded {
		flat, err := flatIndex(sig, coord)
		if err != nil {
			return nil, &CorrectionError{Field: "excluded_pixels", Reason: err.Error()}
		}
		isExcluded[flat] = true
	}
	for flat := range isExcluded {
		c.excluded = append(c.excluded, flat)
	}
	slices.Sort(c.excluded)

	strides := rowMajorStrides(sig)
	c.neighbours = make([][]int, len(c.excluded))
	for i, flat := range c.excluded {
		for axis, stride := range strides {
			pos := (flat / stride) % sig[axis]
			if pos > 0 && !isExcluded[flat-stride] {
				c.neighbours[i] = append(c.neighbours[i], flat-stride)
			}
			if pos < sig[axis]-1 && !isExcluded[flat+stride] {
				c.neighbours[i] = append(c.neighbours[i], flat+stride)
			}
		}
	}
	return c, nil
}

// IsIdentity reports whether applying c changes nothing.
func (c *CorrectionSet) IsIdentity() bool {
	return c == nil || (c.dark == nil && c.gain == nil && len(c.excluded) == 0)
}

// Sig returns the signal shape the data is aligned to.
func (c *CorrectionSet) Sig() []int {
	if c == nil {
		return nil
	}
	return slices.Clone(c.sig)
}

// ExcludedPixels returns the excluded pixels as flat indices.
func (c *CorrectionSet) ExcludedPixels() []int {
	if c == nil {
		return nil
	}
	return slices.Clone(c.excluded)
}

// Apply returns a corrected copy of tile, which holds whole frames.
func (c *CorrectionSet) Apply(tile []float64) ([]float64, error) {
	out := slices.Clone(tile)
	if c.IsIdentity() {
		return out, nil
	}
	if len(tile)%c.sigSize != 0 {
		return nil, &CorrectionError{Field: "tile", Reason: fmt.Sprintf("%d values is not a whole number of %d pixel frames", len(tile), c.sigSize)}
	}
	c.applyInPlace(out)
	return out, nil
}

// applyInPlace corrects whole frames in place. Callers guarantee the length.
func (c *CorrectionSet) applyInPlace(data []float64) {
	if c.IsIdentity() {
		return
	}
	for off := 0; off < len(data); off += c.sigSize {
		frame := data[off : off+c.sigSize]
		switch {
		case c.dark != nil && c.gain != nil:
			for i := range frame {
				frame[i] = (frame[i] - c.dark[i]) * c.gain[i]
			}
		case c.dark != nil:
			for i := range frame {
				frame[i] -= c.dark[i]
			}
		case c.gain != nil:
			for i := range frame {
				frame[i] *= c.gain[i]
			}
		}
		for i, flat := range c.excluded {
			nb := c.neighbours[i]
			if len(nb) == 0 {
				frame[flat] = 0
				continue
			}
			sum := 0.0
			for _, j := range nb {
				sum += frame[j]
			}
			frame[flat] = sum / float64(len(nb))
		}
	}
}

// Digest identifies the correction data; equal data gives equal digests.
// The identity correction has an empty digest.
func (c *CorrectionSet) Digest() string {
	if c.IsIdentity() {
		return ""
	}
	h := sha256.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeFloats := func(tag byte, vs []float64) {
		h.Write([]byte{tag})
		writeInt(len(vs))
		for _, v := range vs {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}

	writeInt(len(c.sig))
	for _, d := range c.sig {
		writeInt(d)
	}
	if c.dark != nil {
		writeFloats('d', c.dark)
	}
	if c.gain != nil {
		writeFloats('g', c.gain)
	}
	h.Write([]byte{'x'})
	for _, e := range c.excluded {
		writeInt(e)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

func flatIndex(shape, coord []int) (int, error) {
	if len(coord) != len(shape) {
		return 0, fmt.Errorf("coordinate %v has rank %d, signal has %d", coord, len(coord), len(shape))
	}
	flat := 0
	for i, c := range coord {
		if c < 0 || c >= shape[i] {
			return 0, fmt.Errorf("coordinate %v out of bounds %v", coord, shape)
		}
		flat = flat*shape[i] + c
	}
	return flat, nil
}
