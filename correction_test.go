// Copyright (c) 2025 SciGo Tileio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package tileio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestCorrectionDarkGain(t *testing.T) {
	c, err := NewCorrectionSet([]int{3, 3}, constant(9, 1), constant(9, 2), nil)
	require.NoError(t, err)
	require.False(t, c.IsIdentity())

	in := ramp(18)
	out, err := c.Apply(in)
	require.NoError(t, err)
	require.Equal(t, ramp(18), in, "input is not modified")
	for i, v := range out {
		require.InDelta(t, (float64(i)-1)*2, v, 1e-12)
	}
}

func TestCorrectionDarkOnly(t *testing.T) {
	c, err := NewCorrectionSet([]int{4}, ramp(4), nil, nil)
	require.NoError(t, err)
	out, err := c.Apply(ramp(4))
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 0}, out)
}

func TestCorrectionExcludedPixels(t *testing.T) {
	c, err := NewCorrectionSet([]int{3, 3}, constant(9, 1), constant(9, 2), [][]int{{1, 1}})
	require.NoError(t, err)
	require.Equal(t, []int{4}, c.ExcludedPixels())

	out, err := c.Apply(ramp(9))
	require.NoError(t, err)
	// neighbours of the centre after dark/gain: 0, 4, 8, 12
	require.InDelta(t, 6.0, out[4], 1e-12)
	require.InDelta(t, 0.0, out[1], 1e-12)
}

func TestCorrectionExcludedWithoutNeighbours(t *testing.T) {
	c, err := NewCorrectionSet([]int{3, 3}, nil, nil, [][]int{{0, 0}, {0, 1}, {1, 0}})
	require.NoError(t, err)

	out, err := c.Apply(constant(9, 5))
	require.NoError(t, err)
	require.Equal(t, 0.0, out[0], "corner with only excluded neighbours")
	// (0,1) has neighbours (0,2) and (1,1)
	require.Equal(t, 5.0, out[1])
	require.Equal(t, 5.0, out[3])
}

func TestCorrectionErrors(t *testing.T) {
	tests := []struct {
		name     string
		dark     []float64
		gain     []float64
		excluded [][]int
		field    string
	}{
		{name: "dark size", dark: constant(8, 0), field: "dark"},
		{name: "gain size", gain: constant(10, 0), field: "gain"},
		{name: "excluded out of bounds", excluded: [][]int{{3, 0}}, field: "excluded_pixels"},
		{name: "excluded rank", excluded: [][]int{{1}}, field: "excluded_pixels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCorrectionSet([]int{3, 3}, tt.dark, tt.gain, tt.excluded)
			require.ErrorIs(t, err, ErrCorrection)
			var ce *CorrectionError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, tt.field, ce.Field)
		})
	}

	c, err := NewCorrectionSet([]int{3, 3}, constant(9, 0), nil, nil)
	require.NoError(t, err)
	_, err = c.Apply(ramp(10))
	require.ErrorIs(t, err, ErrCorrection)
}

func TestCorrectionIdentity(t *testing.T) {
	var c *CorrectionSet
	require.True(t, c.IsIdentity())
	require.Empty(t, c.Digest())
	require.Nil(t, c.Sig())

	out, err := c.Apply(ramp(5))
	require.NoError(t, err)
	require.Equal(t, ramp(5), out)

	empty, err := NewCorrectionSet([]int{2, 2}, nil, nil, nil)
	require.NoError(t, err)
	require.True(t, empty.IsIdentity())
}

func TestCorrectionDigest(t *testing.T) {
	a, err := NewCorrectionSet([]int{2, 2}, ramp(4), nil, [][]int{{0, 1}})
	require.NoError(t, err)
	b, err := NewCorrectionSet([]int{2, 2}, ramp(4), nil, [][]int{{0, 1}, {0, 1}})
	require.NoError(t, err)
	c, err := NewCorrectionSet([]int{2, 2}, ramp(4), nil, nil)
	require.NoError(t, err)
	d, err := NewCorrectionSet([]int{4}, ramp(4), nil, nil)
	require.NoError(t, err)

	require.Len(t, a.Digest(), 64)
	require.Equal(t, a.Digest(), b.Digest())
	require.NotEqual(t, a.Digest(), c.Digest())
	require.NotEqual(t, c.Digest(), d.Digest())
}
