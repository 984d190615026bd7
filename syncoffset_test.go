package tileio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSyncOffset(t *testing.T) {
	tests := []struct {
		offset, count int
		ok            bool
	}{
		{0, 10, true},
		{9, 10, true},
		{-9, 10, true},
		{10, 10, false},
		{-10, 10, false},
		{110, 110, false},
		{-110, 110, false},
		{109, 110, true},
	}
	for _, tt := range tests {
		err := ValidateSyncOffset(tt.offset, tt.count)
		if tt.ok {
			require.NoError(t, err, "offset %d", tt.offset)
			continue
		}
		require.ErrorIs(t, err, ErrOffsetRange)
		require.ErrorIs(t, err, ErrDatasetParameter)

		var re *OffsetRangeError
		require.True(t, errors.As(err, &re))
		require.Equal(t, tt.offset, re.Offset)
	}
}

func TestOffsetRangeErrorMessage(t *testing.T) {
	err := ValidateSyncOffset(-120, 110)
	require.EqualError(t, err,
		"offset should be in (-110, 110), which is (-image_count, image_count), got -120")
}

func TestToPhysical(t *testing.T) {
	pos, err := NewSyncOffset(3, 10)
	require.NoError(t, err)

	p, ok := pos.ToPhysical(0)
	require.True(t, ok)
	require.Equal(t, 3, p)

	_, ok = pos.ToPhysical(7)
	require.False(t, ok)

	neg, err := NewSyncOffset(-3, 10)
	require.NoError(t, err)

	_, ok = neg.ToPhysical(2)
	require.False(t, ok)
	p, ok = neg.ToPhysical(3)
	require.True(t, ok)
	require.Equal(t, 0, p)
	p, ok = neg.ToPhysical(12)
	require.True(t, ok)
	require.Equal(t, 9, p)
}

func TestPhysicalRange(t *testing.T) {
	pos, _ := NewSyncOffset(3, 10)
	s, e := pos.PhysicalRange(0, 5)
	require.Equal(t, [2]int{3, 8}, [2]int{s, e})
	s, e = pos.PhysicalRange(5, 10)
	require.Equal(t, [2]int{8, 10}, [2]int{s, e})

	neg, _ := NewSyncOffset(-3, 10)
	s, e = neg.PhysicalRange(0, 2)
	require.Equal(t, s, e, "range before the data is empty")
	s, e = neg.PhysicalRange(0, 5)
	require.Equal(t, [2]int{0, 2}, [2]int{s, e})
}
