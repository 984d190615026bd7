package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two non-negative ints would overflow.
func CheckMultiplyOverflow(a, b int) error {
	if a == 0 || b == 0 {
		return nil
	}
	if a > math.MaxInt/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds int max", a, b)
	}
	return nil
}

// Product multiplies all dimensions with overflow checking.
// The product of an empty list is 1.
func Product(dims []int) (int, error) {
	size := 1
	for i, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("negative extent %d at dimension %d", d, i)
		}
		if err := CheckMultiplyOverflow(size, d); err != nil {
			return 0, fmt.Errorf("size overflow at dimension %d: %w", i, err)
		}
		size *= d
	}
	return size, nil
}

// MustProduct is Product for dimensions that were already validated.
func MustProduct(dims []int) int {
	size, err := Product(dims)
	if err != nil {
		panic(err)
	}
	return size
}

// FrameBytes computes the byte size of one frame with overflow checking.
func FrameBytes(sig []int, itemSize int) (int, error) {
	if itemSize <= 0 {
		return 0, fmt.Errorf("item size must be positive, got %d", itemSize)
	}
	n, err := Product(sig)
	if err != nil {
		return 0, err
	}
	if err := CheckMultiplyOverflow(n, itemSize); err != nil {
		return 0, fmt.Errorf("frame size overflow: %w", err)
	}
	return n * itemSize, nil
}
