// Package utils provides small helpers shared by the tile engine and the format backends.
package utils

import "sync"

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, 64*1024)
	},
}

var float64Pool = sync.Pool{
	New: func() interface{} {
		return make([]float64, 0, 16*1024)
	},
}

// GetBuffer returns a byte slice of length size from the pool.
func GetBuffer(size int) []byte {
	buf := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// ReleaseBuffer returns a buffer to the pool.
func ReleaseBuffer(buf []byte) {
	if buf == nil {
		return
	}
	//nolint:staticcheck // SA6002: slice descriptor copy is acceptable for sync.Pool
	bufferPool.Put(buf[:0])
}

// GetFloat64s returns a zeroed float64 slice of length n from the pool.
// Tile buffers come from here so a partition consumer holds at most one
// tile's decoded frames at a time.
func GetFloat64s(n int) []float64 {
	buf := float64Pool.Get().([]float64)
	if cap(buf) < n {
		return make([]float64, n)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// ReleaseFloat64s returns a float64 slice to the pool.
func ReleaseFloat64s(buf []float64) {
	if buf == nil {
		return
	}
	//nolint:staticcheck // SA6002: slice descriptor copy is acceptable for sync.Pool
	float64Pool.Put(buf[:0])
}
