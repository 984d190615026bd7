// Package testing provides fakes for exercising the tile engine without
// real detector files.
package testing

import (
	"errors"
	"sync"
)

// MockReaderAt is an in-memory io.ReaderAt that can be made to fail.
type MockReaderAt struct {
	data    []byte
	failAt  int64
	failErr error
}

// NewMockReaderAt creates a new mock reader with the given data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data, failAt: -1}
}

// FailFrom makes every read touching offset off or beyond return err.
func (m *MockReaderAt) FailFrom(off int64, err error) {
	m.failAt = off
	m.failErr = err
}

// ReadAt implements io.ReaderAt interface for the mock reader.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if m.failAt >= 0 && off+int64(len(p)) > m.failAt {
		return 0, m.failErr
	}
	if off >= int64(len(m.data)) {
		return 0, errors.New("offset beyond EOF")
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		err = errors.New("short read")
	}
	return
}

// HandleCounter tracks open handles so tests can check for leaks.
type HandleCounter struct {
	mu     sync.Mutex
	open   int
	opened int
}

// Opened records an open.
func (c *HandleCounter) Opened() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open++
	c.opened++
}

// Closed records a close.
func (c *HandleCounter) Closed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open--
}

// Open returns the number of handles currently open.
func (c *HandleCounter) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Total returns the number of opens so far.
func (c *HandleCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}
