// Package format defines the narrow contract between the tile engine and
// per-instrument file formats.
//
// A backend turns a path or file list into a Layout (native shape, element
// type, per-file frame counts and byte offsets) and opens files for raw frame
// reads. The engine never parses headers itself.
package format

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/scigolib/tileio/internal/dtype"
)

// ErrNotDetected is returned by Scan when the input does not look like the format.
var ErrNotDetected = errors.New("input does not match format")

// FileInfo describes one physical file of a dataset.
type FileInfo struct {
	Path        string
	NumFrames   int
	HeaderBytes int64 // offset of the first frame record
}

// Layout is what a backend knows about a dataset before any frame is read.
type Layout struct {
	NavShape    []int
	SigShape    []int
	DType       dtype.DType
	FramePrefix int64 // bytes preceding each frame inside a record
	Files       []FileInfo
	Extra       map[string]any // format-specific identity, merged into the cache key
}

// FrameBytes returns the payload size of one frame.
func (l *Layout) FrameBytes() int {
	n := l.DType.ItemSize
	for _, d := range l.SigShape {
		n *= d
	}
	return n
}

// RecordBytes returns the on-disk stride between frames.
func (l *Layout) RecordBytes() int64 {
	return l.FramePrefix + int64(l.FrameBytes())
}

// Request carries the loader parameters a backend may need.
type Request struct {
	Path        string
	Files       []string
	SigShape    []int
	DType       string
	HeaderBytes int64
	SameOffset  bool
}

// FrameFile reads frames of one physical file.
type FrameFile interface {
	// ReadFrame copies the payload of the file-local frame into dst,
	// which must be exactly one frame long.
	ReadFrame(local int, dst []byte) error
	Close() error
}

// Backend is implemented once per file format.
type Backend interface {
	Name() string
	// Detect sniffs path and returns loader parameters when it matches.
	Detect(path string) (map[string]any, bool)
	// Scan resolves the file list, native shape and element type. The
	// returned files carry Path and HeaderBytes; NumFrames is filled in
	// from CountFrames when the engine builds its file set.
	Scan(ctx context.Context, req Request) (*Layout, error)
	CountFrames(file FileInfo, layout *Layout) (int, error)
	Open(file FileInfo, layout *Layout) (FrameFile, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Backend{}
)

// Register makes a backend available under its name. Registering the same
// name twice panics.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[b.Name()]; dup {
		panic(fmt.Sprintf("format: backend %q registered twice", b.Name()))
	}
	registry[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	b, ok := registry[name]
	return b, ok
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
