package testing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scigolib/tileio/internal/dtype"
	"github.com/scigolib/tileio/internal/format"
)

// MemName is the format tag of MemBackend.
const MemName = "mem"

// ErrInjected is returned by reads of frames marked with FailFrame.
var ErrInjected = errors.New("injected read failure")

// MemBackend serves frames from memory. Paths look like "mem://name" and
// each maps to a frame count; pixel values come from Value.
//
// A single MemBackend is registered process-wide under "mem"; tests
// configure it with Reset before use and must not run in parallel.
type MemBackend struct {
	Files     map[string]int
	Order     []string
	Sig       []int
	NavShape  []int
	Value     func(physical, pixel int) float64
	FailFrame int // physical frame whose read fails, -1 for none
	Handles   HandleCounter
}

// Mem is the registered instance.
var Mem = &MemBackend{FailFrame: -1}

func init() {
	format.Register(Mem)
}

// Reset configures the backend with files holding the given frame counts.
func (b *MemBackend) Reset(sig []int, counts ...int) []string {
	b.Files = map[string]int{}
	b.Order = nil
	b.Sig = sig
	b.NavShape = nil
	b.FailFrame = -1
	b.Handles = HandleCounter{}
	b.Value = func(physical, pixel int) float64 {
		return float64(physical*1000 + pixel)
	}
	for i, n := range counts {
		p := fmt.Sprintf("mem://file%03d", i)
		b.Files[p] = n
		b.Order = append(b.Order, p)
	}
	return append([]string(nil), b.Order...)
}

// Name implements format.Backend.
func (b *MemBackend) Name() string { return MemName }

// Detect implements format.Backend.
func (b *MemBackend) Detect(path string) (map[string]any, bool) {
	if !strings.HasPrefix(path, "mem://") {
		return nil, false
	}
	if _, ok := b.Files[path]; !ok {
		return nil, false
	}
	return map[string]any{"files": []string{path}}, true
}

// Scan implements format.Backend.
func (b *MemBackend) Scan(_ context.Context, req format.Request) (*format.Layout, error) {
	paths := req.Files
	if len(paths) == 0 {
		paths = []string{req.Path}
	}
	layout := &format.Layout{
		NavShape: b.NavShape,
		SigShape: b.Sig,
		DType:    dtype.Float64,
		Files:    make([]format.FileInfo, len(paths)),
	}
	for i, p := range paths {
		layout.Files[i] = format.FileInfo{Path: p}
	}
	return layout, nil
}

// CountFrames implements format.Backend.
func (b *MemBackend) CountFrames(file format.FileInfo, _ *format.Layout) (int, error) {
	n, ok := b.Files[file.Path]
	if !ok {
		return 0, fmt.Errorf("%s: no such file", file.Path)
	}
	return n, nil
}

// Open implements format.Backend. Frame indices are resolved to physical
// ones by looking up where the file sits in Order.
func (b *MemBackend) Open(file format.FileInfo, layout *format.Layout) (format.FrameFile, error) {
	base := 0
	for _, p := range b.Order {
		if p == file.Path {
			b.Handles.Opened()
			return &memFile{b: b, base: base, n: file.NumFrames, dt: layout.DType, sig: layout.FrameBytes() / layout.DType.ItemSize}, nil
		}
		base += b.Files[p]
	}
	return nil, fmt.Errorf("%s: no such file", file.Path)
}

type memFile struct {
	b      *MemBackend
	base   int
	n      int
	sig    int
	dt     dtype.DType
	closed bool
}

func (f *memFile) ReadFrame(local int, dst []byte) error {
	if f.closed {
		return errors.New("read from closed file")
	}
	if local < 0 || local >= f.n {
		return fmt.Errorf("frame %d out of range [0, %d)", local, f.n)
	}
	phys := f.base + local
	if phys == f.b.FailFrame {
		return ErrInjected
	}
	vals := make([]float64, f.sig)
	for i := range vals {
		vals[i] = f.b.Value(phys, i)
	}
	return f.dt.Encode(vals, dst)
}

func (f *memFile) Close() error {
	if !f.closed {
		f.closed = true
		f.b.Handles.Closed()
	}
	return nil
}
