// Package fixtures writes small detector files for tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/scigolib/tileio/internal/dtype"
	"github.com/scigolib/tileio/internal/format/blo"
)

// Value is the default pixel generator: distinct for every frame and pixel.
func Value(frame, pixel int) float64 {
	return float64((frame*7 + pixel*3) % 251)
}

// WriteRaw writes len(counts) raw files into dir, file i holding counts[i]
// frames after header bytes of zeros. Frame numbering continues across
// files. It returns the paths in order.
func WriteRaw(t testing.TB, dir string, sig []int, desc string, header int, counts ...int) []string {
	t.Helper()

	dt := dtype.MustParse(desc)
	sigSize := 1
	for _, d := range sig {
		sigSize *= d
	}

	var paths []string
	frame := 0
	vals := make([]float64, sigSize)
	for i, n := range counts {
		buf := make([]byte, header+n*sigSize*dt.ItemSize)
		for k := 0; k < n; k++ {
			for p := range vals {
				vals[p] = Value(frame, p)
			}
			off := header + k*sigSize*dt.ItemSize
			if err := dt.Encode(vals, buf[off:]); err != nil {
				t.Fatalf("encode frame %d: %v", frame, err)
			}
			frame++
		}
		p := filepath.Join(dir, fmt.Sprintf("frames_%03d.raw", i))
		if err := os.WriteFile(p, buf, 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		paths = append(paths, p)
	}
	return paths
}

// WriteBlo writes a block file with an ny x nx scan of dp x dp patterns.
// Only the first frames records are written, so frames < ny*nx produces a
// truncated file.
func WriteBlo(t testing.TB, dir string, ny, nx, dp, frames int) string {
	t.Helper()

	const dataOffset = 6144
	h := &blo.Header{
		DataOffset1: blo.HeaderSize,
		DataOffset2: dataOffset,
		DPSize:      uint16(dp),
		NX:          uint16(nx),
		NY:          uint16(ny),
	}
	head, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	record := blo.FramePrefix + dp*dp
	buf := make([]byte, dataOffset+frames*record)
	copy(buf, head)
	for f := 0; f < frames; f++ {
		off := dataOffset + f*record
		buf[off] = 0xaa
		buf[off+1] = 0x55
		for p := 0; p < dp*dp; p++ {
			buf[off+blo.FramePrefix+p] = byte(Value(f, p))
		}
	}

	p := filepath.Join(dir, "default.blo")
	if err := os.WriteFile(p, buf, 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
