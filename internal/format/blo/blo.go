// Package blo implements a backend for NanoMEGAS block files (.blo).
//
// A block file starts with a little-endian header followed, at DataOffset2,
// by NX*NY frame records. Each record is a 6 byte frame header and a
// DPSize x DPSize uint8 diffraction pattern. The scan is NY rows of NX
// positions.
package blo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scigolib/tileio/internal/dtype"
	"github.com/scigolib/tileio/internal/format"
	"github.com/scigolib/tileio/internal/utils"
)

// Name is the format tag of this backend.
const Name = "blo"

// Header geometry.
const (
	HeaderSize  = 86
	Magic       = 258
	FramePrefix = 6
)

// Field offsets inside the header.
const (
	offMagic       = 6
	offDataOffset1 = 8
	offDataOffset2 = 12
	offDPSize      = 20
	offNX          = 24
	offNY          = 26
)

// ErrBadMagic is returned for files whose header magic is not 258.
var ErrBadMagic = errors.New("blo: bad header magic")

// Header holds the fields of a block file header the reader relies on.
type Header struct {
	DataOffset1 uint32
	DataOffset2 uint32
	DPSize      uint16
	NX          uint16
	NY          uint16
}

// ReadHeader parses the header from r.
func ReadHeader(r utils.ReaderAt) (*Header, error) {
	le := binary.LittleEndian

	magic, err := utils.ReadUint16(r, offMagic, le)
	if err != nil {
		return nil, fmt.Errorf("blo: read magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: got %d", ErrBadMagic, magic)
	}

	h := &Header{}
	if h.DataOffset1, err = utils.ReadUint32(r, offDataOffset1, le); err != nil {
		return nil, fmt.Errorf("blo: read data offset: %w", err)
	}
	if h.DataOffset2, err = utils.ReadUint32(r, offDataOffset2, le); err != nil {
		return nil, fmt.Errorf("blo: read data offset: %w", err)
	}
	if h.DPSize, err = utils.ReadUint16(r, offDPSize, le); err != nil {
		return nil, fmt.Errorf("blo: read pattern size: %w", err)
	}
	if h.NX, err = utils.ReadUint16(r, offNX, le); err != nil {
		return nil, fmt.Errorf("blo: read scan width: %w", err)
	}
	if h.NY, err = utils.ReadUint16(r, offNY, le); err != nil {
		return nil, fmt.Errorf("blo: read scan height: %w", err)
	}

	if h.DPSize == 0 || h.NX == 0 || h.NY == 0 {
		return nil, fmt.Errorf("blo: empty geometry %dx%d scan of %dx%d patterns",
			h.NY, h.NX, h.DPSize, h.DPSize)
	}
	if h.DataOffset2 < HeaderSize {
		return nil, fmt.Errorf("blo: data offset %d inside header", h.DataOffset2)
	}
	return h, nil
}

// MarshalBinary encodes the header, leaving unknown fields zero.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	copy(buf, "IM6   ")
	le.PutUint16(buf[offMagic:], Magic)
	le.PutUint32(buf[offDataOffset1:], h.DataOffset1)
	le.PutUint32(buf[offDataOffset2:], h.DataOffset2)
	le.PutUint16(buf[offDPSize:], h.DPSize)
	le.PutUint16(buf[offNX:], h.NX)
	le.PutUint16(buf[offNY:], h.NY)
	return buf, nil
}

// ImageCount returns the number of frames the header declares.
func (h *Header) ImageCount() int {
	return int(h.NX) * int(h.NY)
}

// Backend reads block files.
type Backend struct{}

func init() {
	format.Register(Backend{})
}

// Name implements format.Backend.
func (Backend) Name() string { return Name }

// Detect matches files with a .blo extension and a valid header.
func (Backend) Detect(path string) (map[string]any, bool) {
	if strings.ToLower(filepath.Ext(path)) != ".blo" {
		return nil, false
	}
	if _, err := readHeaderFile(path); err != nil {
		return nil, false
	}
	return map[string]any{"path": path}, true
}

// Scan implements format.Backend.
func (Backend) Scan(_ context.Context, req format.Request) (*format.Layout, error) {
	path := req.Path
	if path == "" && len(req.Files) == 1 {
		path = req.Files[0]
	}
	if path == "" {
		return nil, errors.New("blo: exactly one path required")
	}

	h, err := readHeaderFile(path)
	if err != nil {
		return nil, err
	}

	dp := int(h.DPSize)
	return &format.Layout{
		NavShape:    []int{int(h.NY), int(h.NX)},
		SigShape:    []int{dp, dp},
		DType:       dtype.Uint8,
		FramePrefix: FramePrefix,
		Files: []format.FileInfo{
			{Path: path, HeaderBytes: int64(h.DataOffset2)},
		},
	}, nil
}

// CountFrames implements format.Backend. A truncated file yields only the
// complete records it holds.
func (Backend) CountFrames(file format.FileInfo, layout *format.Layout) (int, error) {
	h, err := readHeaderFile(file.Path)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(file.Path)
	if err != nil {
		return 0, err
	}
	avail := int((fi.Size() - file.HeaderBytes) / layout.RecordBytes())
	return max(0, min(avail, h.ImageCount())), nil
}

// Open implements format.Backend.
func (Backend) Open(file format.FileInfo, layout *format.Layout) (format.FrameFile, error) {
	return format.OpenMapped(file, layout)
}

func readHeaderFile(path string) (*Header, error) {
	//nolint:gosec // G304: dataset paths are user-provided by design
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeader(f)
}
