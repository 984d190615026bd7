// Package raw implements a backend for headerless frame stacks: one or more
// files holding frames back to back, optionally after a fixed-size header.
package raw

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scigolib/tileio/internal/dtype"
	"github.com/scigolib/tileio/internal/format"
)

// Name is the format tag of this backend.
const Name = "raw"

// AutoHeader asks the backend to derive each file's header size as the
// remainder of the file size modulo the frame size.
const AutoHeader int64 = -1

// Backend reads raw frame stacks.
type Backend struct{}

func init() {
	format.Register(Backend{})
}

// Name implements format.Backend.
func (Backend) Name() string { return Name }

// Detect matches files with a .raw or .bin extension. Raw data carries no
// shape information, so only the file list is returned.
func (Backend) Detect(path string) (map[string]any, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".raw" && ext != ".bin" {
		return nil, false
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() || fi.Size() == 0 {
		return nil, false
	}
	return map[string]any{"files": []string{path}}, true
}

// Scan implements format.Backend.
func (b Backend) Scan(_ context.Context, req format.Request) (*format.Layout, error) {
	paths := req.Files
	if len(paths) == 0 && req.Path != "" {
		paths = []string{req.Path}
	}
	if len(paths) == 0 {
		return nil, errors.New("raw: path or files required")
	}
	if len(req.SigShape) == 0 {
		return nil, errors.New("raw: sig_shape required")
	}
	if req.DType == "" {
		return nil, errors.New("raw: dtype required")
	}
	dt, err := dtype.Parse(req.DType)
	if err != nil {
		return nil, fmt.Errorf("raw: %w", err)
	}

	layout := &format.Layout{
		SigShape: append([]int(nil), req.SigShape...),
		DType:    dt,
		Files:    make([]format.FileInfo, len(paths)),
		Extra: map[string]any{
			"dtype":        dt.String(),
			"header_bytes": req.HeaderBytes,
		},
	}

	frameBytes := int64(layout.FrameBytes())
	for i, p := range paths {
		header := req.HeaderBytes
		switch {
		case header != AutoHeader:
		case req.SameOffset && i > 0:
			header = layout.Files[0].HeaderBytes
		default:
			fi, err := os.Stat(p)
			if err != nil {
				return nil, fmt.Errorf("raw: %w", err)
			}
			header = fi.Size() % frameBytes
		}
		if header < 0 {
			return nil, fmt.Errorf("raw: negative header size %d", header)
		}
		layout.Files[i] = format.FileInfo{Path: p, HeaderBytes: header}
	}

	return layout, nil
}

// CountFrames implements format.Backend.
func (Backend) CountFrames(file format.FileInfo, layout *format.Layout) (int, error) {
	fi, err := os.Stat(file.Path)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%s is a directory", file.Path)
	}
	payload := fi.Size() - file.HeaderBytes
	if payload < 0 {
		return 0, fmt.Errorf("%s is shorter than its %d byte header", file.Path, file.HeaderBytes)
	}
	return int(payload / layout.RecordBytes()), nil
}

// Open implements format.Backend.
func (Backend) Open(file format.FileInfo, layout *format.Layout) (format.FrameFile, error) {
	return format.OpenMapped(file, layout)
}
