// Package tileio provides partitioned, tiled reads of large detector frame
// stacks. A Dataset maps one or more files onto a logical (nav..., sig...)
// array, splits it into partitions for parallel work and streams each
// partition as corrected tiles.
package tileio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/scigolib/tileio/internal/format"
	_ "github.com/scigolib/tileio/internal/format/blo" // registers "blo"
	_ "github.com/scigolib/tileio/internal/format/raw" // registers "raw"
	"github.com/scigolib/tileio/internal/utils"
)

// Format tags of the built-in backends.
const (
	FormatRaw = "raw"
	FormatBLO = "blo"
)

// Dataset is a logical (nav..., sig...) array over one or more files.
//
// A Dataset is created with New, becomes usable after Initialize and is
// read-only from then on, except for the parallelism hint of SetNumCores.
type Dataset struct {
	format  string
	backend format.Backend
	params  Params

	src       *frameSource
	roi       *ROI
	warnings  []string
	extraKeys map[string]any

	numCores       int
	partitionBytes int64
	tileBytes      int
	logger         *slog.Logger
}

// frameSource is everything needed to read frames. It is shared read-only
// by the dataset and all of its partitions.
type frameSource struct {
	format     string
	backend    format.Backend
	layout     *format.Layout
	fileset    *FileSet
	offset     SyncOffset
	shape      Shape
	roi        *ROI
	correction *CorrectionSet
	logger     *slog.Logger
}

// New validates the static parameters for the given format. The returned
// dataset must be initialized before use.
func New(formatName string, params Params, opts ...Option) (*Dataset, error) {
	backend, ok := format.Lookup(formatName)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFormat, formatName,
			strings.Join(format.Names(), ", "))
	}

	d := &Dataset{
		format:         formatName,
		backend:        backend,
		numCores:       runtime.NumCPU(),
		partitionBytes: DefaultPartitionBytes,
		tileBytes:      DefaultTileBytes,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if len(params.ScanSize) > 0 {
		if len(params.NavShape) > 0 {
			return nil, paramError("scan_size and nav_shape are mutually exclusive")
		}
		msg := "scan_size is deprecated and will be removed, use nav_shape instead"
		d.warnings = append(d.warnings, msg)
		d.logger.Warn("dataset: deprecated parameter", "param", "scan_size", "format", formatName)
		params.NavShape = params.ScanSize
		params.ScanSize = nil
	}
	if params.Path != "" && len(params.Files) > 0 {
		return nil, paramError("path and files are mutually exclusive")
	}
	if params.Path == "" && len(params.Files) == 0 {
		return nil, paramError("path or files required")
	}
	if n := len(params.NavShape); n > 3 {
		return nil, paramError("nav_shape %v has %d dimensions, at most 3 are supported", params.NavShape, n)
	}
	for _, dims := range [][]int{params.NavShape, params.SigShape} {
		for _, v := range dims {
			if v <= 0 {
				return nil, paramError("shape %v has non-positive extent", dims)
			}
		}
	}

	params.Files = slices.Clone(params.Files)
	d.params = params
	return d, nil
}

// Load creates and initializes a dataset in one step.
func Load(ctx context.Context, exec Executor, formatName string, params Params, opts ...Option) (*Dataset, error) {
	d, err := New(formatName, params, opts...)
	if err != nil {
		return nil, err
	}
	return d.Initialize(ctx, exec)
}

type scanResult struct {
	layout    *format.Layout
	counts    []int
	countErrs []error
}

// Initialize resolves file metadata through exec, builds the shape and file
// set and validates every parameter. All parameter errors surface here.
func (d *Dataset) Initialize(ctx context.Context, exec Executor) (*Dataset, error) {
	if d.src != nil {
		return d, nil
	}

	req := format.Request{
		Path:        d.params.Path,
		Files:       d.params.Files,
		SigShape:    d.params.SigShape,
		DType:       d.params.DType,
		HeaderBytes: d.params.HeaderBytes,
		SameOffset:  d.params.SameOffset,
	}
	backend := d.backend

	res, err := exec.RunFunction(ctx, func(ctx context.Context) (any, error) {
		layout, err := backend.Scan(ctx, req)
		if err != nil {
			return nil, err
		}
		sr := &scanResult{
			layout:    layout,
			counts:    make([]int, len(layout.Files)),
			countErrs: make([]error, len(layout.Files)),
		}
		for i, fi := range layout.Files {
			sr.counts[i], sr.countErrs[i] = backend.CountFrames(fi, layout)
		}
		return sr, nil
	})
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, &FileSetError{Path: pe.Path, Reason: "unreadable", Cause: err}
		}
		return nil, paramError("%s: %v", d.format, err)
	}
	sr := res.(*scanResult)
	layout := sr.layout

	i := 0
	files, err := buildFileSet(layout.Files, func(format.FileInfo) (int, error) {
		n, err := sr.counts[i], sr.countErrs[i]
		i++
		return n, err
	})
	if err != nil {
		return nil, err
	}
	imageCount := files.TotalFrames()

	nativeSig := layout.SigShape
	nativeSize, err := utils.Product(nativeSig)
	if err != nil {
		return nil, paramError("%s: native sig_shape %v: %v", d.format, nativeSig, err)
	}
	sig := nativeSig
	if len(d.params.SigShape) > 0 {
		size, err := utils.Product(d.params.SigShape)
		if err != nil {
			return nil, paramError("sig_shape %v: %v", d.params.SigShape, err)
		}
		if size != nativeSize {
			return nil, &TileShapeError{Got: d.params.SigShape, Expected: nativeSize}
		}
		sig = d.params.SigShape
	}

	nav := d.params.NavShape
	if len(nav) == 0 {
		nav = layout.NavShape
	}
	if len(nav) == 0 {
		nav = []int{imageCount}
	}

	shape, err := NavSig(nav, sig)
	if err != nil {
		return nil, paramError("%v", err)
	}

	offset, err := NewSyncOffset(d.params.SyncOffset, imageCount)
	if err != nil {
		return nil, err
	}

	if d.params.ROI != nil {
		if d.roi, err = NewROI(nav, d.params.ROI); err != nil {
			return nil, err
		}
	}

	var corr *CorrectionSet
	if d.params.Dark != nil || d.params.Gain != nil || len(d.params.ExcludedPixels) > 0 {
		corr, err = NewCorrectionSet(sig, d.params.Dark, d.params.Gain, d.params.ExcludedPixels)
		if err != nil {
			return nil, err
		}
	}

	readLayout := &format.Layout{
		SigShape:    slices.Clone(sig),
		DType:       layout.DType,
		FramePrefix: layout.FramePrefix,
	}
	d.extraKeys = layout.Extra
	d.src = &frameSource{
		format:     d.format,
		backend:    d.backend,
		layout:     readLayout,
		fileset:    files,
		offset:     offset,
		shape:      shape,
		roi:        d.roi,
		correction: corr,
		logger:     d.logger,
	}

	d.logger.Info("dataset: initialized",
		"format", d.format,
		"shape", shape.String(),
		"image_count", imageCount,
		"files", files.Len(),
		"sync_offset", offset.Offset(),
	)
	if shape.NavSize() > offset.ImageCount() {
		d.logger.Debug("dataset: fewer physical frames than navigation positions",
			"nav_size", shape.NavSize(), "image_count", imageCount)
	}
	return d, nil
}

// Initialized reports whether Initialize has completed.
func (d *Dataset) Initialized() bool { return d.src != nil }

// Format returns the format tag.
func (d *Dataset) Format() string { return d.format }

// Params returns a copy of the loader parameters after alias resolution.
func (d *Dataset) Params() Params {
	p := d.params
	p.Files = slices.Clone(p.Files)
	p.NavShape = slices.Clone(p.NavShape)
	p.SigShape = slices.Clone(p.SigShape)
	return p
}

// Shape returns the logical shape. It is zero before Initialize.
func (d *Dataset) Shape() Shape {
	if d.src == nil {
		return Shape{}
	}
	return d.src.shape
}

// FileSet returns the physical file set.
func (d *Dataset) FileSet() *FileSet {
	if d.src == nil {
		return nil
	}
	return d.src.fileset
}

// ImageCount returns the number of physical frames.
func (d *Dataset) ImageCount() int {
	if d.src == nil {
		return 0
	}
	return d.src.fileset.TotalFrames()
}

// SyncOffset returns the validated offset resolver.
func (d *Dataset) SyncOffset() SyncOffset {
	if d.src == nil {
		return SyncOffset{}
	}
	return d.src.offset
}

// ROI returns the default ROI, nil when every frame is selected.
func (d *Dataset) ROI() *ROI { return d.roi }

// Correction returns the correction set, nil when none is configured.
func (d *Dataset) Correction() *CorrectionSet {
	if d.src == nil {
		return nil
	}
	return d.src.correction
}

// DType returns the element type of the stored frames.
func (d *Dataset) DType() string {
	if d.src == nil {
		return ""
	}
	return d.src.layout.DType.String()
}

// Warnings returns deprecation notices raised while creating the dataset.
func (d *Dataset) Warnings() []string { return slices.Clone(d.warnings) }

// SetNumCores updates the parallelism hint used by Partitions.
func (d *Dataset) SetNumCores(n int) {
	if n > 0 {
		d.numCores = n
	}
}

// NumCores returns the parallelism hint.
func (d *Dataset) NumCores() int { return d.numCores }

// NumPartitions returns how many partitions Partitions yields.
func (d *Dataset) NumPartitions() int {
	return len(d.partitionBounds())
}

// partitionTarget is the requested partition count: enough partitions to
// keep each near the byte target and at least one per core, but never more
// than there are frames.
func (d *Dataset) partitionTarget() int {
	frames := d.src.shape.NavSize()
	total := int64(frames) * int64(d.src.frameBytes())
	n := int((total + d.partitionBytes - 1) / d.partitionBytes)
	n = max(n, d.numCores, 1)
	return min(n, frames)
}

// partitionBounds splits the logical frames into runs of frames/target
// frames. The last run absorbs the remainder, so the actual count can
// exceed the target by one.
func (d *Dataset) partitionBounds() [][2]int {
	if d.src == nil {
		return nil
	}
	frames := d.src.shape.NavSize()
	per := max(1, frames/d.partitionTarget())
	var bounds [][2]int
	for start := 0; start < frames; start += per {
		stop := start + per
		if start+2*per > frames {
			stop = frames
		}
		bounds = append(bounds, [2]int{start, stop})
		if stop == frames {
			break
		}
	}
	return bounds
}

// Partitions yields contiguous, non-overlapping partitions covering every
// logical frame exactly once. Frames beyond the physically available data
// are still covered; their tiles are simply empty.
func (d *Dataset) Partitions() iter.Seq[*Partition] {
	return func(yield func(*Partition) bool) {
		for idx, b := range d.partitionBounds() {
			p := &Partition{src: d.src, index: idx, start: b[0], num: b[1] - b[0]}
			d.logger.Debug("dataset: partition", "index", idx, "start", p.start, "frames", p.num)
			if !yield(p) {
				return
			}
		}
	}
}

// PartitionList collects Partitions into a slice.
func (d *Dataset) PartitionList() []*Partition {
	return slices.Collect(d.Partitions())
}

// DefaultTilingScheme returns a scheme whose tiles hold about WithTileBytes
// worth of decoded frames.
func (d *Dataset) DefaultTilingScheme() (*TilingScheme, error) {
	if d.src == nil {
		return nil, ErrNotInitialized
	}
	sigSize := d.src.shape.SigSize()
	depth := max(1, d.tileBytes/(sigSize*8))
	tile, err := NavSig([]int{depth}, d.src.shape.Sig())
	if err != nil {
		return nil, err
	}
	return NewTilingScheme(tile, d.src.shape, 0)
}

// CheckValid checks, without reading frame payloads, that every file
// still exists, parses and holds the frames recorded in the file set.
func (d *Dataset) CheckValid() (bool, error) {
	if d.src == nil {
		return false, ErrNotInitialized
	}
	layout := *d.src.layout
	for _, e := range d.src.fileset.entries {
		fi, err := os.Stat(e.Path)
		if err != nil {
			return false, &FileSetError{Path: e.Path, Reason: "missing", Cause: err}
		}
		if fi.IsDir() {
			return false, &FileSetError{Path: e.Path, Reason: "is a directory"}
		}
		n, err := d.backend.CountFrames(e.info(), &layout)
		if err != nil {
			return false, &FileSetError{Path: e.Path, Reason: "unreadable", Cause: err}
		}
		if n != e.NumFrames() {
			return false, &FileSetError{Path: e.Path,
				Reason: fmt.Sprintf("holds %d frames, expected %d", n, e.NumFrames())}
		}
	}
	return true, nil
}

// Diagnostics returns a human-readable summary.
func (d *Dataset) Diagnostics() []KeyValue {
	if d.src == nil {
		return nil
	}
	return []KeyValue{
		{Name: "Format", Value: d.format},
		{Name: "Shape", Value: d.src.shape.String()},
		{Name: "Image count", Value: fmt.Sprint(d.ImageCount())},
		{Name: "Files", Value: fmt.Sprint(d.src.fileset.Len())},
		{Name: "Data type", Value: d.DType()},
		{Name: "Sync offset", Value: fmt.Sprint(d.src.offset.Offset())},
		{Name: "Partitions", Value: fmt.Sprint(d.NumPartitions())},
	}
}

// KeyValue is one diagnostics line.
type KeyValue struct {
	Name  string
	Value string
}

func (d *Dataset) String() string {
	name := strings.ToUpper(d.format[:1]) + d.format[1:] + "DataSet"
	switch {
	case len(d.params.Files) > 0:
		return fmt.Sprintf("<%s for a stack of %d files>", name, len(d.params.Files))
	default:
		return fmt.Sprintf("<%s for %s>", name, d.params.Path)
	}
}

func (s *frameSource) frameBytes() int {
	return s.shape.SigSize() * s.layout.DType.ItemSize
}
