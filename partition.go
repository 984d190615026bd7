// Copyright (c) 2025 SciGo Tileio Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package tileio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/scigolib/tileio/internal/dtype"
	"github.com/scigolib/tileio/internal/format"
)

// Partition is a contiguous range of logical frames handed to one worker.
//
// Partitions share no mutable state. Each call to Tiles opens its own file
// handles, so a partition can be streamed any number of times and many
// partitions can be streamed concurrently.
type Partition struct {
	src   *frameSource
	index int
	start int
	num   int
}

// Index returns the position of the partition in its dataset.
func (p *Partition) Index() int { return p.index }

// StartFrame returns the first logical frame.
func (p *Partition) StartFrame() int { return p.start }

// NumFrames returns the number of logical frames.
func (p *Partition) NumFrames() int { return p.num }

// Shape returns the partition shape (frames, sig...).
func (p *Partition) Shape() Shape {
	return frameSlice(p.start, p.num, p.src.shape.Sig()).Shape
}

// Slice returns the block of the flattened dataset the partition covers.
func (p *Partition) Slice() Slice {
	return frameSlice(p.start, p.num, p.src.shape.Sig())
}

// PhysicalRange returns the physical frames [start, end) the partition
// reads, after applying the sync offset and clipping to the data present.
func (p *Partition) PhysicalRange() (int, int) {
	return p.src.offset.PhysicalRange(p.start, p.start+p.num)
}

// Files returns the files the partition needs to open.
func (p *Partition) Files() []FileEntry {
	start, end := p.PhysicalRange()
	return p.src.fileset.FilesForRange(start, end)
}

// Tiles returns an iterator over the tiles of the partition. A nil roi
// applies the dataset's default ROI; a non-nil roi replaces it. The ROI is
// validated here, before any file is opened.
func (p *Partition) Tiles(ctx context.Context, scheme *TilingScheme, roi *ROI) (*TileIterator, error) {
	if scheme == nil {
		return nil, fmt.Errorf("%w: nil tiling scheme", ErrTileShape)
	}
	if len(scheme.sig) != p.src.shape.SigDims() || scheme.TileShape().SigSize() != p.src.shape.SigSize() {
		return nil, &TileShapeError{Got: scheme.Sig(), Expected: p.src.shape.SigSize()}
	}
	if roi == nil {
		roi = p.src.roi
	}
	if roi != nil && roi.Size() != p.src.shape.NavSize() {
		return nil, paramError("roi has %d entries, dataset has %d frames", roi.Size(), p.src.shape.NavSize())
	}
	return newTileIterator(ctx, p, scheme, roi), nil
}

// ForEachTile streams every tile to fn and releases all file handles on
// return, including when fn fails or ctx is cancelled.
func (p *Partition) ForEachTile(ctx context.Context, scheme *TilingScheme, roi *ROI, fn func(*Tile) error) (err error) {
	it, err := p.Tiles(ctx, scheme, roi)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()

	for it.Next() {
		if err := fn(it.Tile()); err != nil {
			return err
		}
	}
	return it.Err()
}

func (p *Partition) String() string {
	return fmt.Sprintf("<Partition %d frames [%d, %d)>", p.index, p.start, p.start+p.num)
}

// Meta is the small, serializable description of a dataset shipped to
// workers. File handles and caches are rebuilt on the worker.
type Meta struct {
	Format      string `msgpack:"f"`
	NavShape    []int  `msgpack:"n"`
	SigShape    []int  `msgpack:"s"`
	ImageCount  int    `msgpack:"c"`
	SyncOffset  int    `msgpack:"o"`
	DType       string `msgpack:"t"`
	FramePrefix int64  `msgpack:"p,omitempty"`
}

// metaWire has Meta's fields but none of its methods, so msgpack encodes
// the struct instead of calling back into MarshalBinary.
type metaWire Meta

// MarshalBinary encodes m with msgpack.
func (m *Meta) MarshalBinary() ([]byte, error) { return msgpack.Marshal((*metaWire)(m)) }

// UnmarshalBinary decodes m from msgpack.
func (m *Meta) UnmarshalBinary(data []byte) error { return msgpack.Unmarshal(data, (*metaWire)(m)) }

// Meta returns the serializable dataset metadata.
func (d *Dataset) Meta() *Meta {
	if d.src == nil {
		return nil
	}
	return d.src.meta()
}

func (s *frameSource) meta() *Meta {
	return &Meta{
		Format:      s.format,
		NavShape:    s.shape.Nav(),
		SigShape:    s.shape.Sig(),
		ImageCount:  s.offset.ImageCount(),
		SyncOffset:  s.offset.Offset(),
		DType:       s.layout.DType.String(),
		FramePrefix: s.layout.FramePrefix,
	}
}

// PartitionDescriptor is the wire form of a partition. ROI is the
// dataset's default ROI packed one bit per frame, empty when every frame
// is selected.
type PartitionDescriptor struct {
	Meta  Meta        `msgpack:"m"`
	Files []FileEntry `msgpack:"fs"`
	Index int         `msgpack:"i"`
	Start int         `msgpack:"a"`
	Num   int         `msgpack:"b"`
	ROI   []byte      `msgpack:"r,omitempty"`
}

// MarshalBinary encodes the partition for shipping to a worker.
// Correction data is not included; it is shared by reference.
func (p *Partition) MarshalBinary() ([]byte, error) {
	desc := &PartitionDescriptor{
		Meta:  *p.src.meta(),
		Files: p.src.fileset.entries,
		Index: p.index,
		Start: p.start,
		Num:   p.num,
	}
	if p.src.roi != nil {
		desc.ROI = packMask(p.src.roi.mask)
	}
	return msgpack.Marshal(desc)
}

// RestorePartition rebuilds a partition from its wire form. corr is the
// dataset's correction set (may be nil) and logger may be nil.
func RestorePartition(data []byte, corr *CorrectionSet, logger *slog.Logger) (*Partition, error) {
	var desc PartitionDescriptor
	if err := msgpack.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("decode partition: %w", err)
	}

	backend, ok := format.Lookup(desc.Meta.Format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, desc.Meta.Format)
	}
	if err := checkEntries(desc.Files); err != nil {
		return nil, err
	}
	fileset := &FileSet{entries: desc.Files}
	if fileset.TotalFrames() != desc.Meta.ImageCount {
		return nil, &FileSetError{Reason: fmt.Sprintf("files hold %d frames, metadata says %d",
			fileset.TotalFrames(), desc.Meta.ImageCount)}
	}
	dt, err := dtype.Parse(desc.Meta.DType)
	if err != nil {
		return nil, fmt.Errorf("decode partition: %w", err)
	}
	shape, err := NavSig(desc.Meta.NavShape, desc.Meta.SigShape)
	if err != nil {
		return nil, err
	}
	offset, err := NewSyncOffset(desc.Meta.SyncOffset, desc.Meta.ImageCount)
	if err != nil {
		return nil, err
	}
	if desc.Start < 0 || desc.Num <= 0 || desc.Start+desc.Num > shape.NavSize() {
		return nil, paramError("partition [%d, %d) outside %d frames", desc.Start, desc.Start+desc.Num, shape.NavSize())
	}
	var roi *ROI
	if len(desc.ROI) > 0 {
		mask, err := unpackMask(desc.ROI, shape.NavSize())
		if err != nil {
			return nil, fmt.Errorf("decode partition: %w", err)
		}
		if roi, err = NewROI(shape.Nav(), mask); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	src := &frameSource{
		format:  desc.Meta.Format,
		backend: backend,
		layout: &format.Layout{
			SigShape:    desc.Meta.SigShape,
			DType:       dt,
			FramePrefix: desc.Meta.FramePrefix,
		},
		fileset:    fileset,
		offset:     offset,
		shape:      shape,
		roi:        roi,
		correction: corr,
		logger:     logger,
	}
	return &Partition{src: src, index: desc.Index, start: desc.Start, num: desc.Num}, nil
}
