package tileio

import (
	"context"
	"fmt"

	"github.com/scigolib/tileio/internal/format"
	"github.com/scigolib/tileio/internal/utils"
)

// Tile is a block of decoded, corrected frames from one partition.
//
// Slice spans the present frames: its origin is the first frame in Frames
// and its depth reaches the last one. Frames lists the logical frame
// indices actually present, in ascending order; frames excluded by the ROI,
// by the sync offset or missing from the files are absent. Data holds
// len(Frames) signal-shaped frames in row-major order.
//
// Data and Frames are only valid until the next call to Next or Close.
type Tile struct {
	Slice  Slice
	Frames []int
	Data   []float64

	sigSize int
}

// Frame returns the decoded data of the i-th present frame.
func (t *Tile) Frame(i int) []float64 {
	return t.Data[i*t.sigSize : (i+1)*t.sigSize]
}

// IteratorState is the lifecycle stage of a TileIterator.
type IteratorState int

// Iterator states.
const (
	StateCreated IteratorState = iota
	StateStreaming
	StateExhausted
	StateClosed
)

func (s IteratorState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStreaming:
		return "streaming"
	case StateExhausted:
		return "exhausted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("IteratorState(%d)", int(s))
	}
}

// TileIterator streams the tiles of one partition, one at a time.
//
// Usage:
//
//	it, err := partition.Tiles(ctx, scheme, nil)
//	if err != nil {
//	    return err
//	}
//	defer it.Close()
//	for it.Next() {
//	    process(it.Tile())
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
//
// The iterator follows the scanner pattern (bufio.Scanner). At most one
// open file and one tile of decoded data are held at any time. File handles
// are released when the iterator is exhausted, fails or is closed; Close
// must be called when abandoning iteration early.
type TileIterator struct {
	ctx    context.Context
	p      *Partition
	scheme *TilingScheme
	roi    *ROI

	cursor   int // next tile slice start
	current  int // tiles yielded so far
	total    int
	state    IteratorState
	err      error
	tile     Tile
	data     []float64
	raw      []byte
	openFile format.FrameFile
	openPath string

	onProgress func(current, total int)
}

func newTileIterator(ctx context.Context, p *Partition, scheme *TilingScheme, roi *ROI) *TileIterator {
	if ctx == nil {
		ctx = context.Background()
	}
	return &TileIterator{
		ctx:    ctx,
		p:      p,
		scheme: scheme,
		roi:    roi,
		cursor: p.start,
		total:  scheme.NumTiles(p.num),
		state:  StateCreated,
	}
}

// Next advances to the next non-empty tile. It returns false when the
// partition is exhausted, the context is cancelled or a read failed; check
// Err to distinguish.
func (it *TileIterator) Next() bool {
	if it.err != nil || it.state == StateExhausted || it.state == StateClosed {
		return false
	}
	it.state = StateStreaming

	end := it.p.start + it.p.num
	for it.cursor < end {
		if err := it.ctx.Err(); err != nil {
			it.fail(err)
			return false
		}

		n := min(it.scheme.depth, end-it.cursor)
		start := it.cursor
		it.cursor += n
		it.current++

		ok, err := it.load(start, n)
		if err != nil {
			it.fail(err)
			return false
		}
		if it.onProgress != nil {
			it.onProgress(it.current, it.total)
		}
		if ok {
			return true
		}
	}

	it.release()
	it.state = StateExhausted
	return false
}

// load fills the tile with the present frames of [start, start+n) and
// reports whether any frame was present.
func (it *TileIterator) load(start, n int) (bool, error) {
	src := it.p.src
	sigSize := src.shape.SigSize()

	if it.data == nil {
		it.data = utils.GetFloat64s(it.scheme.depth * sigSize)
		it.raw = utils.GetBuffer(src.frameBytes())
	}

	frames := it.tile.Frames[:0]
	total := src.fileset.TotalFrames()
	for i := start; i < start+n; i++ {
		if !it.roi.Selected(i) {
			continue
		}
		phys, ok := src.offset.ToPhysical(i)
		if !ok || phys >= total {
			continue
		}
		dst := it.data[len(frames)*sigSize : (len(frames)+1)*sigSize]
		if err := it.readFrame(phys, dst); err != nil {
			it.tile.Frames = frames[:0]
			return false, err
		}
		frames = append(frames, i)
	}
	it.tile.Frames = frames
	if len(frames) == 0 {
		return false, nil
	}

	data := it.data[:len(frames)*sigSize]
	src.correction.applyInPlace(data)

	first, last := frames[0], frames[len(frames)-1]
	it.tile.Slice = frameSlice(first, last-first+1, it.scheme.sig)
	it.tile.Data = data
	it.tile.sigSize = sigSize
	return true, nil
}

func (it *TileIterator) readFrame(phys int, dst []float64) error {
	src := it.p.src
	entry, ok := src.fileset.FileForFrame(phys)
	if !ok {
		return fmt.Errorf("physical frame %d outside file set", phys)
	}

	if it.openFile == nil || it.openPath != entry.Path {
		if err := it.closeFile(); err != nil {
			return err
		}
		f, err := src.backend.Open(entry.info(), src.layout)
		if err != nil {
			return utils.WrapReadError(entry.Path, -1, err)
		}
		it.openFile, it.openPath = f, entry.Path
		src.logger.Debug("partition: opened file", "partition", it.p.index, "path", entry.Path)
	}

	if err := it.openFile.ReadFrame(phys-entry.StartIdx, it.raw); err != nil {
		return utils.WrapReadError(entry.Path, phys, err)
	}
	if err := src.layout.DType.Decode(it.raw, dst); err != nil {
		return utils.WrapReadError(entry.Path, phys, err)
	}
	return nil
}

// Tile returns the current tile. It must be called after Next returns true.
func (it *TileIterator) Tile() *Tile {
	if it.state != StateStreaming || len(it.tile.Frames) == 0 {
		return nil
	}
	return &it.tile
}

// Err returns the first error encountered, or nil.
func (it *TileIterator) Err() error {
	return it.err
}

// State returns the lifecycle stage.
func (it *TileIterator) State() IteratorState { return it.state }

// Progress returns the number of tile slices consumed and the total.
func (it *TileIterator) Progress() (current, total int) {
	return it.current, it.total
}

// OnProgress sets a callback invoked after each tile slice is consumed,
// including slices that turn out empty.
func (it *TileIterator) OnProgress(fn func(current, total int)) {
	it.onProgress = fn
}

// Reset rewinds the iterator to the first tile. Files are reopened lazily.
func (it *TileIterator) Reset() {
	_ = it.closeFile()
	it.cursor = it.p.start
	it.current = 0
	it.err = nil
	it.tile = Tile{}
	it.state = StateCreated
}

// Close releases file handles and buffers. It is safe to call Close
// multiple times.
func (it *TileIterator) Close() error {
	err := it.closeFile()
	it.release()
	it.state = StateClosed
	return err
}

func (it *TileIterator) fail(err error) {
	it.err = err
	it.release()
	it.state = StateExhausted
}

// release drops the open file and returns pooled buffers.
func (it *TileIterator) release() {
	if err := it.closeFile(); err != nil && it.err == nil {
		it.err = err
	}
	utils.ReleaseFloat64s(it.data)
	utils.ReleaseBuffer(it.raw)
	it.data, it.raw = nil, nil
	it.tile.Data = nil
}

func (it *TileIterator) closeFile() error {
	if it.openFile == nil {
		return nil
	}
	err := it.openFile.Close()
	it.openFile, it.openPath = nil, ""
	return err
}
