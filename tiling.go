package tileio

import (
	"fmt"
	"iter"
	"slices"
)

// TilingScheme cuts partitions into tiles of a fixed frame depth that
// always span the full signal extent.
type TilingScheme struct {
	depth int
	sig   []int
}

// NewTilingScheme derives a scheme from a requested tile shape
// (depth, sig...). The signal part must equal the dataset's signal shape.
// The depth is lowered to the dataset's frame count and, when tileDepth is
// positive, to tileDepth.
func NewTilingScheme(tileShape, datasetShape Shape, tileDepth int) (*TilingScheme, error) {
	if tileShape.IsZero() || datasetShape.IsZero() {
		return nil, fmt.Errorf("%w: empty shape", ErrTileShape)
	}
	if tileShape.NavDims() != 1 {
		return nil, fmt.Errorf("%w: tile shape %v needs exactly one leading frame dimension",
			ErrTileShape, tileShape.dims)
	}

	sig := datasetShape.Sig()
	tileSig := tileShape.Sig()
	if tileShape.SigSize() != datasetShape.SigSize() {
		return nil, &TileShapeError{Got: tileSig, Expected: datasetShape.SigSize()}
	}
	if !slices.Equal(tileSig, sig) {
		return nil, fmt.Errorf("%w: tile signal shape %v differs from dataset signal shape %v",
			ErrTileShape, tileSig, sig)
	}

	depth := min(tileShape.dims[0], datasetShape.NavSize())
	if tileDepth > 0 {
		depth = min(depth, tileDepth)
	}
	return &TilingScheme{depth: depth, sig: sig}, nil
}

// Depth returns the nominal number of frames per tile.
func (ts *TilingScheme) Depth() int { return ts.depth }

// Sig returns the signal shape every tile covers.
func (ts *TilingScheme) Sig() []int { return slices.Clone(ts.sig) }

// TileShape returns the nominal tile shape.
func (ts *TilingScheme) TileShape() Shape {
	return Shape{dims: append([]int{ts.depth}, ts.sig...), sigDims: len(ts.sig)}
}

// Slices yields consecutive tile slices covering frames [start, start+n).
// Only the last slice may be shorter than Depth. The sequence can be
// ranged over any number of times.
func (ts *TilingScheme) Slices(start, n int) iter.Seq[Slice] {
	return func(yield func(Slice) bool) {
		end := start + n
		for s := start; s < end; s += ts.depth {
			if !yield(frameSlice(s, min(ts.depth, end-s), ts.sig)) {
				return
			}
		}
	}
}

// TilesForPartition yields the tile slices of p.
func (ts *TilingScheme) TilesForPartition(p *Partition) iter.Seq[Slice] {
	return ts.Slices(p.start, p.num)
}

// NumTiles returns how many slices cover n frames.
func (ts *TilingScheme) NumTiles(n int) int {
	return (n + ts.depth - 1) / ts.depth
}

func (ts *TilingScheme) String() string {
	return fmt.Sprintf("<TilingScheme depth=%d sig=%v>", ts.depth, ts.sig)
}
