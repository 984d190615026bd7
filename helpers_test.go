package tileio

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	memtest "github.com/scigolib/tileio/internal/testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func inline() Executor {
	return NewInlineExecutor(quietLogger())
}

// loadMem resets the in-memory backend to files with the given frame
// counts and loads them with params. params.Files is filled in.
func loadMem(t *testing.T, sig []int, counts []int, params Params, opts ...Option) *Dataset {
	t.Helper()
	params.Files = memtest.Mem.Reset(sig, counts...)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	ds, err := Load(context.Background(), inline(), memtest.MemName, params, opts...)
	require.NoError(t, err)
	return ds
}

func schemeFor(t *testing.T, ds *Dataset, depth int) *TilingScheme {
	t.Helper()
	tile, err := NavSig([]int{depth}, ds.Shape().Sig())
	require.NoError(t, err)
	ts, err := NewTilingScheme(tile, ds.Shape(), 0)
	require.NoError(t, err)
	return ts
}

// collectTiles streams p and returns copies of all tiles.
func collectTiles(t *testing.T, p *Partition, scheme *TilingScheme, roi *ROI) []Tile {
	t.Helper()
	var tiles []Tile
	err := p.ForEachTile(context.Background(), scheme, roi, func(tile *Tile) error {
		tiles = append(tiles, Tile{
			Slice:   tile.Slice,
			Frames:  append([]int(nil), tile.Frames...),
			Data:    append([]float64(nil), tile.Data...),
			sigSize: tile.sigSize,
		})
		return nil
	})
	require.NoError(t, err)
	return tiles
}

// memFrameSum is the sum over a frame of sigSize pixels produced by the
// default in-memory pixel generator.
func memFrameSum(physical, sigSize int) float64 {
	return float64(physical*1000*sigSize + sigSize*(sigSize-1)/2)
}
