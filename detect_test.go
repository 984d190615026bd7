package tileio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/tileio/internal/testing/fixtures"
)

func TestDetectBlo(t *testing.T) {
	path := fixtures.WriteBlo(t, t.TempDir(), 2, 3, 4, 6)
	ctx := context.Background()

	res, ok, err := DetectParams(ctx, inline(), FormatBLO, path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, FormatBLO, res.Format)
	require.Equal(t, path, res.Parameters["path"])

	params, err := ParamsFromMap(res.Parameters)
	require.NoError(t, err)
	ds, err := Load(ctx, inline(), res.Format, params, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 4, 4}, ds.Shape().Dims())

	found, ok, err := DetectFormat(ctx, NewPoolExecutor(1, quietLogger()), path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, FormatBLO, found.Format)
}

func TestDetectNoMatch(t *testing.T) {
	ctx := context.Background()

	res, ok, err := DetectParams(ctx, inline(), FormatBLO, "nofile.someext")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, res)

	_, ok, err = DetectFormat(ctx, inline(), "nofile.someext")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = DetectParams(ctx, inline(), "tiff", "x.tif")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDetectRaw(t *testing.T) {
	paths := fixtures.WriteRaw(t, t.TempDir(), []int{4, 4}, "u1", 0, 3)

	res, ok, err := DetectFormat(context.Background(), inline(), paths[0])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, FormatRaw, res.Format)

	params, err := ParamsFromMap(res.Parameters)
	require.NoError(t, err)
	require.Equal(t, paths, params.Files)
}
