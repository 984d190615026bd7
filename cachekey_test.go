package tileio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/tileio/internal/testing/fixtures"
)

func TestCacheKeyStable(t *testing.T) {
	a := loadMem(t, []int{4, 4}, []int{5, 5}, Params{NavShape: []int{2, 5}}, WithNumCores(1))
	b := loadMem(t, []int{4, 4}, []int{5, 5}, Params{NavShape: []int{2, 5}}, WithNumCores(8),
		WithPartitionBytes(1024), WithTileBytes(512))

	ka, err := a.CacheKeyJSON()
	require.NoError(t, err)
	kb, err := b.CacheKeyJSON()
	require.NoError(t, err)
	require.Equal(t, string(ka), string(kb))

	again, err := a.CacheKeyJSON()
	require.NoError(t, err)
	require.Equal(t, ka, again)

	key, err := a.CacheKey()
	require.NoError(t, err)
	require.Equal(t, "mem", key["type"])
	require.Equal(t, []int{2, 5}, key["nav_shape"])
	require.Equal(t, []int{4, 4}, key["sig_shape"])
	require.Equal(t, 0, key["sync_offset"])
	require.Equal(t, 10, key["image_count"])
	require.Equal(t, "<f8", key["dtype"])
	require.Equal(t, []string{"mem://file000", "mem://file001"}, key["files"])
	require.NotContains(t, key, "correction")
	require.NotContains(t, key, "roi")
}

func TestCacheKeyDistinguishesReads(t *testing.T) {
	key := func(params Params) string {
		ds := loadMem(t, []int{2, 2}, []int{10}, params)
		data, err := ds.CacheKeyJSON()
		require.NoError(t, err)
		return string(data)
	}

	base := key(Params{})
	roi := make([]bool, 10)
	roi[3] = true
	variants := map[string]Params{
		"offset":   {SyncOffset: 1},
		"nav":      {NavShape: []int{2, 5}},
		"sig":      {SigShape: []int{4, 1}},
		"roi":      {ROI: roi},
		"dark":     {Dark: []float64{1, 1, 1, 1}},
		"excluded": {ExcludedPixels: [][]int{{0, 0}}},
	}
	seen := map[string]string{"base": base}
	for name, params := range variants {
		k := key(params)
		for other, ok := range seen {
			require.NotEqual(t, ok, k, "%s collides with %s", name, other)
		}
		seen[name] = k
	}
}

func TestCacheKeyRaw(t *testing.T) {
	dir := t.TempDir()
	paths := fixtures.WriteRaw(t, dir, []int{4, 4}, "u1", 8, 2, 2)

	load := func(header int64) map[string]any {
		ds, err := Load(context.Background(), inline(), FormatRaw, Params{
			Files:       paths,
			SigShape:    []int{4, 4},
			DType:       "u1",
			HeaderBytes: header,
		}, WithLogger(quietLogger()))
		require.NoError(t, err)
		key, err := ds.CacheKey()
		require.NoError(t, err)
		return key
	}

	key := load(8)
	require.Equal(t, "raw", key["type"])
	require.Equal(t, int64(8), key["header_bytes"])
	require.Equal(t, "u1", key["dtype"])
	require.Equal(t, paths, key["files"])

	require.NotEqual(t, key, load(-1))
}

func TestCacheKeyBlo(t *testing.T) {
	path := fixtures.WriteBlo(t, t.TempDir(), 2, 3, 4, 6)
	ds, err := Load(context.Background(), inline(), FormatBLO, Params{Path: path}, WithLogger(quietLogger()))
	require.NoError(t, err)

	key, err := ds.CacheKey()
	require.NoError(t, err)
	require.Equal(t, path, key["path"])
	require.NotContains(t, key, "files")
}
