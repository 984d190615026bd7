package tileio

import (
	"context"
	"sync"
)

// SumSig returns, per logical frame, the sum over the signal dimensions.
// Frames that are not present (ROI, sync offset, missing data) are 0.
// roi nil uses the dataset default.
func SumSig(ctx context.Context, exec Executor, ds *Dataset, roi *ROI) ([]float64, error) {
	scheme, err := ds.DefaultTilingScheme()
	if err != nil {
		return nil, err
	}

	out := make([]float64, ds.Shape().NavSize())
	var mu sync.Mutex
	err = exec.RunPartitions(ctx, ds.PartitionList(), func(ctx context.Context, p *Partition) error {
		local := make(map[int]float64, p.NumFrames())
		err := p.ForEachTile(ctx, scheme, roi, func(t *Tile) error {
			for i, f := range t.Frames {
				sum := 0.0
				for _, v := range t.Frame(i) {
					sum += v
				}
				local[f] = sum
			}
			return nil
		})
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for f, v := range local {
			out[f] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SumFrames returns the pixelwise sum of all present frames. roi nil uses
// the dataset default.
func SumFrames(ctx context.Context, exec Executor, ds *Dataset, roi *ROI) ([]float64, error) {
	scheme, err := ds.DefaultTilingScheme()
	if err != nil {
		return nil, err
	}

	sigSize := ds.Shape().SigSize()
	out := make([]float64, sigSize)
	var mu sync.Mutex
	err = exec.RunPartitions(ctx, ds.PartitionList(), func(ctx context.Context, p *Partition) error {
		local := make([]float64, sigSize)
		err := p.ForEachTile(ctx, scheme, roi, func(t *Tile) error {
			for i := range t.Frames {
				for j, v := range t.Frame(i) {
					local[j] += v
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for j, v := range local {
			out[j] += v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PickFrame returns a copy of one logical frame, or false when the frame
// is not present.
func PickFrame(ctx context.Context, ds *Dataset, index int) ([]float64, bool, error) {
	if !ds.Initialized() {
		return nil, false, ErrNotInitialized
	}
	nav := ds.Shape().Nav()
	roi, err := ROIFromIndices(nav, index)
	if err != nil {
		return nil, false, err
	}
	tile, err := NavSig([]int{1}, ds.Shape().Sig())
	if err != nil {
		return nil, false, err
	}
	scheme, err := NewTilingScheme(tile, ds.Shape(), 0)
	if err != nil {
		return nil, false, err
	}

	for p := range ds.Partitions() {
		if index < p.StartFrame() || index >= p.StartFrame()+p.NumFrames() {
			continue
		}
		var frame []float64
		err := p.ForEachTile(ctx, scheme, roi, func(t *Tile) error {
			frame = append([]float64(nil), t.Frame(0)...)
			return nil
		})
		return frame, frame != nil, err
	}
	return nil, false, nil
}
