package tileio

import "log/slog"

// Default sizing of partitions and tiles.
const (
	DefaultPartitionBytes = 512 * 1024 * 1024
	DefaultTileBytes      = 1024 * 1024
)

// Option configures runtime-only knobs of a Dataset. Options never affect
// read results and are not part of the cache key.
type Option func(*Dataset)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dataset) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithNumCores hints the available parallelism used to size partitions.
func WithNumCores(n int) Option {
	return func(d *Dataset) {
		if n > 0 {
			d.numCores = n
		}
	}
}

// WithPartitionBytes sets the target payload size of one partition.
func WithPartitionBytes(n int64) Option {
	return func(d *Dataset) {
		if n > 0 {
			d.partitionBytes = n
		}
	}
}

// WithTileBytes sets the target payload size of tiles in DefaultTilingScheme.
func WithTileBytes(n int) Option {
	return func(d *Dataset) {
		if n > 0 {
			d.tileBytes = n
		}
	}
}
