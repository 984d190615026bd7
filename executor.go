package tileio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PartitionFunc processes one partition.
type PartitionFunc func(ctx context.Context, p *Partition) error

// Executor runs work on behalf of datasets. It is passed explicitly to every
// call that needs it; the library keeps no global executor.
type Executor interface {
	// RunFunction runs fn where the data lives and returns its result.
	RunFunction(ctx context.Context, fn func(context.Context) (any, error)) (any, error)
	// RunPartitions calls fn once per partition. Partitions may run in any
	// order and concurrently.
	RunPartitions(ctx context.Context, parts []*Partition, fn PartitionFunc) error
}

// InlineExecutor runs everything in the calling goroutine.
type InlineExecutor struct {
	logger *slog.Logger
}

// NewInlineExecutor returns an executor that runs work in the caller.
// logger may be nil.
func NewInlineExecutor(logger *slog.Logger) *InlineExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineExecutor{logger: logger}
}

// RunFunction implements Executor.
func (e *InlineExecutor) RunFunction(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	id := uuid.NewString()
	e.logger.Debug("executor: run function", "task_id", id)
	return fn(ctx)
}

// RunPartitions implements Executor.
func (e *InlineExecutor) RunPartitions(ctx context.Context, parts []*Partition, fn PartitionFunc) error {
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := uuid.NewString()
		start := time.Now()
		if err := fn(ctx, p); err != nil {
			return fmt.Errorf("partition %d: %w", p.index, err)
		}
		e.logger.Debug("executor: task done", "task_id", id, "partition", p.index,
			"elapsed", time.Since(start))
	}
	return nil
}

// PoolExecutor runs partitions on a bounded pool of goroutines. Each
// partition travels to its worker in serialized form and is rebuilt there,
// as it would be on a remote machine; correction data is shared by
// reference. The first failure cancels the remaining work.
type PoolExecutor struct {
	workers int
	logger  *slog.Logger
}

// NewPoolExecutor returns a pool of the given size. logger may be nil.
func NewPoolExecutor(workers int, logger *slog.Logger) *PoolExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PoolExecutor{workers: max(workers, 1), logger: logger}
}

// Workers returns the pool size.
func (e *PoolExecutor) Workers() int { return e.workers }

// RunFunction implements Executor.
func (e *PoolExecutor) RunFunction(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	type result struct {
		v   any
		err error
	}
	id := uuid.NewString()
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		e.logger.Debug("executor: run function", "task_id", id, "error", r.err)
		return r.v, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunPartitions implements Executor.
func (e *PoolExecutor) RunPartitions(ctx context.Context, parts []*Partition, fn PartitionFunc) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	type task struct {
		id   string
		idx  int
		wire []byte
		src  *frameSource
	}
	tasks := make(chan task)

	var wg sync.WaitGroup
	for range e.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				p, err := RestorePartition(t.wire, t.src.correction, t.src.logger)
				if err == nil {
					err = fn(ctx, p)
				}
				if err != nil {
					cancel(fmt.Errorf("partition %d: %w", t.idx, err))
					continue
				}
				e.logger.Debug("executor: task done", "task_id", t.id, "partition", t.idx)
			}
		}()
	}

dispatch:
	for _, p := range parts {
		wire, err := p.MarshalBinary()
		if err != nil {
			cancel(fmt.Errorf("partition %d: %w", p.index, err))
			break
		}
		select {
		case tasks <- task{id: uuid.NewString(), idx: p.index, wire: wire, src: p.src}:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(tasks)
	wg.Wait()

	if err := context.Cause(ctx); err != nil {
		return err
	}
	return nil
}
