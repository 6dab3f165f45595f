// Package parallel runs independent units of work on a bounded pool of
// goroutines.
//
// Results are returned in input order regardless of completion order, and the
// first failure cancels the work that has not started yet.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds the number of goroutines working at once
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool. A non-positive size uses one
// worker per CPU.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Workers returns the pool size
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessIndexed applies worker to every item and returns the results in
// input order.
//
// On failure the first error is returned together with the results computed
// so far; slots of items that failed or never ran hold the zero value, so a
// caller owning resources in R can still release what was produced.
func ProcessIndexed[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := worker(gctx, i, item)
			if err != nil {
				return err
			}
			// each goroutine owns its slot
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
