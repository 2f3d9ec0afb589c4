package utils

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// IndexedFunc does the work for item i of a batch.
type IndexedFunc func(ctx context.Context, i int) error

// ForEachIndex runs f for every index in [0, n) with at most limit calls in flight
// (ParallelFactor when limit <= 0). The first failure cancels the context seen by the
// remaining calls and is returned; calls that have not started yet are skipped.
func ForEachIndex(ctx context.Context, n, limit int, f IndexedFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(limit))
	for i := 0; i < n; i++ {
		i := i // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return runCapturingPanic(ctx, i, f)
		})
	}
	return g.Wait()
}

// ForEachIndexCollect runs f for every index in [0, n) regardless of failures of other
// calls and returns the error of each call by index, nil where the call succeeded.
// Once ctx is done, calls that have not started yet record ctx.Err() instead of running.
func ForEachIndexCollect(ctx context.Context, n, limit int, f IndexedFunc) []error {
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(workerLimit(limit))
	for i := 0; i < n; i++ {
		i := i // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = runCapturingPanic(ctx, i, f)
			return nil
		})
	}
	//nolint:errcheck
	g.Wait()
	return errs
}

func workerLimit(limit int) int {
	if limit <= 0 {
		return ParallelFactor
	}
	return limit
}

func runCapturingPanic(ctx context.Context, i int, f IndexedFunc) (err error) {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			err = errors.Errorf("got panic running item %d in parallel: %v", i, thePanic)
		}
	}()
	return f(ctx, i)
}
