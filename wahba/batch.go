package wahba

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/wahba/linalg"
	"go.viam.com/wahba/utils"
)

// SolveBatch solves every matrix of the batch independently and in parallel. Results
// are returned in input order.
//
// With the FailFast policy the first failure cancels the remaining work and the
// returned slice is nil. With CollectErrors every element is attempted, failed
// elements are nil in the result and the error is a *BatchError.
func (s *Solver) SolveBatch(ctx context.Context, batch []*linalg.CostMatrix) ([]*Forward, error) {
	out := make([]*Forward, len(batch))
	err := s.runBatch(ctx, len(batch), func(ctx context.Context, i int) error {
		f, err := s.Forward(batch[i])
		if err != nil {
			return err
		}
		out[i] = f
		return nil
	})
	return batchResult(s.cfg.BatchPolicy, out, err)
}

// BackwardBatch runs Backward on every forward result with its upstream gradient,
// under the same policy as SolveBatch.
func (s *Solver) BackwardBatch(
	ctx context.Context,
	forwards []*Forward,
	upstream [][linalg.Dim]float64,
) ([]*mat.Dense, error) {
	if len(forwards) != len(upstream) {
		return nil, errors.Wrapf(ErrInputValidation, "got %d forward results but %d upstream gradients",
			len(forwards), len(upstream))
	}
	out := make([]*mat.Dense, len(forwards))
	err := s.runBatch(ctx, len(forwards), func(ctx context.Context, i int) error {
		if forwards[i] == nil {
			return errors.Wrap(ErrInputValidation, "forward result is nil")
		}
		grad, err := forwards[i].Backward(upstream[i])
		if err != nil {
			return err
		}
		out[i] = grad
		return nil
	})
	return batchResult(s.cfg.BatchPolicy, out, err)
}

func (s *Solver) runBatch(ctx context.Context, n int, f utils.IndexedFunc) error {
	element := func(ctx context.Context, i int) error {
		if err := f(ctx, i); err != nil {
			return errors.Wrapf(err, "batch element %d", i)
		}
		return nil
	}

	s.logger.Debugw("running batch", "size", n, "policy", s.cfg.BatchPolicy)
	if s.cfg.BatchPolicy == CollectErrors {
		err := newBatchError(utils.ForEachIndexCollect(ctx, n, s.cfg.Parallelism, element))
		if err != nil {
			s.logger.Debugw("batch finished with failures", "size", n, "failed", err.(*BatchError).Failed())
		}
		return err
	}
	return utils.ForEachIndex(ctx, n, s.cfg.Parallelism, element)
}

// batchResult drops partial results unless the policy promises them to the caller.
func batchResult[T any](policy BatchPolicy, out []T, err error) ([]T, error) {
	if err != nil && policy != CollectErrors {
		return nil, err
	}
	return out, err
}
