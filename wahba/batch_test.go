package wahba

import (
	"context"
	"math/rand"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/wahba/linalg"
	"go.viam.com/wahba/spatialmath"
)

func newBatchSolver(t *testing.T, policy BatchPolicy, parallelism int) *Solver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BatchPolicy = policy
	cfg.Parallelism = parallelism
	s, err := NewSolver(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return s
}

func diagonalBatch(t *testing.T, diagonals ...[4]float64) []*linalg.CostMatrix {
	t.Helper()
	batch := make([]*linalg.CostMatrix, 0, len(diagonals))
	for _, d := range diagonals {
		a, err := linalg.NewDiagonalCostMatrix(d[0], d[1], d[2], d[3])
		test.That(t, err, test.ShouldBeNil)
		batch = append(batch, a)
	}
	return batch
}

func TestSolveBatch(t *testing.T) {
	s := newBatchSolver(t, FailFast, 0)
	batch := diagonalBatch(t, [4]float64{1, 2, 3, 4}, [4]float64{4, 3, 2, 1})

	forwards, err := s.SolveBatch(context.Background(), batch)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, forwards, test.ShouldHaveLength, 2)
	test.That(t, spatialmath.QuaternionAlmostEqual(forwards[0].Quaternion(), quat.Number{Real: 1}, 1e-12), test.ShouldBeTrue)
	test.That(t, spatialmath.QuaternionAlmostEqual(forwards[1].Quaternion(), quat.Number{Kmag: 1}, 1e-12), test.ShouldBeTrue)

	grads, err := s.BackwardBatch(context.Background(), forwards, [][linalg.Dim]float64{
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, grads, test.ShouldHaveLength, 2)
	test.That(t, grads[0].At(0, 1), test.ShouldAlmostEqual, -0.5)
	// for diag(4, 3, 2, 1) the optimum is e4 and -(A - I)⁺ has -1/(2-1) on index 2
	test.That(t, grads[1].At(3, 2), test.ShouldAlmostEqual, -0.5)
	for _, f := range forwards {
		test.That(t, f.Released(), test.ShouldBeTrue)
	}

	_, err = s.BackwardBatch(context.Background(), forwards, nil)
	test.That(t, errors.Is(err, ErrInputValidation), test.ShouldBeTrue)

	empty, err := s.SolveBatch(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty, test.ShouldBeEmpty)
}

func TestBatchFailFast(t *testing.T) {
	s := newBatchSolver(t, FailFast, 0)
	batch := diagonalBatch(t, [4]float64{1, 2, 3, 4}, [4]float64{1, 1, 1, 1})

	// the identity still has a minimum, only its gradient is undefined
	forwards, err := s.SolveBatch(context.Background(), batch)
	test.That(t, err, test.ShouldBeNil)

	grads, err := s.BackwardBatch(context.Background(), forwards, make([][linalg.Dim]float64, 2))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNumerical), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "batch element 1")
	test.That(t, grads, test.ShouldBeNil)

	_, err = s.SolveBatch(context.Background(), []*linalg.CostMatrix{batch[0], nil})
	test.That(t, errors.Is(err, ErrInputValidation), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "batch element 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SolveBatch(ctx, batch)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestBatchCollectErrors(t *testing.T) {
	s := newBatchSolver(t, CollectErrors, 0)
	batch := diagonalBatch(t, [4]float64{1, 2, 3, 4}, [4]float64{1, 1, 1, 1}, [4]float64{4, 3, 2, 1})

	forwards, err := s.SolveBatch(context.Background(), batch)
	test.That(t, err, test.ShouldBeNil)

	grads, err := s.BackwardBatch(context.Background(), forwards, make([][linalg.Dim]float64, 3))
	test.That(t, err, test.ShouldNotBeNil)
	var batchErr *BatchError
	test.That(t, errors.As(err, &batchErr), test.ShouldBeTrue)
	test.That(t, batchErr.Failed(), test.ShouldResemble, []int{1})
	test.That(t, errors.Is(err, ErrNumerical), test.ShouldBeTrue)

	test.That(t, grads, test.ShouldHaveLength, 3)
	test.That(t, grads[0], test.ShouldNotBeNil)
	test.That(t, grads[1], test.ShouldBeNil)
	test.That(t, grads[2], test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled, err := s.SolveBatch(ctx, batch)
	test.That(t, errors.As(err, &batchErr), test.ShouldBeTrue)
	test.That(t, batchErr.Failed(), test.ShouldResemble, []int{0, 1, 2})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, canceled, test.ShouldHaveLength, 3)
	test.That(t, canceled[0], test.ShouldBeNil)

	withNil, err := s.SolveBatch(context.Background(), []*linalg.CostMatrix{nil, batch[0], nil})
	test.That(t, errors.As(err, &batchErr), test.ShouldBeTrue)
	test.That(t, batchErr.Failed(), test.ShouldResemble, []int{0, 2})
	test.That(t, errors.Is(err, ErrInputValidation), test.ShouldBeTrue)
	test.That(t, withNil[0], test.ShouldBeNil)
	test.That(t, withNil[1], test.ShouldNotBeNil)
}

func TestBatchMatchesSequential(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	batch := make([]*linalg.CostMatrix, 64)
	upstream := make([][linalg.Dim]float64, len(batch))
	for i := range batch {
		batch[i] = randomCostMatrix(t, rnd, 0.05)
		for k := range upstream[i] {
			upstream[i][k] = rnd.NormFloat64()
		}
	}

	parallel := newBatchSolver(t, FailFast, 8)
	forwards, err := parallel.SolveBatch(context.Background(), batch)
	test.That(t, err, test.ShouldBeNil)
	grads, err := parallel.BackwardBatch(context.Background(), forwards, upstream)
	test.That(t, err, test.ShouldBeNil)

	sequential := newBatchSolver(t, FailFast, 1)
	for i, a := range batch {
		f, err := sequential.Forward(a)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, forwards[i].Solution(), test.ShouldResemble, f.Solution())
		grad, err := f.Backward(upstream[i])
		test.That(t, err, test.ShouldBeNil)
		test.That(t, grads[i].RawMatrix().Data, test.ShouldResemble, grad.RawMatrix().Data)
	}
}
