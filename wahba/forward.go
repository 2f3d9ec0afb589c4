package wahba

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/wahba/linalg"
)

// Forward is the result of solving one cost matrix. It keeps the (A, q, ν) triple
// needed by a single later Backward call, after which the cached matrix is released.
// Each Forward owns its own cache so forwards of different examples share nothing.
type Forward struct {
	solver *Solver

	mu       sync.Mutex
	a        *linalg.CostMatrix
	solution Solution
	released bool
}

// Forward solves a and returns the result with its backward cache.
func (s *Solver) Forward(a *linalg.CostMatrix) (*Forward, error) {
	sol, err := s.Solve(a)
	if err != nil {
		return nil, err
	}
	return &Forward{solver: s, a: a, solution: *sol}, nil
}

// Quaternion returns the optimal quaternion.
func (f *Forward) Quaternion() quat.Number {
	return f.solution.Quaternion
}

// Solution returns a copy of the full solution.
func (f *Forward) Solution() Solution {
	return f.solution
}

// Released reports whether Backward has already consumed the cache.
func (f *Forward) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// Backward maps an upstream gradient on the quaternion to the gradient on the cost
// matrix. It may be called once; later calls return ErrForwardReleased.
func (f *Forward) Backward(upstream [linalg.Dim]float64) (*mat.Dense, error) {
	for k, g := range upstream {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return nil, errors.Wrapf(ErrInputValidation, "upstream gradient entry %d is %v", k, g)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return nil, ErrForwardReleased
	}
	a := f.a
	f.a = nil
	f.released = true

	sens, err := f.solver.Gradient(a, f.solution.Multiplier, f.solution.Quaternion)
	if err != nil {
		return nil, err
	}
	return sens.Apply(upstream), nil
}
