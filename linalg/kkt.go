package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// KKTSystem is the bordered stationarity system of min xᵀAx s.t. xᵀx = 1
// linearized at a stationary pair (x, nu):
//
//	[ A - nu*I  -x ] [ dx  ]   [ r ]
//	[ xᵀ         0 ] [ dnu ] = [ 0 ]
//
// It is non-singular exactly when nu is a simple eigenvalue of A with eigenvector x.
type KKTSystem struct {
	n    int
	lu   mat.LU
	cond float64
}

// NewKKTSystem factorizes the bordered system. It fails with ErrNumerical when the
// condition number exceeds maxCond.
func NewKKTSystem(a mat.Symmetric, nu float64, x []float64, maxCond float64) (*KKTSystem, error) {
	n := a.SymmetricDim()
	if len(x) != n {
		return nil, errors.Wrapf(ErrInputValidation, "stationary point has %d entries but matrix is %dx%d", len(x), n, n)
	}
	k := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k.Set(i, j, a.At(i, j))
		}
		k.Set(i, i, a.At(i, i)-nu)
		k.Set(i, n, -x[i])
		k.Set(n, i, x[i])
	}

	sys := &KKTSystem{n: n}
	sys.lu.Factorize(k)
	sys.cond = sys.lu.Cond()
	if math.IsNaN(sys.cond) || sys.cond > maxCond {
		return nil, errors.Wrapf(ErrNumerical, "KKT system is ill-conditioned (condition number %g)", sys.cond)
	}
	return sys, nil
}

// Cond returns the condition number estimate of the factorized system.
func (s *KKTSystem) Cond() float64 {
	return s.cond
}

// Solve returns (dx, dnu) for the right hand side r.
func (s *KKTSystem) Solve(r []float64) ([]float64, float64, error) {
	if len(r) != s.n {
		return nil, 0, errors.Wrapf(ErrInputValidation, "right hand side has %d entries, want %d", len(r), s.n)
	}
	b := mat.NewVecDense(s.n+1, nil)
	for i, v := range r {
		b.SetVec(i, v)
	}
	var z mat.VecDense
	if err := s.lu.SolveVecTo(&z, false, b); err != nil {
		return nil, 0, errors.Wrapf(ErrNumerical, "solving KKT system: %v", err)
	}
	dx := make([]float64, s.n)
	for i := range dx {
		dx[i] = z.AtVec(i)
	}
	return dx, z.AtVec(s.n), nil
}
