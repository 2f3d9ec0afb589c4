package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EigenDecomposition holds the eigenvalues of a symmetric matrix in ascending order
// and the matching unit eigenvectors as the columns of Vectors.
type EigenDecomposition struct {
	Values  []float64
	Vectors *mat.Dense
}

// SymmetricEigen computes the full eigen-decomposition of a.
func SymmetricEigen(a mat.Symmetric) (*EigenDecomposition, error) {
	var es mat.EigenSym
	if ok := es.Factorize(a, true); !ok {
		return nil, errors.Wrap(ErrNumerical, "symmetric eigen-decomposition did not converge")
	}
	values := es.Values(nil)
	if floats.HasNaN(values) {
		return nil, errors.Wrap(ErrNumerical, "symmetric eigen-decomposition produced NaN eigenvalues")
	}
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	// LAPACK already sorts ascending; keep the invariant explicit for callers.
	n := len(values)
	order := make([]int, n)
	sorted := append([]float64(nil), values...)
	floats.Argsort(sorted, order)
	ordered := mat.NewDense(n, n, nil)
	for dst, src := range order {
		ordered.SetCol(dst, mat.Col(nil, src, &vectors))
	}
	return &EigenDecomposition{Values: sorted, Vectors: ordered}, nil
}

// Vector returns a copy of the i-th eigenvector.
func (e *EigenDecomposition) Vector(i int) []float64 {
	return mat.Col(nil, i, e.Vectors)
}

// Gap is the distance between the two smallest eigenvalues.
func (e *EigenDecomposition) Gap() float64 {
	if len(e.Values) < 2 {
		return math.Inf(1)
	}
	return e.Values[1] - e.Values[0]
}

// Nullity counts eigenvalues with magnitude at most tol.
func (e *EigenDecomposition) Nullity(tol float64) int {
	var count int
	for _, v := range e.Values {
		if math.Abs(v) <= tol {
			count++
		}
	}
	return count
}

// Equilibrate returns the centered and rescaled matrix (a - shift*I)/scale with
// shift = tr(a)/n and scale = ‖a - shift*I‖_F. Both matrices share eigenvectors and
// an eigenvalue λ of a maps to (λ-shift)/scale. A scalar multiple of the identity
// has nothing to rescale and keeps scale = 1.
func Equilibrate(a mat.Symmetric) (eq *mat.SymDense, shift, scale float64) {
	n := a.SymmetricDim()
	shift = mat.Trace(a) / float64(n)
	eq = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := a.At(i, j)
			if i == j {
				v -= shift
			}
			eq.SetSym(i, j, v)
		}
	}
	scale = mat.Norm(eq, 2)
	if scale == 0 || !isFinite(scale) {
		return eq, shift, 1
	}
	eq.ScaleSym(1/scale, eq)
	return eq, shift, scale
}

// ShiftDiagonal returns a - nu*I.
func ShiftDiagonal(a mat.Symmetric, nu float64) *mat.SymDense {
	n := a.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(a)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, out.At(i, i)-nu)
	}
	return out
}
