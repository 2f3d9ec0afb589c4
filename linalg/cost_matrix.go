package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dim is the dimension of a quaternion cost matrix.
const Dim = 4

// CostMatrix is an immutable symmetric 4x4 matrix A defining the cost qᵀAq.
// Only the symmetric part (A+Aᵀ)/2 of the input is stored.
type CostMatrix struct {
	sym       *mat.SymDense
	asymmetry float64
}

// NewCostMatrix builds a cost matrix from 16 row-major values.
func NewCostMatrix(data []float64) (*CostMatrix, error) {
	if len(data) != Dim*Dim {
		return nil, errors.Wrapf(ErrInputValidation, "cost matrix needs %d values but got %d", Dim*Dim, len(data))
	}
	return newCostMatrix(mat.NewDense(Dim, Dim, append([]float64(nil), data...)))
}

// NewCostMatrixFromDense builds a cost matrix from any 4x4 gonum matrix.
func NewCostMatrixFromDense(m mat.Matrix) (*CostMatrix, error) {
	if m == nil {
		return nil, errors.Wrap(ErrInputValidation, "cost matrix is nil")
	}
	if r, c := m.Dims(); r != Dim || c != Dim {
		return nil, errors.Wrapf(ErrInputValidation, "cost matrix must be %dx%d but is %dx%d", Dim, Dim, r, c)
	}
	return newCostMatrix(m)
}

// NewDiagonalCostMatrix builds diag(d0, d1, d2, d3).
func NewDiagonalCostMatrix(d0, d1, d2, d3 float64) (*CostMatrix, error) {
	return NewCostMatrixFromDense(mat.NewDiagDense(Dim, []float64{d0, d1, d2, d3}))
}

func newCostMatrix(m mat.Matrix) (*CostMatrix, error) {
	sym := mat.NewSymDense(Dim, nil)
	var asymmetry float64
	for i := 0; i < Dim; i++ {
		for j := i; j < Dim; j++ {
			aij, aji := m.At(i, j), m.At(j, i)
			if !isFinite(aij) {
				return nil, errors.Wrapf(ErrInputValidation, "entry (%d, %d) is %v", i, j, aij)
			}
			if !isFinite(aji) {
				return nil, errors.Wrapf(ErrInputValidation, "entry (%d, %d) is %v", j, i, aji)
			}
			asymmetry = math.Max(asymmetry, math.Abs(aij-aji))
			sym.SetSym(i, j, 0.5*aij+0.5*aji)
		}
	}
	return &CostMatrix{sym: sym, asymmetry: asymmetry}, nil
}

// At returns entry (i, j) of the symmetric matrix.
func (c *CostMatrix) At(i, j int) float64 {
	return c.sym.At(i, j)
}

// Asymmetry returns max |A_ij - A_ji| of the matrix the cost was built from.
func (c *CostMatrix) Asymmetry() float64 {
	return c.asymmetry
}

// SymDense returns a copy of the matrix.
func (c *CostMatrix) SymDense() *mat.SymDense {
	return mat.NewSymDense(Dim, append([]float64(nil), c.sym.RawSymmetric().Data...))
}

// RowMajor returns the 16 entries in row-major order.
func (c *CostMatrix) RowMajor() []float64 {
	data := make([]float64, 0, Dim*Dim)
	for i := 0; i < Dim; i++ {
		data = append(data, mat.Row(nil, i, c.sym)...)
	}
	return data
}

// QuadForm evaluates qᵀAq; q must have 4 entries.
func (c *CostMatrix) QuadForm(q []float64) float64 {
	x := mat.NewVecDense(Dim, append([]float64(nil), q...))
	return mat.Inner(x, c.sym, x)
}

// Norm is the Frobenius norm of the matrix.
func (c *CostMatrix) Norm() float64 {
	return mat.Norm(c.sym, 2)
}

// Spread is ‖A - τI‖_F with τ = tr(A)/4, the size of A once its mean eigenvalue is
// removed. It is unchanged when a multiple of the identity is added to A.
func (c *CostMatrix) Spread() float64 {
	centered := c.SymDense()
	tau := mat.Trace(centered) / Dim
	for i := 0; i < Dim; i++ {
		centered.SetSym(i, i, centered.At(i, i)-tau)
	}
	return mat.Norm(centered, 2)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
