package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NewCostMatrixFromFloat32 widens 16 row-major float32 values to float64 and builds
// a cost matrix from them. All computation downstream is float64.
func NewCostMatrixFromFloat32(data []float32) (*CostMatrix, error) {
	wide := make([]float64, len(data))
	for i, v := range data {
		wide[i] = float64(v)
	}
	return NewCostMatrix(wide)
}

// DenseToFloat32 narrows a matrix to row-major float32 values for callers working in
// single precision. Values that do not fit in a float32 are an error rather than
// being saturated to infinity.
func DenseToFloat32(m mat.Matrix) ([]float32, error) {
	r, c := m.Dims()
	out := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.Abs(v) > math.MaxFloat32 {
				return nil, errors.Wrapf(ErrInputValidation, "entry (%d, %d) = %g overflows float32", i, j, v)
			}
			out = append(out, float32(v))
		}
	}
	return out, nil
}
