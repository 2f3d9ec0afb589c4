package wahba

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/wahba/linalg"
)

// Observation is one weighted pair of directions: Body measured in the body frame and
// Reference, the same direction known in the reference frame.
type Observation struct {
	Body      r3.Vector
	Reference r3.Vector
	Weight    float64
}

// BuildCostMatrix returns the cost matrix A of Wahba's loss for the observations, such
// that for a unit quaternion q with active rotation R(q)
//
//	qᵀAq = Σ w ‖u - R(q)v‖²
//
// with v the body and u the reference vectors. A = cI - 2K where K is Davenport's
// matrix of the attitude profile B = Σ w u vᵀ and c = Σ w (‖u‖² + ‖v‖²).
func BuildCostMatrix(observations []Observation) (*linalg.CostMatrix, error) {
	if len(observations) == 0 {
		return nil, errors.Wrap(ErrInputValidation, "need at least one observation")
	}
	var b [3][3]float64
	var c float64
	for i, o := range observations {
		if math.IsNaN(o.Weight) || math.IsInf(o.Weight, 0) || o.Weight < 0 {
			return nil, errors.Wrapf(ErrInputValidation, "observation %d has invalid weight %v", i, o.Weight)
		}
		u := [3]float64{o.Reference.X, o.Reference.Y, o.Reference.Z}
		v := [3]float64{o.Body.X, o.Body.Y, o.Body.Z}
		for r := range u {
			for col := range v {
				b[r][col] += o.Weight * u[r] * v[col]
			}
		}
		c += o.Weight * (o.Reference.Norm2() + o.Body.Norm2())
	}

	sigma := b[0][0] + b[1][1] + b[2][2]
	z := [3]float64{b[2][1] - b[1][2], b[0][2] - b[2][0], b[1][0] - b[0][1]}

	k := mat.NewSymDense(linalg.Dim, nil)
	k.SetSym(0, 0, sigma)
	for i := 0; i < 3; i++ {
		k.SetSym(0, i+1, z[i])
		for j := i; j < 3; j++ {
			v := b[i][j] + b[j][i]
			if i == j {
				v -= sigma
			}
			k.SetSym(i+1, j+1, v)
		}
	}

	a := mat.NewDense(linalg.Dim, linalg.Dim, nil)
	for i := 0; i < linalg.Dim; i++ {
		for j := 0; j < linalg.Dim; j++ {
			a.Set(i, j, -2*k.At(i, j))
		}
		a.Set(i, i, a.At(i, i)+c)
	}
	return linalg.NewCostMatrixFromDense(a)
}
