package wahba

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/wahba/spatialmath"
)

func randomDirection(rnd *rand.Rand) r3.Vector {
	return r3.Vector{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}.Normalize()
}

func TestBuildCostMatrixRecoversRotation(t *testing.T) {
	rnd := rand.New(rand.NewSource(6))
	for _, redundant := range []bool{false, true} {
		s := newTestSolver(t, redundant)
		for n := 0; n < 10; n++ {
			truth := spatialmath.QuaternionFromAxisAngle(randomDirection(rnd), math.Pi*rnd.Float64())
			observations := make([]Observation, 5)
			for i := range observations {
				v := randomDirection(rnd)
				observations[i] = Observation{
					Body:      v,
					Reference: spatialmath.RotateVector(truth, v),
					Weight:    0.5 + rnd.Float64(),
				}
			}
			a, err := BuildCostMatrix(observations)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, a.Asymmetry(), test.ShouldEqual, 0.)

			sol, err := s.Solve(a)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, spatialmath.SameRotation(sol.Quaternion, truth, 1e-8), test.ShouldBeTrue)
			test.That(t, sol.Cost, test.ShouldAlmostEqual, 0., 1e-9)
		}
	}
}

func TestBuildCostMatrixLoss(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	observations := make([]Observation, 4)
	for i := range observations {
		observations[i] = Observation{
			Body:      randomDirection(rnd).Mul(1 + rnd.Float64()),
			Reference: randomDirection(rnd),
			Weight:    rnd.Float64(),
		}
	}
	a, err := BuildCostMatrix(observations)
	test.That(t, err, test.ShouldBeNil)

	// qᵀAq is Wahba's loss for any unit quaternion
	for n := 0; n < 20; n++ {
		q := randomUnitQuaternion(rnd)
		var loss float64
		for _, o := range observations {
			loss += o.Weight * o.Reference.Sub(spatialmath.RotateVector(q, o.Body)).Norm2()
		}
		test.That(t, quadForm(a, q), test.ShouldAlmostEqual, loss, 1e-9)
	}
}

func TestBuildCostMatrixInvalid(t *testing.T) {
	_, err := BuildCostMatrix(nil)
	test.That(t, errors.Is(err, ErrInputValidation), test.ShouldBeTrue)

	for _, w := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err = BuildCostMatrix([]Observation{{Body: r3.Vector{X: 1}, Reference: r3.Vector{Y: 1}, Weight: w}})
		test.That(t, errors.Is(err, ErrInputValidation), test.ShouldBeTrue)
	}

	_, err = BuildCostMatrix([]Observation{{Body: r3.Vector{X: math.NaN()}, Reference: r3.Vector{Y: 1}, Weight: 1}})
	test.That(t, errors.Is(err, ErrInputValidation), test.ShouldBeTrue)
}
