package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestAxisAngleRoundTrip(t *testing.T) {
	for _, aa := range []AxisAngle{
		{Theta: math.Pi / 2, RZ: 1},
		{Theta: 2.5, RX: 0.6, RY: -0.8},
		{Theta: math.Pi, RY: 1},
	} {
		q := aa.Quaternion()
		test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1.)
		back := QuatToAxisAngle(q)
		test.That(t, back.Theta, test.ShouldAlmostEqual, aa.Theta)
		test.That(t, back.RX, test.ShouldAlmostEqual, aa.RX)
		test.That(t, back.RY, test.ShouldAlmostEqual, aa.RY)
		test.That(t, back.RZ, test.ShouldAlmostEqual, aa.RZ)

		// -q is the same rotation
		flipped := QuatToAxisAngle(Flip(q))
		test.That(t, flipped.Theta, test.ShouldAlmostEqual, aa.Theta)
		test.That(t, flipped.ToR3().Sub(aa.ToR3()).Norm(), test.ShouldAlmostEqual, 0.)
	}
}

func TestAxisAngleIdentity(t *testing.T) {
	aa := QuatToAxisAngle(quat.Number{Real: 1})
	test.That(t, aa.Theta, test.ShouldEqual, 0.)
	test.That(t, aa.Axis(), test.ShouldResemble, r3.Vector{Z: 1})
	test.That(t, aa.ToR3().Norm(), test.ShouldEqual, 0.)

	q := QuaternionFromAxisAngle(r3.Vector{}, 1)
	test.That(t, q, test.ShouldResemble, quat.Number{Real: 1})
}
