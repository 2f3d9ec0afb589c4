package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestCanonicalize(t *testing.T) {
	q := quat.Number{Real: -0.5, Imag: 0.5, Jmag: -0.5, Kmag: 0.5}
	test.That(t, Canonicalize(q), test.ShouldResemble, Flip(q))
	test.That(t, Canonicalize(Flip(q)), test.ShouldResemble, Flip(q))

	// leading zeros are skipped
	q = quat.Number{Jmag: -1}
	test.That(t, Canonicalize(q).Jmag, test.ShouldEqual, 1.)

	// below tolerance counts as zero
	q = quat.Number{Real: -1e-15, Kmag: -1}
	test.That(t, Canonicalize(q).Kmag, test.ShouldEqual, 1.)
}

func TestArrayRoundTrip(t *testing.T) {
	q := quat.Number{Real: 1, Imag: 2, Jmag: 3, Kmag: 4}
	test.That(t, QuatToArray(q), test.ShouldResemble, [4]float64{1, 2, 3, 4})
	test.That(t, ArrayToQuat(QuatToArray(q)), test.ShouldResemble, q)
	test.That(t, SliceToQuat([]float64{1, 2, 3, 4}), test.ShouldResemble, q)
}

func TestNormalize(t *testing.T) {
	q := Normalize(quat.Number{Real: 3, Kmag: 4})
	test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1.)
	test.That(t, q.Real, test.ShouldAlmostEqual, 0.6)
	test.That(t, Normalize(quat.Number{}), test.ShouldResemble, quat.Number{})
}

func TestSameRotation(t *testing.T) {
	q := QuaternionFromAxisAngle(r3.Vector{X: 1, Y: 1, Z: 1}, 2*math.Pi/3)
	test.That(t, SameRotation(q, Flip(q), 1e-12), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(q, Flip(q), 1e-12), test.ShouldBeFalse)
	test.That(t, SameRotation(q, quat.Number{Real: 1}, 1e-6), test.ShouldBeFalse)
}

func TestRotateVector(t *testing.T) {
	// 120° about [1, 1, 1] cycles the axes
	q := QuaternionFromAxisAngle(r3.Vector{X: 1, Y: 1, Z: 1}, 2*math.Pi/3)
	v := RotateVector(q, r3.Vector{X: 1})
	test.That(t, v.X, test.ShouldAlmostEqual, 0.)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1.)
	test.That(t, v.Z, test.ShouldAlmostEqual, 0.)

	q = QuaternionFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2)
	v = RotateVector(q, r3.Vector{X: 2})
	test.That(t, v.X, test.ShouldAlmostEqual, 0.)
	test.That(t, v.Y, test.ShouldAlmostEqual, 2.)
}
