// Package spatialmath contains the quaternion helpers used to read and compare the
// attitudes produced by the wahba solver.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
)

// signTolerance is the magnitude below which a component is treated as zero when
// picking the canonical sign of a quaternion.
const signTolerance = 1e-12

// QuatToArray returns the components of q in [Real, Imag, Jmag, Kmag] order.
func QuatToArray(q quat.Number) [4]float64 {
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}

// ArrayToQuat is the inverse of QuatToArray.
func ArrayToQuat(v [4]float64) quat.Number {
	return quat.Number{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]}
}

// SliceToQuat reads the first four entries of v.
func SliceToQuat(v []float64) quat.Number {
	return quat.Number{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]}
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Normalize scales q to unit length. The zero quaternion is returned unchanged.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return q
	}
	return quat.Scale(1/n, q)
}

// Canonicalize picks the representative of {q, -q} whose first non-negligible
// component is positive.
func Canonicalize(q quat.Number) quat.Number {
	for _, v := range QuatToArray(q) {
		if math.Abs(v) > signTolerance {
			if v < 0 {
				return Flip(q)
			}
			return q
		}
	}
	return q
}

// QuaternionAlmostEqual compares two quaternions component-wise.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return scalar.EqualWithinAbs(a.Real, b.Real, tol) &&
		scalar.EqualWithinAbs(a.Imag, b.Imag, tol) &&
		scalar.EqualWithinAbs(a.Jmag, b.Jmag, tol) &&
		scalar.EqualWithinAbs(a.Kmag, b.Kmag, tol)
}

// SameRotation reports whether a and b describe the same rotation, i.e. a = ±b.
func SameRotation(a, b quat.Number, tol float64) bool {
	return QuaternionAlmostEqual(a, b, tol) || QuaternionAlmostEqual(a, Flip(b), tol)
}

// RotateVector applies the active rotation q v q* to v. q is assumed to be unit length.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}
