package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// AxisAngle is a rotation of Theta radians about the unit axis (RX, RY, RZ).
type AxisAngle struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// QuatToAxisAngle converts a unit quaternion to an axis angle with Theta in [0, π].
// Rotations too small to carry an axis are reported about +z.
func QuatToAxisAngle(q quat.Number) AxisAngle {
	if q.Real < 0 {
		q = Flip(q)
	}
	sinHalf := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	angle := 2 * math.Atan2(sinHalf, q.Real)
	if sinHalf < 1e-12 {
		return AxisAngle{Theta: angle, RZ: 1}
	}
	return AxisAngle{Theta: angle, RX: q.Imag / sinHalf, RY: q.Jmag / sinHalf, RZ: q.Kmag / sinHalf}
}

// Axis returns the rotation axis.
func (aa AxisAngle) Axis() r3.Vector {
	return r3.Vector{X: aa.RX, Y: aa.RY, Z: aa.RZ}
}

// ToR3 returns the rotation vector, the axis scaled by the angle.
func (aa AxisAngle) ToR3() r3.Vector {
	return aa.Axis().Mul(aa.Theta)
}

// Quaternion returns the unit quaternion of the rotation.
func (aa AxisAngle) Quaternion() quat.Number {
	return QuaternionFromAxisAngle(aa.Axis(), aa.Theta)
}

// QuaternionFromAxisAngle returns the unit quaternion rotating by theta radians about axis.
// A zero axis gives the identity.
func QuaternionFromAxisAngle(axis r3.Vector, theta float64) quat.Number {
	if axis.Norm() == 0 {
		return quat.Number{Real: 1}
	}
	axis = axis.Normalize()
	s := math.Sin(theta / 2)
	return quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}
