package wahba

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/wahba/linalg"
	"go.viam.com/wahba/spatialmath"
)

// unitNormTolerance bounds | |q| - 1 | for quaternions handed to the gradient.
const unitNormTolerance = 1e-6

// Sensitivity is the derivative of a solution (q, ν) with respect to its cost matrix.
//
// The solver only sees the symmetric part (A+Aᵀ)/2 of its input, so entries are
// derivatives through that symmetrization and are symmetric in (i, j): moving A_ij and
// A_ji together by ε moves q_k by 2·Quaternion[k][i][j]·ε.
type Sensitivity struct {
	// Quaternion[k][i][j] is ∂q_k/∂A_ij.
	Quaternion [linalg.Dim][linalg.Dim][linalg.Dim]float64
	// Multiplier[i][j] is ∂ν/∂A_ij.
	Multiplier [linalg.Dim][linalg.Dim]float64
}

// At returns ∂q_k/∂A_ij.
func (sens *Sensitivity) At(k, i, j int) float64 {
	return sens.Quaternion[k][i][j]
}

// Apply contracts the sensitivity with an upstream gradient on q, returning the
// gradient on A: out[i][j] = Σ_k ∂q_k/∂A_ij · upstream[k].
func (sens *Sensitivity) Apply(upstream [linalg.Dim]float64) *mat.Dense {
	out := mat.NewDense(linalg.Dim, linalg.Dim, nil)
	for i := 0; i < linalg.Dim; i++ {
		for j := 0; j < linalg.Dim; j++ {
			var v float64
			for k, g := range upstream {
				v += sens.Quaternion[k][i][j] * g
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// ApplyMultiplier returns the gradient on A of a loss with gradient upstream on ν.
func (sens *Sensitivity) ApplyMultiplier(upstream float64) *mat.Dense {
	out := mat.NewDense(linalg.Dim, linalg.Dim, nil)
	for i := 0; i < linalg.Dim; i++ {
		for j := 0; j < linalg.Dim; j++ {
			out.Set(i, j, sens.Multiplier[i][j]*upstream)
		}
	}
	return out
}

// Directional returns the first order change of q when A moves along d.
func (sens *Sensitivity) Directional(d mat.Matrix) quat.Number {
	var dq [linalg.Dim]float64
	for k := range dq {
		for i := 0; i < linalg.Dim; i++ {
			for j := 0; j < linalg.Dim; j++ {
				dq[k] += sens.Quaternion[k][i][j] * d.At(i, j)
			}
		}
	}
	return spatialmath.ArrayToQuat(dq)
}

// Gradient differentiates the optimum (q, ν) of a, as returned by Solve, with respect
// to a.
//
// Perturbing A by dA in the stationarity conditions (A - νI)q = 0, qᵀq = 1 gives
//
//	(A - νI)dq - q dν = -dA q,   qᵀdq = 0,
//
// which is solved for the four unit directions of dA q. The system is only regular when
// ν is a simple eigenvalue, so Gradient fails with ErrNumerical unless A - νI has rank
// exactly 3 and the bordered system is well conditioned.
func (s *Solver) Gradient(a *linalg.CostMatrix, nu float64, q quat.Number) (*Sensitivity, error) {
	if a == nil {
		return nil, errors.Wrap(ErrInputValidation, "cost matrix is nil")
	}
	if math.IsNaN(nu) || math.IsInf(nu, 0) {
		return nil, errors.Wrapf(ErrInputValidation, "multiplier is %v", nu)
	}
	if n := quat.Abs(q); math.IsNaN(n) || math.Abs(n-1) > unitNormTolerance {
		return nil, errors.Wrapf(ErrInputValidation, "quaternion has norm %g, want 1", n)
	}
	qa := spatialmath.QuatToArray(q)
	sym := a.SymDense()
	tol := s.degeneracyTolerance(a)

	shifted := linalg.ShiftDiagonal(sym, nu)
	var residual mat.VecDense
	residual.MulVec(shifted, mat.NewVecDense(linalg.Dim, qa[:]))
	if r := mat.Norm(&residual, 2); r > tol {
		return nil, errors.Wrapf(ErrInputValidation, "quaternion is not stationary for the multiplier (|(A - νI)q| = %g)", r)
	}

	eig, err := linalg.SymmetricEigen(shifted)
	if err != nil {
		return nil, errors.Wrap(err, "cannot check rank of A - νI")
	}
	if nullity := eig.Nullity(tol); nullity != 1 {
		return nil, errors.Wrapf(ErrNumerical, "A - νI has rank %d, want %d; the optimum is degenerate",
			linalg.Dim-nullity, linalg.Dim-1)
	}

	sys, err := linalg.NewKKTSystem(sym, nu, qa[:], s.cfg.MaxConditionNumber)
	if err != nil {
		return nil, errors.Wrap(err, "cannot differentiate wahba solution")
	}

	// columns[i] solves the system for dA q = e_i, i.e. it is column i of -(A - νI)⁺
	// and dnu[i] = q_i.
	var columns [linalg.Dim][]float64
	var dnu [linalg.Dim]float64
	for i := range columns {
		rhs := make([]float64, linalg.Dim)
		rhs[i] = -1
		columns[i], dnu[i], err = sys.Solve(rhs)
		if err != nil {
			return nil, errors.Wrap(err, "cannot differentiate wahba solution")
		}
	}

	// For dA = E_ij, dq = columns[i]·q_j and dν = dnu[i]·q_j; averaging with E_ji
	// differentiates through the symmetric part.
	sens := &Sensitivity{}
	for i := 0; i < linalg.Dim; i++ {
		for j := 0; j < linalg.Dim; j++ {
			for k := 0; k < linalg.Dim; k++ {
				sens.Quaternion[k][i][j] = 0.5 * (columns[i][k]*qa[j] + columns[j][k]*qa[i])
			}
			sens.Multiplier[i][j] = 0.5 * (dnu[i]*qa[j] + dnu[j]*qa[i])
		}
	}
	s.logger.Debugw("computed wahba sensitivity", "multiplier", nu, "kkt_condition", sys.Cond())
	return sens, nil
}

// Gradient differentiates (q, ν) with respect to a using the default config.
func Gradient(a *linalg.CostMatrix, nu float64, q quat.Number) (*Sensitivity, error) {
	s, err := NewSolver(DefaultConfig(), nil)
	if err != nil {
		return nil, err
	}
	return s.Gradient(a, nu, q)
}
