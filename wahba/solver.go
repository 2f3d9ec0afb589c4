package wahba

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/wahba/linalg"
	"go.viam.com/wahba/spatialmath"
)

const (
	machineEpsilon = 0x1p-52
	// roundoffFactor bounds the accumulated rounding error in units of ε‖A‖_F.
	roundoffFactor = 64
)

// Solution is the global minimizer of qᵀAq on the unit sphere.
type Solution struct {
	// Quaternion is the optimal unit quaternion with canonical sign.
	Quaternion quat.Number
	// Multiplier is the Lagrange multiplier ν of the constraint qᵀq = 1, so that
	// (A - νI)q = 0. It equals the smallest eigenvalue of A.
	Multiplier float64
	// Cost is qᵀAq at the optimum.
	Cost float64
	// Eigenvalues of A in ascending order.
	Eigenvalues [linalg.Dim]float64
	// EigenGap is the distance between the two smallest eigenvalues. The optimum is
	// unique, and differentiable, only when it is positive.
	EigenGap float64
}

// Solver solves and differentiates the quaternion QCQP. It holds no per call state and
// is safe for concurrent use.
type Solver struct {
	cfg    Config
	logger golog.Logger
}

// NewSolver returns a solver for the given config. A nil logger discards all logs.
func NewSolver(cfg Config, logger golog.Logger) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Solver{cfg: cfg, logger: logger}, nil
}

// Config returns the solver's configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// Solve returns the unit quaternion minimizing qᵀAq and its multiplier.
//
// The minimum is the smallest eigenvalue of A and the minimizer its eigenvector. With
// Config.Redundant the constraint is also added to the cost as τ(qᵀq - 1), τ = tr(A)/4,
// and the result rescaled by ‖A - τI‖_F so the eigen problem is solved on a centered
// unit scale matrix; ν is mapped back to the original Lagrangian as the Rayleigh
// quotient qᵀAq and certified by checking that A - νI is positive semidefinite up to
// the degeneracy tolerance.
func (s *Solver) Solve(a *linalg.CostMatrix) (*Solution, error) {
	if a == nil {
		return nil, errors.Wrap(ErrInputValidation, "cost matrix is nil")
	}
	if err := s.checkSymmetry(a); err != nil {
		return nil, err
	}
	if s.cfg.Redundant {
		return s.solveRedundant(a)
	}
	return s.solvePlain(a)
}

func (s *Solver) checkSymmetry(a *linalg.CostMatrix) error {
	tol := s.cfg.SymmetryTolerance * math.Max(1, a.Norm())
	if a.Asymmetry() <= tol {
		return nil
	}
	if s.cfg.StrictSymmetry {
		return errors.Wrapf(ErrInputValidation, "cost matrix is not symmetric (max |A_ij - A_ji| = %g)", a.Asymmetry())
	}
	s.logger.Debugw("using symmetric part of asymmetric cost matrix", "asymmetry", a.Asymmetry())
	return nil
}

func (s *Solver) solvePlain(a *linalg.CostMatrix) (*Solution, error) {
	eig, err := linalg.SymmetricEigen(a.SymDense())
	if err != nil {
		return nil, errors.Wrap(err, "cannot solve wahba problem")
	}
	q := spatialmath.Canonicalize(spatialmath.Normalize(spatialmath.SliceToQuat(eig.Vector(0))))
	return s.newSolution(a, q, eig.Values[0], eig.Values), nil
}

func (s *Solver) solveRedundant(a *linalg.CostMatrix) (*Solution, error) {
	eq, shift, scale := linalg.Equilibrate(a.SymDense())
	eig, err := linalg.SymmetricEigen(eq)
	if err != nil {
		return nil, errors.Wrap(err, "cannot solve equilibrated wahba problem")
	}
	q := spatialmath.Canonicalize(spatialmath.Normalize(spatialmath.SliceToQuat(eig.Vector(0))))
	qa := spatialmath.QuatToArray(q)
	nu := a.QuadForm(qa[:])

	cert, err := linalg.SymmetricEigen(linalg.ShiftDiagonal(a.SymDense(), nu))
	if err != nil {
		return nil, errors.Wrap(err, "cannot certify wahba solution")
	}
	if lowest := cert.Values[0]; lowest < -s.degeneracyTolerance(a) {
		return nil, errors.Wrapf(ErrNumerical, "optimality certificate failed: smallest eigenvalue of A - νI is %g", lowest)
	}

	values := make([]float64, len(eig.Values))
	for i, v := range eig.Values {
		values[i] = scale*v + shift
	}
	return s.newSolution(a, q, nu, values), nil
}

func (s *Solver) newSolution(a *linalg.CostMatrix, q quat.Number, nu float64, values []float64) *Solution {
	qa := spatialmath.QuatToArray(q)
	sol := &Solution{
		Quaternion: q,
		Multiplier: nu,
		Cost:       a.QuadForm(qa[:]),
		EigenGap:   values[1] - values[0],
	}
	copy(sol.Eigenvalues[:], values)
	if sol.EigenGap <= s.degeneracyTolerance(a) {
		s.logger.Warnw("smallest eigenvalue of cost matrix is repeated; optimum is not unique",
			"multiplier", nu, "gap", sol.EigenGap)
	}
	return sol
}

// degeneracyTolerance is the magnitude below which an eigenvalue of A - νI counts as
// zero. The relative part follows the spread of A, which a diagonal offset does not
// change; the rounding part covers forming A - νI and qᵀAq, which grows with ‖A‖.
func (s *Solver) degeneracyTolerance(a *linalg.CostMatrix) float64 {
	return s.cfg.DegeneracyTolerance*math.Max(1, a.Spread()) + roundoffFactor*machineEpsilon*a.Norm()
}

// Solve returns the optimal quaternion and multiplier for a using the default config.
func Solve(a *linalg.CostMatrix, redundant bool) (quat.Number, float64, error) {
	cfg := DefaultConfig()
	cfg.Redundant = redundant
	s, err := NewSolver(cfg, nil)
	if err != nil {
		return quat.Number{}, 0, err
	}
	sol, err := s.Solve(a)
	if err != nil {
		return quat.Number{}, 0, err
	}
	return sol.Quaternion, sol.Multiplier, nil
}
