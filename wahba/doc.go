// Package wahba solves the quaternion form of Wahba's problem,
//
//	min qᵀAq  subject to  qᵀq = 1,
//
// for a symmetric 4x4 cost matrix A, and differentiates the optimal quaternion with
// respect to A so the solver can be used as a layer inside a gradient based pipeline.
//
// A forward pass (Solver.Forward) returns the optimal quaternion and keeps the
// (A, q, ν) triple needed by the single backward pass (Forward.Backward) that maps an
// upstream gradient on q to a gradient on A. Batches are solved as independent,
// order preserving parallel maps (Solver.SolveBatch, Solver.BackwardBatch).
package wahba
