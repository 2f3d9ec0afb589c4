// Package linalg contains the small dense linear algebra layer shared by the wahba
// solver and its gradient: an immutable symmetric 4x4 cost matrix, symmetric
// eigen-decomposition, equilibration and the bordered KKT system of a unit-norm
// constrained quadratic form.
package linalg
