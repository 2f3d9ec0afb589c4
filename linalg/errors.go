package linalg

import "github.com/pkg/errors"

var (
	// ErrInputValidation is returned for wrongly shaped or non-finite input.
	ErrInputValidation = errors.New("invalid input")

	// ErrNumerical is returned when a decomposition fails to converge or a system is
	// too ill-conditioned to trust its solution.
	ErrNumerical = errors.New("numerical failure")
)
