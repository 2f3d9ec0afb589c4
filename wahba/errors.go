package wahba

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/wahba/linalg"
)

var (
	// ErrInputValidation is returned for wrongly shaped or non-finite inputs.
	ErrInputValidation = linalg.ErrInputValidation

	// ErrNumerical is returned when a decomposition does not converge or the optimum is
	// too degenerate to differentiate.
	ErrNumerical = linalg.ErrNumerical

	// ErrForwardReleased is returned when a forward result is asked for a second gradient.
	ErrForwardReleased = errors.New("forward result already consumed by a backward pass")
)

// BatchError reports the failures of a batch run with the CollectErrors policy.
// PerIndex has one entry per batch element, nil where the element succeeded.
type BatchError struct {
	PerIndex []error
}

func newBatchError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return &BatchError{PerIndex: errs}
		}
	}
	return nil
}

// Failed returns the indices of the elements that failed, in order.
func (e *BatchError) Failed() []int {
	var failed []int
	for i, err := range e.PerIndex {
		if err != nil {
			failed = append(failed, i)
		}
	}
	return failed
}

func (e *BatchError) Error() string {
	return multierr.Combine(e.PerIndex...).Error()
}

// Unwrap exposes the per element errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return multierr.Errors(multierr.Combine(e.PerIndex...))
}
