package engine

import (
	"errors"
	"fmt"
)

// Domain errors for stepping operations.
var (
	// ErrNotInitialized indicates Advance or ReInit before Init.
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("engine: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates step control drove h below the minimum.
	ErrStepTooSmall = errors.New("engine: step size below minimum")

	// ErrTooManySteps indicates the internal step cap was reached before tout.
	ErrTooManySteps = errors.New("engine: maximum number of steps reached")

	// ErrConvergence indicates the nonlinear iteration failed to converge.
	ErrConvergence = errors.New("engine: nonlinear iteration failed to converge")

	// ErrNoLinearSolver indicates an implicit step with no registered solver.
	ErrNoLinearSolver = errors.New("engine: no linear solver registered")

	// ErrDimensionMismatch indicates mismatched vector lengths.
	ErrDimensionMismatch = errors.New("engine: dimension mismatch")

	// ErrInvalidTarget indicates Advance toward a time at or before now.
	ErrInvalidTarget = errors.New("engine: target time not ahead of current time")
)

// StepError wraps an error with the step context it occurred in.
type StepError struct {
	Time    float64
	Step    int
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
