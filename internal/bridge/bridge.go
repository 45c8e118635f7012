// Package bridge adapts time-dependent operators to the stepping
// engines. Each adapter owns an engine and a wrapped state vector,
// trampolines the operator's Mult into the engine's RHS callback, and
// redirects the engine's internal linear solves to a caller-supplied
// Jacobian-solve operator.
package bridge

import (
	"errors"
	"fmt"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Default scalar tolerances, matching the multistage family's defaults.
const (
	RelTolDefault = 1.0e-4
	AbsTolDefault = 1.0e-9
)

// Newton-path settings applied when a linear solve is attached.
const (
	newtonRelTol   = 1.0e-2
	newtonAbsTol   = 1.0e-4
	newtonMaxSteps = 10000
)

var (
	// ErrNotInitialized indicates Step or ReInit before Init.
	ErrNotInitialized = errors.New("bridge: solver not initialized")

	// ErrWidthMismatch indicates operator and state vector disagree.
	ErrWidthMismatch = errors.New("bridge: operator width does not match state size")

	// ErrBadStep indicates Step with a non-positive dt.
	ErrBadStep = errors.New("bridge: step size must be positive")
)

// Solver is the adapter surface shared by both integration families.
// Step advances x from *t toward *t + *dt, then writes back the time
// actually reached and the size of the last internal step.
type Solver interface {
	Init(op operator.TimeDependent) error
	ReInit(op operator.TimeDependent, y vec.Vector, t float64) error
	SetTolerances(rel, abs float64) error
	SetLinearSolve(js operator.JacobianSolver) error
	Step(x vec.Vector, t *float64, dt *float64) error
	Stats() engine.Stats
}

// wrapRHS trampolines an operator into the engine callback: the engine
// hands over its state and derivative storage, the operator computes
// ydot = f(t, y) directly in it. Nothing is copied.
func wrapRHS(op operator.TimeDependent) engine.RHS {
	return func(t float64, y, ydot vec.Vector) error {
		if y.Len() != op.Width() || ydot.Len() != op.Width() {
			return fmt.Errorf("%w: rhs got %d, operator width %d", ErrWidthMismatch, y.Len(), op.Width())
		}
		op.SetTime(t)
		return op.Mult(y, ydot)
	}
}

// stepEngine runs one adapter Step against an engine, implementing the
// shared achieved-time and last-step write-back semantics.
func stepEngine(eng engine.Engine, x vec.Vector, t, dt *float64) error {
	if *dt <= 0 {
		return ErrBadStep
	}
	tout := *t + *dt
	reached, hLast, err := eng.Advance(tout, x)
	*t = reached
	if hLast > 0 {
		*dt = hLast
	}
	return err
}
