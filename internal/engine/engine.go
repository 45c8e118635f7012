package engine

import "github.com/kstrom/odebridge/internal/vec"

// RHS evaluates ydot = f(t, y). Implementations must not retain y or
// ydot past the call; both may alias engine-owned storage.
type RHS func(t float64, y, ydot vec.Vector) error

// Stats reports integrator work counters. Counters accumulate across
// Advance calls and are reset by Init and ReInit.
type Stats struct {
	Steps          int     // internal steps taken
	RHSEvals       int     // right-hand-side evaluations
	ErrorTestFails int     // steps rejected by the error test
	NewtonIters    int     // nonlinear iterations (implicit engines)
	LinearSolves   int     // linear-solve hook invocations
	LastStep       float64 // size of the last internal step
	NextStep       float64 // suggested size of the next step
	CurrentTime    float64 // time reached so far
}

// Engine is a time stepper driven through callbacks: the caller supplies
// the RHS and an initial state, then repeatedly asks the engine to
// advance toward a target time. Advance reports the time actually
// reached (the engine may stop short) and the size of the last internal
// step it took.
type Engine interface {
	// Init registers the RHS and the initial condition. y is aliased,
	// not copied; the engine steps the caller's storage in place.
	Init(f RHS, t0 float64, y vec.Vector) error

	// ReInit keeps the registered RHS and restarts from a new state and
	// time. Counters and step history are reset.
	ReInit(t0 float64, y vec.Vector) error

	// SetTolerances sets the scalar relative and absolute tolerances
	// used by error control. Callable before or after Init.
	SetTolerances(rel, abs float64) error

	// SetMaxSteps bounds the number of internal steps per Advance call.
	SetMaxSteps(n int)

	// Advance integrates from the current time toward tout, writing the
	// solution into y. It returns the time reached and the last internal
	// step size.
	Advance(tout float64, y vec.Vector) (t, hLast float64, err error)

	Stats() Stats
}

// LinearSolver is the linear-solve hook quadruple an implicit engine
// drives during Newton iteration. Setup is called before every Solve
// with the step predictor; Solve must solve an (I - gamma*J)-type system
// for the Newton correction, overwriting b with the solution.
type LinearSolver interface {
	Init() error
	Setup(t float64, ypred, fpred vec.Vector) error
	Solve(t float64, b, ycur, yprev, fcur vec.Vector, gamma float64) error
	Free()
}

// ImplicitEngine is an Engine whose steps require linear solves.
// Registering a solver replaces (and frees) any previous one.
type ImplicitEngine interface {
	Engine
	SetLinearSolver(ls LinearSolver) error
}

// FixedStepper is implemented by engines that can disable step-size
// control and take a constant internal step.
type FixedStepper interface {
	SetFixedStep(h float64)
}
