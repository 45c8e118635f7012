package bridge

import (
	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/linsolve"
	"github.com/kstrom/odebridge/internal/multistep"
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Method selects the multistep formula family.
type Method int

const (
	Adams Method = iota // nonstiff
	BDF                 // stiff
)

// Iteration selects how the corrector equation is solved.
type Iteration int

const (
	Functional Iteration = iota
	Newton
)

// Multistep adapts an operator to the multistep engine family. The
// iteration type decides the engine: functional iteration runs the
// Adams predictor-corrector, Newton iteration runs BDF with linear
// solves routed through the attached Jacobian-solve operator.
type Multistep struct {
	method Method
	iter   Iteration

	eng engine.Engine
	op  operator.TimeDependent
	y   vec.Vector

	tolSet bool
	shim   *multistepShim

	newEngine func(Method, Iteration) engine.Engine
}

// NewMultistep wraps y (shared storage, never copied) and creates the
// engine for the requested method and iteration type.
func NewMultistep(y vec.Vector, method Method, iter Iteration) *Multistep {
	s := &Multistep{
		method:    method,
		iter:      iter,
		y:         y,
		newEngine: defaultMultistepEngine,
	}
	s.eng = s.newEngine(method, iter)
	return s
}

func defaultMultistepEngine(method Method, iter Iteration) engine.Engine {
	if iter == Newton || method == BDF {
		return multistep.NewBDF()
	}
	return multistep.NewAdams()
}

// Init registers the operator's RHS with the engine at t=0 and applies
// the default tolerances. A Newton-type instance also gets tighter
// tolerances and a default dense Jacobian solver, which SetLinearSolve
// replaces.
func (s *Multistep) Init(op operator.TimeDependent) error {
	if op.Width() != s.y.Len() {
		return ErrWidthMismatch
	}
	s.op = op
	if err := s.eng.Init(wrapRHS(op), 0, s.y); err != nil {
		return err
	}
	if !s.tolSet {
		rel, abs := RelTolDefault, AbsTolDefault
		if s.iter == Newton {
			rel, abs = 1e-3, 1e-6
		}
		if err := s.eng.SetTolerances(rel, abs); err != nil {
			return err
		}
	}

	if s.iter == Newton {
		if impl, ok := s.eng.(engine.ImplicitEngine); ok {
			s.shim = newMultistepShim(linsolve.NewDense(op))
			if err := impl.SetLinearSolver(s.shim); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReInit keeps the engine but restarts from a new operator, state and
// time.
func (s *Multistep) ReInit(op operator.TimeDependent, y vec.Vector, t float64) error {
	if s.op == nil {
		return ErrNotInitialized
	}
	if op.Width() != y.Len() {
		return ErrWidthMismatch
	}
	s.op = op
	s.y = y
	if err := s.eng.Init(wrapRHS(op), t, y); err != nil {
		return err
	}
	if s.iter == Newton && !s.tolSet {
		if err := s.eng.SetTolerances(1e-3, 1e-6); err != nil {
			return err
		}
	}
	return nil
}

func (s *Multistep) SetTolerances(rel, abs float64) error {
	if err := s.eng.SetTolerances(rel, abs); err != nil {
		return err
	}
	s.tolSet = true
	return nil
}

// SetLinearSolve attaches the caller's Jacobian-solve operator. On a
// functional-iteration instance the engine is rebuilt in BDF/Newton
// form at the preserved current time first.
func (s *Multistep) SetLinearSolve(js operator.JacobianSolver) error {
	if s.op == nil {
		return ErrNotInitialized
	}
	if s.iter == Functional {
		t0 := s.eng.Stats().CurrentTime
		s.method = BDF
		s.iter = Newton
		s.eng = s.newEngine(s.method, s.iter)
		if err := s.eng.Init(wrapRHS(s.op), t0, s.y); err != nil {
			return err
		}
	}

	s.eng.SetMaxSteps(newtonMaxSteps)
	// Attaching a solver stamps the Newton-path tolerances; callers that
	// want different ones re-apply them afterwards.
	if err := s.eng.SetTolerances(newtonRelTol, newtonAbsTol); err != nil {
		return err
	}
	s.tolSet = false

	impl, ok := s.eng.(engine.ImplicitEngine)
	if !ok {
		return engine.ErrNoLinearSolver
	}
	if s.shim != nil {
		s.shim.Free()
	}
	s.shim = newMultistepShim(js)
	return impl.SetLinearSolver(s.shim)
}

// Step advances x from *t toward *t + *dt. x is transferred into the
// adapter's state slot without copying; on return *t holds the time
// actually reached and *dt the last internal step size.
func (s *Multistep) Step(x vec.Vector, t *float64, dt *float64) error {
	if s.op == nil {
		return ErrNotInitialized
	}
	s.y = x
	return stepEngine(s.eng, x, t, dt)
}

// SetMaxSteps bounds the internal steps per Step call.
func (s *Multistep) SetMaxSteps(n int) { s.eng.SetMaxSteps(n) }

func (s *Multistep) Stats() engine.Stats { return s.eng.Stats() }
