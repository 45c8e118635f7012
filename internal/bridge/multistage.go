package bridge

import (
	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/linsolve"
	"github.com/kstrom/odebridge/internal/multistage"
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Multistage adapts an operator to the Runge-Kutta engine family. An
// explicit instance runs an embedded ERK pair; attaching a linear solve
// rebuilds it around the implicit engine at the preserved current time.
type Multistage struct {
	explicit bool

	eng engine.Engine
	op  operator.TimeDependent
	y   vec.Vector

	table tableChoice
	fixed float64
	shim  *multistageShim

	newExplicit func(multistage.Tableau) engine.Engine
	newImplicit func() engine.Engine
}

// tableChoice records the selected ERK tableau so an explicit rebuild
// can restore it.
type tableChoice struct {
	set bool
	tb  multistage.Tableau
}

// NewMultistage wraps y (shared storage) and creates the engine;
// explicit selects the ERK path, otherwise the DIRK path.
func NewMultistage(y vec.Vector, explicit bool) *Multistage {
	s := &Multistage{
		explicit: explicit,
		y:        y,
		newExplicit: func(tb multistage.Tableau) engine.Engine {
			return multistage.NewERK(tb)
		},
		newImplicit: func() engine.Engine {
			return multistage.NewDIRK()
		},
	}
	s.eng = s.build()
	return s
}

func (s *Multistage) build() engine.Engine {
	if s.explicit {
		tb := multistage.DormandPrince()
		if s.table.set {
			tb = s.table.tb
		}
		return s.newExplicit(tb)
	}
	return s.newImplicit()
}

// Init registers the RHS on the side matching the instance: the
// explicit engine integrates it directly, the implicit engine solves
// its stage equations against it.
func (s *Multistage) Init(op operator.TimeDependent) error {
	if op.Width() != s.y.Len() {
		return ErrWidthMismatch
	}
	s.op = op
	if err := s.eng.Init(wrapRHS(op), 0, s.y); err != nil {
		return err
	}
	if err := s.SetTolerances(RelTolDefault, AbsTolDefault); err != nil {
		return err
	}
	if s.fixed > 0 {
		s.applyFixedStep()
	}
	if !s.explicit {
		if impl, ok := s.eng.(engine.ImplicitEngine); ok {
			s.shim = newMultistageShim(linsolve.NewDense(op), 0, s.stepStart)
			if err := impl.SetLinearSolver(s.shim); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReInit keeps the engine and RHS wiring, restarting from a new
// operator, state and time.
func (s *Multistage) ReInit(op operator.TimeDependent, y vec.Vector, t float64) error {
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
	if s.shim != nil {
		s.shim.t0 = t
	}
	return nil
}

func (s *Multistage) SetTolerances(rel, abs float64) error {
	return s.eng.SetTolerances(rel, abs)
}

// SetERKTable selects the explicit tableau. Ignored by implicit
// instances.
func (s *Multistage) SetERKTable(tb multistage.Tableau) {
	s.table = tableChoice{set: true, tb: tb}
	if st, ok := s.eng.(interface{ SetTable(multistage.Tableau) }); ok {
		st.SetTable(tb)
	}
}

// SetFixedStep disables step-size control in favor of a constant
// internal step.
func (s *Multistage) SetFixedStep(h float64) {
	s.fixed = h
	s.applyFixedStep()
}

func (s *Multistage) applyFixedStep() {
	if fs, ok := s.eng.(engine.FixedStepper); ok {
		fs.SetFixedStep(s.fixed)
	}
}

// SetLinearSolve attaches the caller's Jacobian-solve operator. An
// explicit instance is rebuilt implicit at the preserved current time,
// with tolerances reset and the step cap raised.
func (s *Multistage) SetLinearSolve(js operator.JacobianSolver) error {
	if s.op == nil {
		return ErrNotInitialized
	}
	t0 := s.eng.Stats().CurrentTime
	if s.explicit {
		s.explicit = false
		s.eng = s.build()
		if err := s.eng.Init(wrapRHS(s.op), t0, s.y); err != nil {
			return err
		}
		if err := s.SetTolerances(RelTolDefault, AbsTolDefault); err != nil {
			return err
		}
		if s.fixed > 0 {
			s.applyFixedStep()
		}
	}

	s.eng.SetMaxSteps(newtonMaxSteps)
	if err := s.SetTolerances(newtonRelTol, newtonAbsTol); err != nil {
		return err
	}

	impl, ok := s.eng.(engine.ImplicitEngine)
	if !ok {
		return engine.ErrNoLinearSolver
	}
	if s.shim != nil {
		s.shim.Free()
	}
	s.shim = newMultistageShim(js, t0, s.stepStart)
	return impl.SetLinearSolver(s.shim)
}

// stepStart reports the engine's step-start time: Advance updates it
// only after an internal step is accepted.
func (s *Multistage) stepStart() float64 { return s.eng.Stats().CurrentTime }

// Step advances x from *t toward *t + *dt, writing back the achieved
// time and the last internal step size.
func (s *Multistage) Step(x vec.Vector, t *float64, dt *float64) error {
	if s.op == nil {
		return ErrNotInitialized
	}
	s.y = x
	return stepEngine(s.eng, x, t, dt)
}

// SetMaxSteps bounds the internal steps per Step call.
func (s *Multistage) SetMaxSteps(n int) { s.eng.SetMaxSteps(n) }

func (s *Multistage) Stats() engine.Stats { return s.eng.Stats() }
