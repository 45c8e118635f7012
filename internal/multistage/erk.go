package multistage

import (
	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/vec"
)

const (
	defaultMaxSteps = 500
	minStep         = 1e-14
)

// ERK is an explicit embedded Runge-Kutta engine over a Tableau.
type ERK struct {
	table    Tableau
	f        engine.RHS
	y        vec.Vector
	t        float64
	rel, abs float64
	maxSteps int
	fixed    float64 // > 0 disables error control
	control  engine.StepControl
	stats    engine.Stats

	k       []vec.Vector
	scratch vec.Vector
	yNew    vec.Vector
	est     vec.Vector
}

func NewERK(table Tableau) *ERK {
	return &ERK{
		table:    table,
		rel:      1e-4,
		abs:      1e-9,
		maxSteps: defaultMaxSteps,
		control:  engine.DefaultStepControl(table.Order),
	}
}

// SetTable swaps the Runge-Kutta tableau. Allowed any time; the next
// Advance uses the new method.
func (e *ERK) SetTable(table Tableau) {
	e.table = table
	e.control = engine.DefaultStepControl(table.Order)
	e.k = nil
}

func (e *ERK) SetFixedStep(h float64) {
	e.fixed = h
}

func (e *ERK) Init(f engine.RHS, t0 float64, y vec.Vector) error {
	if f == nil || y.Len() == 0 {
		return engine.ErrDimensionMismatch
	}
	e.f = f
	e.t = t0
	e.y = y
	e.stats = engine.Stats{CurrentTime: t0}
	e.ensureScratch(y.Len())
	return nil
}

func (e *ERK) ReInit(t0 float64, y vec.Vector) error {
	if e.f == nil {
		return engine.ErrNotInitialized
	}
	return e.Init(e.f, t0, y)
}

func (e *ERK) SetTolerances(rel, abs float64) error {
	if rel <= 0 || abs <= 0 {
		return engine.ErrInvalidState
	}
	e.rel, e.abs = rel, abs
	return nil
}

func (e *ERK) SetMaxSteps(n int) {
	if n > 0 {
		e.maxSteps = n
	}
}

func (e *ERK) Stats() engine.Stats { return e.stats }

func (e *ERK) ensureScratch(n int) {
	if len(e.k) != e.table.Stages() || len(e.scratch) != n {
		e.k = make([]vec.Vector, e.table.Stages())
		for i := range e.k {
			e.k[i] = vec.New(n)
		}
		e.scratch = vec.New(n)
		e.yNew = vec.New(n)
		e.est = vec.New(n)
	}
}

func (e *ERK) Advance(tout float64, y vec.Vector) (float64, float64, error) {
	if e.f == nil {
		return e.t, 0, engine.ErrNotInitialized
	}
	if tout <= e.t {
		return e.t, 0, engine.ErrInvalidTarget
	}
	e.y = y
	n := y.Len()
	e.ensureScratch(n)

	h := e.stats.NextStep
	if e.fixed > 0 {
		h = e.fixed
	} else if h <= 0 {
		h = (tout - e.t) / 100
	}

	for steps := 0; e.t < tout; steps++ {
		if steps >= e.maxSteps {
			return e.t, e.stats.LastStep, &engine.StepError{Time: e.t, Step: steps, Wrapped: engine.ErrTooManySteps}
		}
		hitEnd := false
		if e.t+h >= tout {
			h = tout - e.t
			hitEnd = true
		}

		if err := e.stages(h); err != nil {
			return e.t, e.stats.LastStep, err
		}
		if !e.yNew.IsValid() {
			return e.t, e.stats.LastStep, &engine.StepError{Time: e.t, Step: steps, Wrapped: engine.ErrInvalidState}
		}

		if e.fixed > 0 {
			e.y.CopyFrom(e.yNew)
			e.t += h
			e.stats.Steps++
			e.stats.LastStep = h
			e.stats.CurrentTime = e.t
			continue
		}

		errRatio := e.est.WRMSNorm(e.y, e.rel, e.abs)
		if e.control.Accept(errRatio) {
			e.y.CopyFrom(e.yNew)
			e.t += h
			e.stats.Steps++
			e.stats.LastStep = h
			e.stats.CurrentTime = e.t
		} else {
			e.stats.ErrorTestFails++
			hitEnd = false
		}

		h = e.control.Next(h, errRatio)
		if h < minStep && e.t < tout {
			return e.t, e.stats.LastStep, &engine.StepError{Time: e.t, Step: steps, Wrapped: engine.ErrStepTooSmall}
		}
		if !hitEnd {
			e.stats.NextStep = h
		}
	}
	return e.t, e.stats.LastStep, nil
}

// stages evaluates one step of size h into yNew and the embedded error
// into est.
func (e *ERK) stages(h float64) error {
	s := e.table.Stages()

	for i := 0; i < s; i++ {
		e.scratch.CopyFrom(e.y)
		for j := 0; j < i; j++ {
			if a := e.table.A[i][j]; a != 0 {
				e.scratch.AXPY(h*a, e.k[j])
			}
		}
		if err := e.f(e.t+e.table.C[i]*h, e.scratch, e.k[i]); err != nil {
			return err
		}
		e.stats.RHSEvals++
	}

	e.yNew.CopyFrom(e.y)
	e.est.Fill(0)
	for i := 0; i < s; i++ {
		if b := e.table.B[i]; b != 0 {
			e.yNew.AXPY(h*b, e.k[i])
		}
		if d := e.table.B[i] - e.table.BHat[i]; d != 0 {
			e.est.AXPY(h*d, e.k[i])
		}
	}
	return nil
}
