// Package multistep implements the multistep engine family: an
// Adams-Bashforth-Moulton predictor-corrector for nonstiff problems and
// a BDF method with modified Newton iteration for stiff ones. Both
// satisfy the engine contract; BDF additionally drives the registered
// linear-solve hook.
package multistep

import (
	"math"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/vec"
)

const (
	defaultMaxSteps = 500
	minStep         = 1e-14
	maxCorrections  = 3
)

// Adams is a second-order Adams-Bashforth-Moulton engine. The corrector
// is solved by functional iteration, so no linear solves are needed.
type Adams struct {
	f        engine.RHS
	y        vec.Vector
	t        float64
	rel, abs float64
	maxSteps int
	control  engine.StepControl
	stats    engine.Stats

	// previous-step derivative, valid only while havePrev is set
	fPrev    vec.Vector
	hPrev    float64
	havePrev bool

	fn, fTrial, yPred, yCorr, est vec.Vector
}

func NewAdams() *Adams {
	return &Adams{
		rel:      1e-4,
		abs:      1e-9,
		maxSteps: defaultMaxSteps,
		control:  engine.DefaultStepControl(2),
	}
}

func (a *Adams) Init(f engine.RHS, t0 float64, y vec.Vector) error {
	if f == nil || y.Len() == 0 {
		return engine.ErrDimensionMismatch
	}
	a.f = f
	a.t = t0
	a.y = y
	a.havePrev = false
	a.stats = engine.Stats{CurrentTime: t0}
	a.ensureScratch(y.Len())
	return nil
}

func (a *Adams) ReInit(t0 float64, y vec.Vector) error {
	if a.f == nil {
		return engine.ErrNotInitialized
	}
	return a.Init(a.f, t0, y)
}

func (a *Adams) SetTolerances(rel, abs float64) error {
	if rel <= 0 || abs <= 0 {
		return engine.ErrInvalidState
	}
	a.rel, a.abs = rel, abs
	return nil
}

func (a *Adams) SetMaxSteps(n int) {
	if n > 0 {
		a.maxSteps = n
	}
}

func (a *Adams) Stats() engine.Stats { return a.stats }

func (a *Adams) ensureScratch(n int) {
	if len(a.fn) != n {
		a.fn = vec.New(n)
		a.fPrev = vec.New(n)
		a.fTrial = vec.New(n)
		a.yPred = vec.New(n)
		a.yCorr = vec.New(n)
		a.est = vec.New(n)
	}
}

func (a *Adams) Advance(tout float64, y vec.Vector) (float64, float64, error) {
	if a.f == nil {
		return a.t, 0, engine.ErrNotInitialized
	}
	if tout <= a.t {
		return a.t, 0, engine.ErrInvalidTarget
	}
	a.y = y
	n := y.Len()
	a.ensureScratch(n)

	h := a.stats.NextStep
	if h <= 0 {
		h = (tout - a.t) / 100
	}

	for steps := 0; a.t < tout; steps++ {
		if steps >= a.maxSteps {
			return a.t, a.stats.LastStep, &engine.StepError{Time: a.t, Step: steps, Wrapped: engine.ErrTooManySteps}
		}
		hitEnd := false
		if a.t+h >= tout {
			h = tout - a.t
			hitEnd = true
		}

		if err := a.f(a.t, a.y, a.fn); err != nil {
			return a.t, a.stats.LastStep, err
		}
		a.stats.RHSEvals++

		// Predict: AB2 on history, forward Euler on the first step or
		// after a rejection.
		if a.havePrev {
			r := h / (2 * a.hPrev)
			for i := 0; i < n; i++ {
				a.yPred[i] = a.y[i] + h*((1+r)*a.fn[i]-r*a.fPrev[i])
			}
		} else {
			for i := 0; i < n; i++ {
				a.yPred[i] = a.y[i] + h*a.fn[i]
			}
		}

		// Correct: trapezoidal rule by functional iteration.
		a.yCorr.CopyFrom(a.yPred)
		for m := 0; m < maxCorrections; m++ {
			if err := a.f(a.t+h, a.yCorr, a.fTrial); err != nil {
				return a.t, a.stats.LastStep, err
			}
			a.stats.RHSEvals++
			for i := 0; i < n; i++ {
				a.yCorr[i] = a.y[i] + 0.5*h*(a.fn[i]+a.fTrial[i])
			}
		}
		if !a.yCorr.IsValid() {
			return a.t, a.stats.LastStep, &engine.StepError{Time: a.t, Step: steps, Wrapped: engine.ErrInvalidState}
		}

		// Milne-style estimate from the predictor-corrector gap.
		for i := 0; i < n; i++ {
			a.est[i] = (a.yCorr[i] - a.yPred[i]) / 6
		}
		errRatio := a.est.WRMSNorm(a.y, a.rel, a.abs)

		if a.control.Accept(errRatio) {
			a.fPrev.CopyFrom(a.fn)
			a.hPrev = h
			a.havePrev = true
			a.y.CopyFrom(a.yCorr)
			a.t += h
			a.stats.Steps++
			a.stats.LastStep = h
			a.stats.CurrentTime = a.t
		} else {
			a.stats.ErrorTestFails++
			a.havePrev = false
			hitEnd = false
		}

		h = a.control.Next(h, errRatio)
		if h < minStep && a.t < tout {
			return a.t, a.stats.LastStep, &engine.StepError{Time: a.t, Step: steps, Wrapped: engine.ErrStepTooSmall}
		}
		if !hitEnd {
			a.stats.NextStep = h
		}
	}
	if math.Abs(a.t-tout) < minStep {
		a.t = tout
		a.stats.CurrentTime = tout
	}
	return a.t, a.stats.LastStep, nil
}
