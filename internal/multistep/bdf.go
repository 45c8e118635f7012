package multistep

import (
	"errors"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/vec"
)

// BDF is a backward-differentiation engine of orders 1-2. Stage
// equations are solved by modified Newton through the registered
// linear-solve hook; the hook receives gamma = h*beta0 for the current
// order. The order drops to 1 whenever the step size changes, keeping
// leading coefficients exact.
type BDF struct {
	f        engine.RHS
	y        vec.Vector
	t        float64
	rel, abs float64
	maxSteps int
	maxOrder int
	control  engine.StepControl
	stats    engine.Stats

	ls     engine.LinearSolver
	newton *engine.Newton

	yPrev    vec.Vector // y_{n-1}, order-2 history
	hPrev    float64
	haveHist bool

	fn, rvec, yPred, yNew, est vec.Vector
}

func NewBDF() *BDF {
	return &BDF{
		rel:      1e-4,
		abs:      1e-9,
		maxSteps: defaultMaxSteps,
		maxOrder: 2,
		control:  engine.DefaultStepControl(1),
		newton:   engine.NewNewton(),
	}
}

// SetMaxOrder bounds the BDF order at 1 or 2.
func (b *BDF) SetMaxOrder(q int) {
	if q == 1 || q == 2 {
		b.maxOrder = q
	}
}

func (b *BDF) SetLinearSolver(ls engine.LinearSolver) error {
	if b.ls != nil {
		b.ls.Free()
	}
	b.ls = ls
	if ls == nil {
		return nil
	}
	return ls.Init()
}

func (b *BDF) Init(f engine.RHS, t0 float64, y vec.Vector) error {
	if f == nil || y.Len() == 0 {
		return engine.ErrDimensionMismatch
	}
	b.f = f
	b.t = t0
	b.y = y
	b.haveHist = false
	b.stats = engine.Stats{CurrentTime: t0}
	b.ensureScratch(y.Len())
	return nil
}

func (b *BDF) ReInit(t0 float64, y vec.Vector) error {
	if b.f == nil {
		return engine.ErrNotInitialized
	}
	return b.Init(b.f, t0, y)
}

func (b *BDF) SetTolerances(rel, abs float64) error {
	if rel <= 0 || abs <= 0 {
		return engine.ErrInvalidState
	}
	b.rel, b.abs = rel, abs
	return nil
}

func (b *BDF) SetMaxSteps(n int) {
	if n > 0 {
		b.maxSteps = n
	}
}

func (b *BDF) Stats() engine.Stats { return b.stats }

func (b *BDF) ensureScratch(n int) {
	if len(b.fn) != n {
		b.fn = vec.New(n)
		b.rvec = vec.New(n)
		b.yPred = vec.New(n)
		b.yNew = vec.New(n)
		b.est = vec.New(n)
		b.yPrev = vec.New(n)
	}
}

func (b *BDF) Advance(tout float64, y vec.Vector) (float64, float64, error) {
	if b.f == nil {
		return b.t, 0, engine.ErrNotInitialized
	}
	if b.ls == nil {
		return b.t, 0, engine.ErrNoLinearSolver
	}
	if tout <= b.t {
		return b.t, 0, engine.ErrInvalidTarget
	}
	b.y = y
	n := y.Len()
	b.ensureScratch(n)

	h := b.stats.NextStep
	if h <= 0 {
		h = (tout - b.t) / 100
	}

	for steps := 0; b.t < tout; steps++ {
		if steps >= b.maxSteps {
			return b.t, b.stats.LastStep, &engine.StepError{Time: b.t, Step: steps, Wrapped: engine.ErrTooManySteps}
		}
		hitEnd := false
		if b.t+h >= tout {
			h = tout - b.t
			hitEnd = true
		}

		// Order 2 only with same-size history.
		order := 1
		if b.maxOrder >= 2 && b.haveHist && b.hPrev == h {
			order = 2
		}

		var gamma float64
		if order == 2 {
			gamma = 2 * h / 3
			for i := 0; i < n; i++ {
				b.rvec[i] = (4*b.y[i] - b.yPrev[i]) / 3
				b.yPred[i] = 2*b.y[i] - b.yPrev[i]
			}
		} else {
			gamma = h
			if err := b.f(b.t, b.y, b.fn); err != nil {
				return b.t, b.stats.LastStep, err
			}
			b.stats.RHSEvals++
			for i := 0; i < n; i++ {
				b.rvec[i] = b.y[i]
				b.yPred[i] = b.y[i] + h*b.fn[i]
			}
		}

		b.yNew.CopyFrom(b.yPred)
		err := b.newton.Solve(b.f, b.ls, b.t+h, gamma, b.rvec, b.yPred, b.yNew, b.rel, b.abs, &b.stats)
		if err != nil {
			// A convergence failure is retried with a smaller step.
			if errors.Is(err, engine.ErrConvergence) {
				b.stats.ErrorTestFails++
				b.haveHist = false
				h *= b.control.MinScale
				if h < minStep {
					return b.t, b.stats.LastStep, &engine.StepError{Time: b.t, Step: steps, Wrapped: engine.ErrStepTooSmall}
				}
				continue
			}
			return b.t, b.stats.LastStep, err
		}

		// Local error from the predictor gap.
		c := 0.5
		if order == 2 {
			c = 1.0 / 3
		}
		for i := 0; i < n; i++ {
			b.est[i] = c * (b.yNew[i] - b.yPred[i])
		}
		errRatio := b.est.WRMSNorm(b.y, b.rel, b.abs)

		if b.control.Accept(errRatio) {
			b.yPrev.CopyFrom(b.y)
			b.hPrev = h
			b.haveHist = true
			b.y.CopyFrom(b.yNew)
			b.t += h
			b.stats.Steps++
			b.stats.LastStep = h
			b.stats.CurrentTime = b.t
			// Keep h unchanged unless the error leaves real headroom, so
			// order 2 stays reachable.
			if errRatio < 0.1 {
				h = b.control.Next(h, errRatio)
			}
		} else {
			b.stats.ErrorTestFails++
			b.haveHist = false
			h = b.control.Next(h, errRatio)
			hitEnd = false
		}

		if h < minStep && b.t < tout {
			return b.t, b.stats.LastStep, &engine.StepError{Time: b.t, Step: steps, Wrapped: engine.ErrStepTooSmall}
		}
		if !hitEnd {
			b.stats.NextStep = h
		}
	}
	return b.t, b.stats.LastStep, nil
}
