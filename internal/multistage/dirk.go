package multistage

import (
	"math"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/vec"
)

// sdirkGamma is the diagonal coefficient of the two-stage L-stable
// SDIRK pair: gamma = 1 - 1/sqrt(2).
var sdirkGamma = 1 - 1/math.Sqrt2

// DIRK is a two-stage singly diagonally implicit Runge-Kutta engine.
// Each stage equation goes through the registered linear-solve hook
// with gamma = h*a_ii. Error control uses step doubling; SetFixedStep
// disables it.
type DIRK struct {
	f        engine.RHS
	y        vec.Vector
	t        float64
	rel, abs float64
	maxSteps int
	fixed    float64
	control  engine.StepControl
	stats    engine.Stats

	ls     engine.LinearSolver
	newton *engine.Newton

	f1, rvec, z, yPred       vec.Vector
	yFull, yHalf, est, ySave vec.Vector
}

func NewDIRK() *DIRK {
	return &DIRK{
		rel:      1e-4,
		abs:      1e-9,
		maxSteps: defaultMaxSteps,
		control:  engine.DefaultStepControl(2),
		newton:   engine.NewNewton(),
	}
}

func (d *DIRK) SetLinearSolver(ls engine.LinearSolver) error {
	if d.ls != nil {
		d.ls.Free()
	}
	d.ls = ls
	if ls == nil {
		return nil
	}
	return ls.Init()
}

func (d *DIRK) SetFixedStep(h float64) {
	d.fixed = h
}

func (d *DIRK) Init(f engine.RHS, t0 float64, y vec.Vector) error {
	if f == nil || y.Len() == 0 {
		return engine.ErrDimensionMismatch
	}
	d.f = f
	d.t = t0
	d.y = y
	d.stats = engine.Stats{CurrentTime: t0}
	d.ensureScratch(y.Len())
	return nil
}

func (d *DIRK) ReInit(t0 float64, y vec.Vector) error {
	if d.f == nil {
		return engine.ErrNotInitialized
	}
	return d.Init(d.f, t0, y)
}

func (d *DIRK) SetTolerances(rel, abs float64) error {
	if rel <= 0 || abs <= 0 {
		return engine.ErrInvalidState
	}
	d.rel, d.abs = rel, abs
	return nil
}

func (d *DIRK) SetMaxSteps(n int) {
	if n > 0 {
		d.maxSteps = n
	}
}

func (d *DIRK) Stats() engine.Stats { return d.stats }

func (d *DIRK) ensureScratch(n int) {
	if len(d.f1) != n {
		d.f1 = vec.New(n)
		d.rvec = vec.New(n)
		d.z = vec.New(n)
		d.yPred = vec.New(n)
		d.yFull = vec.New(n)
		d.yHalf = vec.New(n)
		d.est = vec.New(n)
		d.ySave = vec.New(n)
	}
}

func (d *DIRK) Advance(tout float64, y vec.Vector) (float64, float64, error) {
	if d.f == nil {
		return d.t, 0, engine.ErrNotInitialized
	}
	if d.ls == nil {
		return d.t, 0, engine.ErrNoLinearSolver
	}
	if tout <= d.t {
		return d.t, 0, engine.ErrInvalidTarget
	}
	d.y = y
	d.ensureScratch(y.Len())

	h := d.stats.NextStep
	if d.fixed > 0 {
		h = d.fixed
	} else if h <= 0 {
		h = (tout - d.t) / 100
	}

	for steps := 0; d.t < tout; steps++ {
		if steps >= d.maxSteps {
			return d.t, d.stats.LastStep, &engine.StepError{Time: d.t, Step: steps, Wrapped: engine.ErrTooManySteps}
		}
		hitEnd := false
		if d.t+h >= tout {
			h = tout - d.t
			hitEnd = true
		}

		if d.fixed > 0 {
			if err := d.stepOnce(d.t, h, d.y, d.y); err != nil {
				return d.t, d.stats.LastStep, err
			}
			d.t += h
			d.stats.Steps++
			d.stats.LastStep = h
			d.stats.CurrentTime = d.t
			continue
		}

		// Step doubling: one full step against two halves.
		d.ySave.CopyFrom(d.y)
		if err := d.stepOnce(d.t, h, d.ySave, d.yFull); err != nil {
			return d.t, d.stats.LastStep, err
		}
		if err := d.stepOnce(d.t, h/2, d.ySave, d.yHalf); err != nil {
			return d.t, d.stats.LastStep, err
		}
		if err := d.stepOnce(d.t+h/2, h/2, d.yHalf, d.yHalf); err != nil {
			return d.t, d.stats.LastStep, err
		}

		for i := range d.est {
			d.est[i] = (d.yHalf[i] - d.yFull[i]) / 3
		}
		errRatio := d.est.WRMSNorm(d.ySave, d.rel, d.abs)

		if d.control.Accept(errRatio) {
			d.y.CopyFrom(d.yHalf)
			d.t += h
			d.stats.Steps++
			d.stats.LastStep = h
			d.stats.CurrentTime = d.t
		} else {
			d.stats.ErrorTestFails++
			hitEnd = false
		}

		h = d.control.Next(h, errRatio)
		if h < minStep && d.t < tout {
			return d.t, d.stats.LastStep, &engine.StepError{Time: d.t, Step: steps, Wrapped: engine.ErrStepTooSmall}
		}
		if !hitEnd {
			d.stats.NextStep = h
		}
	}
	return d.t, d.stats.LastStep, nil
}

// stepOnce advances yIn by one SDIRK step of size h into yOut. yIn and
// yOut may be the same vector.
func (d *DIRK) stepOnce(t, h float64, yIn, yOut vec.Vector) error {
	g := sdirkGamma
	n := yIn.Len()

	// Stage 1: z = yIn + h*g*f(t+g*h, z).
	d.rvec.CopyFrom(yIn)
	d.yPred.CopyFrom(yIn)
	d.z.CopyFrom(yIn)
	if err := d.newton.Solve(d.f, d.ls, t+g*h, h*g, d.rvec, d.yPred, d.z, d.rel, d.abs, &d.stats); err != nil {
		return err
	}
	if err := d.f(t+g*h, d.z, d.f1); err != nil {
		return err
	}
	d.stats.RHSEvals++

	// Stage 2 is stiffly accurate: yOut = z2.
	for i := 0; i < n; i++ {
		d.rvec[i] = yIn[i] + h*(1-g)*d.f1[i]
	}
	d.yPred.CopyFrom(d.z)
	d.z.CopyFrom(d.rvec)
	if err := d.newton.Solve(d.f, d.ls, t+h, h*g, d.rvec, d.yPred, d.z, d.rel, d.abs, &d.stats); err != nil {
		return err
	}
	yOut.CopyFrom(d.z)
	return nil
}
