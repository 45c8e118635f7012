package bridge

import (
	"math"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/multistage"
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// fakeEngine records every call the adapter makes. Advance pretends to
// reach tout minus a configurable shortfall and reports a configurable
// last step.
type fakeEngine struct {
	f         engine.RHS
	initT     float64
	y         vec.Vector
	rel, abs  float64
	maxSteps  int
	ls        engine.LinearSolver
	fixed     float64
	table     multistage.Tableau
	tableSet  bool
	hLast     float64
	shortfall float64
	stats     engine.Stats
}

func (f *fakeEngine) Init(rhs engine.RHS, t0 float64, y vec.Vector) error {
	f.f = rhs
	f.initT = t0
	f.y = y
	f.stats = engine.Stats{CurrentTime: t0}
	return nil
}

func (f *fakeEngine) ReInit(t0 float64, y vec.Vector) error {
	f.initT = t0
	f.y = y
	f.stats = engine.Stats{CurrentTime: t0}
	return nil
}

func (f *fakeEngine) SetTolerances(rel, abs float64) error {
	f.rel, f.abs = rel, abs
	return nil
}

func (f *fakeEngine) SetMaxSteps(n int) { f.maxSteps = n }

func (f *fakeEngine) Advance(tout float64, y vec.Vector) (float64, float64, error) {
	reached := tout - f.shortfall
	f.stats.Steps++
	f.stats.CurrentTime = reached
	return reached, f.hLast, nil
}

func (f *fakeEngine) Stats() engine.Stats { return f.stats }

func (f *fakeEngine) SetLinearSolver(ls engine.LinearSolver) error {
	f.ls = ls
	return nil
}

func (f *fakeEngine) SetFixedStep(h float64) { f.fixed = h }

func (f *fakeEngine) SetTable(tb multistage.Tableau) {
	f.table = tb
	f.tableSet = true
}

// recordingSolver captures the arguments of the last SolveJacobian call.
type recordingSolver struct {
	calls int
	gamma float64
	b     vec.Vector
	ycur  vec.Vector
	yprev vec.Vector
}

func (r *recordingSolver) SolveJacobian(b, ycur, yprev vec.Vector, gamma float64) error {
	r.calls++
	r.gamma = gamma
	r.b = b
	r.ycur = ycur
	r.yprev = yprev
	return nil
}

// probeOp records the time and storage handed to Mult.
type probeOp struct {
	operator.Base
	gotTime float64
	gotY    *float64 // address of y[0] as seen by Mult
	calls   int
}

func newProbeOp(width int) *probeOp {
	return &probeOp{Base: operator.NewBase(width)}
}

func (p *probeOp) Mult(y, ydot vec.Vector) error {
	p.calls++
	p.gotTime = p.Time()
	p.gotY = &y[0]
	for i := range ydot {
		ydot[i] = -y[i]
	}
	return nil
}

// decayOp is y' = lambda*(y - cos t) - sin t, exact solution cos t.
type decayOp struct {
	operator.Base
	lambda float64
}

func newDecayOp(lambda float64) *decayOp {
	return &decayOp{Base: operator.NewBase(1), lambda: lambda}
}

func (d *decayOp) Mult(y, ydot vec.Vector) error {
	t := d.Time()
	ydot[0] = d.lambda*(y[0]-math.Cos(t)) - math.Sin(t)
	return nil
}

// harmonicOp is the undamped oscillator with acceleration -y, written as
// a first-order pair.
type harmonicOp struct {
	operator.Base
}

func newHarmonicOp() *harmonicOp {
	return &harmonicOp{Base: operator.NewBase(2)}
}

func (h *harmonicOp) Mult(y, ydot vec.Vector) error {
	ydot[0] = y[1]
	ydot[1] = -y[0]
	return nil
}
