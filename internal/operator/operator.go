// Package operator defines the host-side surface the bridge adapts:
// time-dependent operators supplying the right-hand side of y' = f(t, y),
// and Jacobian-solve operators backing implicit time steps.
package operator

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/vec"
)

// TimeDependent is an operator whose action depends on an externally
// held time: callers set the time, then apply the operator.
// Mult computes ydot = f(t, y) at the current time.
type TimeDependent interface {
	Width() int
	SetTime(t float64)
	Time() float64
	Mult(y, ydot vec.Vector) error
}

// JacobianSolver solves the Newton-correction system
//
//	(I - gamma*J) x = b,  J = df/dy at ycur,
//
// overwriting b with x. yprev is the step predictor the iteration
// started from; gamma is the step weight chosen by the engine.
type JacobianSolver interface {
	SolveJacobian(b, ycur, yprev vec.Vector, gamma float64) error
}

// Jacobian is implemented by operators that can evaluate df/dy directly.
// Without it, solvers fall back to finite differences.
type Jacobian interface {
	Jacobian(y vec.Vector, dst *mat.Dense) error
}

// BlockEvaluator is implemented by operators whose RHS decomposes into
// independent index blocks, enabling block-parallel evaluation.
type BlockEvaluator interface {
	MultBlock(lo, hi int, y, ydot vec.Vector) error
}

// Configurable exposes named tunable parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

// Base carries the width and current time. Embed it to satisfy the
// bookkeeping half of TimeDependent.
type Base struct {
	width int
	t     float64
}

func NewBase(width int) Base {
	return Base{width: width}
}

func (b *Base) Width() int        { return b.width }
func (b *Base) SetTime(t float64) { b.t = t }
func (b *Base) Time() float64     { return b.t }
