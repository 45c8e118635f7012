package problems

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Decay is the Prothero-Robinson style test y' = lambda*(y - cos t) - sin t,
// with exact solution y = cos t for y(0) = 1. Large negative lambda
// makes it arbitrarily stiff while keeping the solution tame.
type Decay struct {
	operator.Base
	lambda float64
}

func NewDecay(lambda float64) *Decay {
	return &Decay{Base: operator.NewBase(1), lambda: lambda}
}

func (d *Decay) Mult(y, ydot vec.Vector) error {
	t := d.Time()
	ydot[0] = d.lambda*(y[0]-math.Cos(t)) - math.Sin(t)
	return nil
}

func (d *Decay) Jacobian(y vec.Vector, dst *mat.Dense) error {
	dst.Set(0, 0, d.lambda)
	return nil
}

func (d *Decay) DefaultState() vec.Vector { return vec.Vector{1} }

// Exact returns the analytic solution at t.
func (d *Decay) Exact(t float64) float64 { return math.Cos(t) }

func (d *Decay) Stiff() bool { return d.lambda < -100 }

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"lambda": d.lambda}
}

func (d *Decay) SetParam(name string, value float64) {
	if name == "lambda" {
		d.lambda = value
	}
}
