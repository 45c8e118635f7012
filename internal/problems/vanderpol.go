package problems

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// VanDerPol is the Van der Pol oscillator, state [x, y] with y = dx/dt:
//
//	dx/dt = y
//	dy/dt = mu*(1 - x^2)*y - x
//
// mu around 1 gives the classic limit cycle; mu in the hundreds makes
// the problem stiff.
type VanDerPol struct {
	operator.Base
	mu float64
}

func NewVanDerPol(mu float64) *VanDerPol {
	return &VanDerPol{Base: operator.NewBase(2), mu: mu}
}

func (v *VanDerPol) Mult(y, ydot vec.Vector) error {
	x, w := y[0], y[1]
	ydot[0] = w
	ydot[1] = v.mu*(1-x*x)*w - x
	return nil
}

func (v *VanDerPol) Jacobian(y vec.Vector, dst *mat.Dense) error {
	x, w := y[0], y[1]
	dst.Set(0, 0, 0)
	dst.Set(0, 1, 1)
	dst.Set(1, 0, -2*v.mu*x*w-1)
	dst.Set(1, 1, v.mu*(1-x*x))
	return nil
}

func (v *VanDerPol) DefaultState() vec.Vector { return vec.Vector{2, 0} }

func (v *VanDerPol) Stiff() bool { return v.mu > 50 }

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.mu}
}

func (v *VanDerPol) SetParam(name string, value float64) {
	if name == "mu" {
		v.mu = value
	}
}
