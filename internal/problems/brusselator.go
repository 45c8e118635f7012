package problems

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Brusselator is the two-species autocatalytic oscillator:
//
//	du/dt = a - (b+1)*u + u^2*v
//	dv/dt = b*u - u^2*v
type Brusselator struct {
	operator.Base
	a, b float64
}

func NewBrusselator() *Brusselator {
	return &Brusselator{Base: operator.NewBase(2), a: 1, b: 3}
}

func (br *Brusselator) Mult(y, ydot vec.Vector) error {
	u, v := y[0], y[1]
	ydot[0] = br.a - (br.b+1)*u + u*u*v
	ydot[1] = br.b*u - u*u*v
	return nil
}

func (br *Brusselator) Jacobian(y vec.Vector, dst *mat.Dense) error {
	u, v := y[0], y[1]
	dst.Set(0, 0, -(br.b+1)+2*u*v)
	dst.Set(0, 1, u*u)
	dst.Set(1, 0, br.b-2*u*v)
	dst.Set(1, 1, -u*u)
	return nil
}

func (br *Brusselator) DefaultState() vec.Vector { return vec.Vector{1.5, 3} }

func (br *Brusselator) GetParams() map[string]float64 {
	return map[string]float64{"a": br.a, "b": br.b}
}

func (br *Brusselator) SetParam(name string, value float64) {
	switch name {
	case "a":
		br.a = value
	case "b":
		br.b = value
	}
}
