package problems

import (
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Oscillator is the undamped harmonic oscillator, state [x, v].
type Oscillator struct {
	operator.Base
	omega float64
}

func NewOscillator() *Oscillator {
	return &Oscillator{Base: operator.NewBase(2), omega: 1}
}

func (o *Oscillator) Mult(y, ydot vec.Vector) error {
	ydot[0] = y[1]
	ydot[1] = -o.omega * o.omega * y[0]
	return nil
}

func (o *Oscillator) DefaultState() vec.Vector { return vec.Vector{1, 0} }

func (o *Oscillator) Energy(y vec.Vector) float64 {
	return 0.5 * (o.omega*o.omega*y[0]*y[0] + y[1]*y[1])
}

func (o *Oscillator) GetParams() map[string]float64 {
	return map[string]float64{"omega": o.omega}
}

func (o *Oscillator) SetParam(name string, value float64) {
	if name == "omega" {
		o.omega = value
	}
}
