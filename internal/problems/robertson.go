package problems

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Robertson is the classic three-species kinetics problem, severely
// stiff: rate constants span nine orders of magnitude.
type Robertson struct {
	operator.Base
	k1, k2, k3 float64
}

func NewRobertson() *Robertson {
	return &Robertson{Base: operator.NewBase(3), k1: 0.04, k2: 3e7, k3: 1e4}
}

func (r *Robertson) Mult(y, ydot vec.Vector) error {
	ydot[0] = -r.k1*y[0] + r.k3*y[1]*y[2]
	ydot[1] = r.k1*y[0] - r.k3*y[1]*y[2] - r.k2*y[1]*y[1]
	ydot[2] = r.k2 * y[1] * y[1]
	return nil
}

func (r *Robertson) Jacobian(y vec.Vector, dst *mat.Dense) error {
	dst.Set(0, 0, -r.k1)
	dst.Set(0, 1, r.k3*y[2])
	dst.Set(0, 2, r.k3*y[1])
	dst.Set(1, 0, r.k1)
	dst.Set(1, 1, -r.k3*y[2]-2*r.k2*y[1])
	dst.Set(1, 2, -r.k3*y[1])
	dst.Set(2, 0, 0)
	dst.Set(2, 1, 2*r.k2*y[1])
	dst.Set(2, 2, 0)
	return nil
}

func (r *Robertson) DefaultState() vec.Vector { return vec.Vector{1, 0, 0} }

func (r *Robertson) Stiff() bool { return true }
