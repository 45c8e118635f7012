// Package linsolve provides Jacobian-solve operators for implicit time
// steps: a dense direct solver and a matrix-free adapter.
package linsolve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Dense solves (I - gamma*J) x = b by LU factorization of the dense
// system matrix. The Jacobian comes from the operator's own Jacobian
// method when available, otherwise from forward differences on the RHS.
type Dense struct {
	op  operator.TimeDependent
	jac operator.Jacobian // nil when finite-differencing

	eps float64 // finite-difference perturbation scale

	j     *mat.Dense
	a     *mat.Dense
	lu    mat.LU
	fBase vec.Vector
	fPert vec.Vector
	rhs   *mat.VecDense
	sol   *mat.VecDense
}

func NewDense(op operator.TimeDependent) *Dense {
	d := &Dense{
		op:  op,
		eps: math.Sqrt(machEps),
	}
	if j, ok := op.(operator.Jacobian); ok {
		d.jac = j
	}
	return d
}

const machEps = 2.220446049250313e-16

func (d *Dense) ensureScratch(n int) {
	if d.j == nil || d.j.RawMatrix().Rows != n {
		d.j = mat.NewDense(n, n, nil)
		d.a = mat.NewDense(n, n, nil)
		d.fBase = vec.New(n)
		d.fPert = vec.New(n)
		d.rhs = mat.NewVecDense(n, nil)
		d.sol = mat.NewVecDense(n, nil)
	}
}

// SolveJacobian implements operator.JacobianSolver. The Jacobian is
// rebuilt on every call; the solution overwrites b.
func (d *Dense) SolveJacobian(b, ycur, yprev vec.Vector, gamma float64) error {
	n := b.Len()
	d.ensureScratch(n)

	if d.jac != nil {
		if err := d.jac.Jacobian(ycur, d.j); err != nil {
			return fmt.Errorf("linsolve: jacobian evaluation: %w", err)
		}
	} else if err := d.fdJacobian(ycur); err != nil {
		return fmt.Errorf("linsolve: finite-difference jacobian: %w", err)
	}

	// A = I - gamma*J
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			v := -gamma * d.j.At(i, k)
			if i == k {
				v += 1
			}
			d.a.Set(i, k, v)
		}
	}

	d.lu.Factorize(d.a)
	for i := 0; i < n; i++ {
		d.rhs.SetVec(i, b[i])
	}
	if err := d.lu.SolveVecTo(d.sol, false, d.rhs); err != nil {
		return fmt.Errorf("linsolve: singular system (gamma=%g): %w", gamma, err)
	}
	for i := 0; i < n; i++ {
		b[i] = d.sol.AtVec(i)
	}
	return nil
}

func (d *Dense) fdJacobian(y vec.Vector) error {
	n := y.Len()
	if err := d.op.Mult(y, d.fBase); err != nil {
		return err
	}
	for k := 0; k < n; k++ {
		h := d.eps * math.Max(math.Abs(y[k]), 1)
		saved := y[k]
		y[k] = saved + h
		err := d.op.Mult(y, d.fPert)
		y[k] = saved
		if err != nil {
			return err
		}
		inv := 1 / h
		for i := 0; i < n; i++ {
			d.j.Set(i, k, (d.fPert[i]-d.fBase[i])*inv)
		}
	}
	return nil
}

// Func adapts a closure into a JacobianSolver, for callers that solve
// the correction system without ever forming a matrix.
type Func func(b, ycur, yprev vec.Vector, gamma float64) error

func (f Func) SolveJacobian(b, ycur, yprev vec.Vector, gamma float64) error {
	return f(b, ycur, yprev, gamma)
}
