package problems

import (
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// Chain is a chain of n masses coupled by springs between fixed walls,
// state [x1, v1, ..., xn, vn]. Each mass only reads its neighbors, so
// the RHS decomposes into index blocks and the chain doubles as the
// block-parallel evaluation benchmark.
type Chain struct {
	operator.Base
	n       int
	k       float64
	m       float64
	damping float64
}

func NewChain(n int) *Chain {
	return &Chain{
		Base:    operator.NewBase(n * 2),
		n:       n,
		k:       100.0,
		m:       1.0,
		damping: 0.1,
	}
}

func (c *Chain) Mult(y, ydot vec.Vector) error {
	return c.MultBlock(0, c.n*2, y, ydot)
}

// MultBlock evaluates the derivative entries in [lo, hi). Implements
// operator.BlockEvaluator. Bounds need not land on mass boundaries: a
// mass straddling an edge is evaluated by both neighboring blocks, but
// each block writes only the entries inside its own range, so no ydot
// entry ever has two writers.
func (c *Chain) MultBlock(lo, hi int, y, ydot vec.Vector) error {
	for i := lo / 2; i*2 < hi && i < c.n; i++ {
		x := y[i*2]
		v := y[i*2+1]

		var force float64
		if i > 0 {
			force += c.k * (y[(i-1)*2] - x)
		} else {
			force += c.k * (0 - x)
		}
		if i < c.n-1 {
			force += c.k * (y[(i+1)*2] - x)
		} else {
			force += c.k * (0 - x)
		}
		force -= c.damping * v

		if i*2 >= lo {
			ydot[i*2] = v
		}
		if j := i*2 + 1; j >= lo && j < hi {
			ydot[j] = force / c.m
		}
	}
	return nil
}

func (c *Chain) DefaultState() vec.Vector {
	state := vec.New(c.n * 2)
	if c.n > 0 {
		state[0] = 1.0
	}
	if c.n > 2 {
		state[2] = 0.5
	}
	return state
}

func (c *Chain) GetParams() map[string]float64 {
	return map[string]float64{"k": c.k, "damping": c.damping}
}

func (c *Chain) SetParam(name string, value float64) {
	switch name {
	case "k":
		c.k = value
	case "damping":
		c.damping = value
	}
}
