package operator

import (
	"context"

	"github.com/kstrom/odebridge/internal/vec"
)

// Parallel wraps a block-decomposable operator so that Mult fans the
// blocks out over goroutines. Results are identical to the serial path;
// only the evaluation order differs.
type Parallel struct {
	Base
	op     TimeDependent
	blocks int
}

// NewParallel wraps op with nblocks-way block evaluation. op must
// implement BlockEvaluator; nblocks <= 0 picks one block per CPU.
func NewParallel(op TimeDependent, nblocks int) (*Parallel, bool) {
	if _, ok := op.(BlockEvaluator); !ok {
		return nil, false
	}
	return &Parallel{Base: NewBase(op.Width()), op: op, blocks: nblocks}, true
}

func (p *Parallel) SetTime(t float64) {
	p.Base.SetTime(t)
	p.op.SetTime(t)
}

func (p *Parallel) Mult(y, ydot vec.Vector) error {
	be := p.op.(BlockEvaluator)
	part := vec.Partition(ydot, p.blocks)
	return part.Each(context.Background(), func(_ int, lo, hi int, _ vec.Vector) error {
		return be.MultBlock(lo, hi, y, ydot)
	})
}
