package vec

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Partitioned is a Vector split into contiguous blocks. Block-wise
// operations run concurrently, one goroutine per block. It is the
// shared-memory counterpart of a distributed vector: same numbers,
// run-time fan-out instead of multiple processes.
type Partitioned struct {
	data    Vector
	offsets []int // len = blocks+1
}

// Partition splits data into at most nblocks contiguous blocks of near
// equal size. nblocks <= 0 means one block per CPU.
func Partition(data Vector, nblocks int) *Partitioned {
	if nblocks <= 0 {
		nblocks = runtime.NumCPU()
	}
	n := len(data)
	if nblocks > n {
		nblocks = n
	}
	if nblocks < 1 {
		nblocks = 1
	}
	offsets := make([]int, nblocks+1)
	base, rem := n/nblocks, n%nblocks
	for i := 0; i < nblocks; i++ {
		offsets[i+1] = offsets[i] + base
		if i < rem {
			offsets[i+1]++
		}
	}
	return &Partitioned{data: data, offsets: offsets}
}

func (p *Partitioned) Len() int    { return len(p.data) }
func (p *Partitioned) Blocks() int { return len(p.offsets) - 1 }

// Whole returns the full underlying vector, shared storage.
func (p *Partitioned) Whole() Vector { return p.data }

// Block returns block i as a shared-storage sub-vector.
func (p *Partitioned) Block(i int) Vector {
	return p.data[p.offsets[i]:p.offsets[i+1]]
}

// Range returns the [lo, hi) index range of block i in the full vector.
func (p *Partitioned) Range(i int) (lo, hi int) {
	return p.offsets[i], p.offsets[i+1]
}

// Each runs fn on every block concurrently and waits for all of them.
// The first error cancels the remaining blocks.
func (p *Partitioned) Each(ctx context.Context, fn func(i int, lo, hi int, block Vector) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.Blocks(); i++ {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			lo, hi := p.Range(i)
			return fn(i, lo, hi, p.Block(i))
		})
	}
	return g.Wait()
}

// Norm computes the 2-norm with a per-block parallel reduction.
func (p *Partitioned) Norm() float64 {
	partial := make([]float64, p.Blocks())
	g := new(errgroup.Group)
	for i := 0; i < p.Blocks(); i++ {
		i := i
		g.Go(func() error {
			sum := 0.0
			for _, x := range p.Block(i) {
				sum += x * x
			}
			partial[i] = sum
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never fail
	total := 0.0
	for _, s := range partial {
		total += s
	}
	return math.Sqrt(total)
}

// AXPY computes whole += a*x block-parallel. x must have the same length.
func (p *Partitioned) AXPY(a float64, x Vector) {
	g := new(errgroup.Group)
	for i := 0; i < p.Blocks(); i++ {
		i := i
		g.Go(func() error {
			lo, hi := p.Range(i)
			block := p.Block(i)
			src := x[lo:hi]
			for j := range block {
				block[j] += a * src[j]
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}
