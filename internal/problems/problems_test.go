package problems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// fdCheck compares an analytic Jacobian against forward differences of
// Mult at the given state.
func fdCheck(t *testing.T, p Problem, y vec.Vector, tol float64) {
	t.Helper()
	jac, ok := p.(operator.Jacobian)
	if !ok {
		t.Fatal("problem has no analytic Jacobian")
	}
	n := y.Len()

	analytic := mat.NewDense(n, n, nil)
	if err := jac.Jacobian(y, analytic); err != nil {
		t.Fatal(err)
	}

	base := vec.New(n)
	pert := vec.New(n)
	if err := p.Mult(y, base); err != nil {
		t.Fatal(err)
	}
	const h = 1e-7
	for k := 0; k < n; k++ {
		saved := y[k]
		y[k] = saved + h
		if err := p.Mult(y, pert); err != nil {
			t.Fatal(err)
		}
		y[k] = saved
		for i := 0; i < n; i++ {
			fd := (pert[i] - base[i]) / h
			if diff := math.Abs(analytic.At(i, k) - fd); diff > tol*math.Max(math.Abs(fd), 1) {
				t.Errorf("J[%d][%d]: analytic %g, finite-difference %g", i, k, analytic.At(i, k), fd)
			}
		}
	}
}

func TestDecay_ExactSolution(t *testing.T) {
	d := NewDecay(-1)
	y := d.DefaultState()
	if y[0] != d.Exact(0) {
		t.Error("default state disagrees with exact solution at t=0")
	}
	d.SetTime(0)
	ydot := vec.New(1)
	if err := d.Mult(y, ydot); err != nil {
		t.Fatal(err)
	}
	// On the exact solution the derivative is -sin t = 0 at t=0.
	if math.Abs(ydot[0]) > 1e-12 {
		t.Errorf("derivative %g on the exact solution", ydot[0])
	}
}

func TestDecay_Stiffness(t *testing.T) {
	if NewDecay(-1).Stiff() {
		t.Error("lambda = -1 flagged stiff")
	}
	if !NewDecay(-1e4).Stiff() {
		t.Error("lambda = -1e4 not flagged stiff")
	}
}

func TestOscillator_Energy(t *testing.T) {
	o := NewOscillator()
	y := o.DefaultState()
	if e := o.Energy(y); math.Abs(e-0.5) > 1e-15 {
		t.Errorf("default-state energy %g, want 0.5", e)
	}
}

func TestJacobians_MatchFiniteDifferences(t *testing.T) {
	fdCheck(t, NewDecay(-7), vec.Vector{0.4}, 1e-5)
	fdCheck(t, NewVanDerPol(3), vec.Vector{1.2, -0.7}, 1e-5)
	fdCheck(t, NewRobertson(), vec.Vector{0.9, 1e-5, 0.1}, 1e-4)
	fdCheck(t, NewBrusselator(), vec.Vector{1.5, 3}, 1e-5)
}

func TestChain_BlockEvalMatchesFull(t *testing.T) {
	c := NewChain(8)
	y := c.DefaultState()

	full := vec.New(y.Len())
	if err := c.Mult(y, full); err != nil {
		t.Fatal(err)
	}

	blocked := vec.New(y.Len())
	mid := y.Len() / 2
	if err := c.MultBlock(0, mid, y, blocked); err != nil {
		t.Fatal(err)
	}
	if err := c.MultBlock(mid, y.Len(), y, blocked); err != nil {
		t.Fatal(err)
	}

	for i := range full {
		if math.Abs(full[i]-blocked[i]) > 1e-14 {
			t.Fatalf("entry %d: full %g, blocked %g", i, full[i], blocked[i])
		}
	}
}

// Partition boundaries that split the two entries of one mass must
// still leave every ydot entry with exactly one writing block.
func TestChain_BlockWritesStayInRange(t *testing.T) {
	c := NewChain(16)
	y := c.DefaultState()
	n := y.Len()

	got := vec.New(n)
	bounds := []int{0, 11, 22, n}
	for b := 0; b < len(bounds)-1; b++ {
		lo, hi := bounds[b], bounds[b+1]
		part := vec.New(n)
		for i := range part {
			part[i] = math.NaN()
		}
		if err := c.MultBlock(lo, hi, y, part); err != nil {
			t.Fatal(err)
		}
		for i := range part {
			in := i >= lo && i < hi
			if in && math.IsNaN(part[i]) {
				t.Fatalf("block [%d,%d): entry %d not written", lo, hi, i)
			}
			if !in && !math.IsNaN(part[i]) {
				t.Fatalf("block [%d,%d): wrote entry %d outside its range", lo, hi, i)
			}
		}
		copy(got[lo:hi], part[lo:hi])
	}

	full := vec.New(n)
	if err := c.Mult(y, full); err != nil {
		t.Fatal(err)
	}
	for i := range full {
		if math.Abs(full[i]-got[i]) > 1e-14 {
			t.Fatalf("entry %d: full %g, blocked %g", i, full[i], got[i])
		}
	}
}

// Three blocks over a 32-wide state put both partition edges on odd
// indices; under -race this pins down the concurrent Mult fan-out.
func TestChain_ParallelOddBoundaries(t *testing.T) {
	c := NewChain(16)
	par, ok := operator.NewParallel(c, 3)
	if !ok {
		t.Fatal("chain is not block-evaluable")
	}
	y := c.DefaultState()

	want := vec.New(y.Len())
	if err := c.Mult(y, want); err != nil {
		t.Fatal(err)
	}
	got := vec.New(y.Len())
	for iter := 0; iter < 50; iter++ {
		if err := par.Mult(y, got); err != nil {
			t.Fatal(err)
		}
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-14 {
			t.Fatalf("entry %d: serial %g, parallel %g", i, want[i], got[i])
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	p, err := r.Get("oscillator")
	if err != nil {
		t.Fatal(err)
	}
	if p.Width() != 2 {
		t.Errorf("oscillator width %d", p.Width())
	}

	if _, err := r.Get("no-such-problem"); err == nil {
		t.Error("unknown name did not error")
	}

	names := r.List()
	if len(names) < 8 {
		t.Errorf("registry lists only %d problems", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Error("List not sorted")
			break
		}
	}
}

func TestSetParam(t *testing.T) {
	v := NewVanDerPol(1)
	v.SetParam("mu", 500)
	if v.GetParams()["mu"] != 500 {
		t.Error("mu not updated")
	}
	if !v.Stiff() {
		t.Error("mu = 500 should be stiff")
	}
}
