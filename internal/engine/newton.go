package engine

import "github.com/kstrom/odebridge/internal/vec"

// Newton solves the stage equation y = r + gamma*f(t, y) by modified
// Newton iteration, driving the registered LinearSolver for every
// correction. Setup runs before each Solve, so the hook always sees a
// current iterate.
type Newton struct {
	MaxIter int
	Tol     float64 // convergence bound on the correction, in tolerance units

	fcur  vec.Vector
	resid vec.Vector
}

func NewNewton() *Newton {
	return &Newton{MaxIter: 10, Tol: 0.1}
}

func (nw *Newton) ensureScratch(n int) {
	if len(nw.fcur) != n {
		nw.fcur = vec.New(n)
		nw.resid = vec.New(n)
	}
}

// Solve iterates on y in place. ypred is the step predictor, kept for
// the solver hook; y must start equal to it. rel and abs weight the
// convergence norm; counters accumulate into st.
func (nw *Newton) Solve(f RHS, ls LinearSolver, t, gamma float64, r, ypred, y vec.Vector, rel, abs float64, st *Stats) error {
	if ls == nil {
		return ErrNoLinearSolver
	}
	n := y.Len()
	nw.ensureScratch(n)

	for iter := 0; iter < nw.MaxIter; iter++ {
		if err := f(t, y, nw.fcur); err != nil {
			return err
		}
		st.RHSEvals++

		for i := 0; i < n; i++ {
			nw.resid[i] = r[i] + gamma*nw.fcur[i] - y[i]
		}

		if err := ls.Setup(t, y, nw.fcur); err != nil {
			return err
		}
		if err := ls.Solve(t, nw.resid, y, ypred, nw.fcur, gamma); err != nil {
			return err
		}
		st.LinearSolves++
		st.NewtonIters++

		y.AXPY(1, nw.resid)
		if !y.IsValid() {
			return ErrInvalidState
		}
		if nw.resid.WRMSNorm(y, rel, abs) <= nw.Tol {
			return nil
		}
	}
	return ErrConvergence
}
