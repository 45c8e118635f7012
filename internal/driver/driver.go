// Package driver assembles a problem and a bridge solver from a run
// configuration and executes the outer stepping loop.
package driver

import (
	"context"
	"fmt"
	"math"

	"github.com/kstrom/odebridge/internal/bridge"
	"github.com/kstrom/odebridge/internal/config"
	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/linsolve"
	"github.com/kstrom/odebridge/internal/multistage"
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/problems"
	"github.com/kstrom/odebridge/internal/vec"
)

// Result is one executed run: the sampled trajectory plus the engine's
// work counters.
type Result struct {
	Times  []float64
	States [][]float64
	Stats  engine.Stats
}

// Build resolves the configured problem and solver, fully wired: the
// operator's RHS registered, tolerances applied, and for implicit
// methods a dense Jacobian solve attached.
func Build(cfg *config.Config) (problems.Problem, bridge.Solver, vec.Vector, error) {
	reg := problems.NewRegistry()
	prob, err := reg.Get(cfg.Problem)
	if err != nil {
		return nil, nil, nil, err
	}
	if cc, ok := prob.(operator.Configurable); ok {
		for name, val := range cfg.Params {
			cc.SetParam(name, val)
		}
	}

	y := prob.DefaultState()
	if len(cfg.InitState) > 0 {
		if len(cfg.InitState) != prob.Width() {
			return nil, nil, nil, fmt.Errorf("driver: init_state has %d entries, problem wants %d", len(cfg.InitState), prob.Width())
		}
		y = vec.Wrap(cfg.InitState).Clone()
	}

	var op operator.TimeDependent = prob
	if cfg.Blocks > 0 {
		if par, ok := operator.NewParallel(prob, cfg.Blocks); ok {
			op = par
		}
	}

	sol, err := buildSolver(cfg, y)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := sol.Init(op); err != nil {
		return nil, nil, nil, err
	}
	if cfg.Implicit() {
		if err := sol.SetLinearSolve(linsolve.NewDense(op)); err != nil {
			return nil, nil, nil, err
		}
	}
	// SetLinearSolve stamps its own Newton tolerances; the configured
	// ones win.
	if err := sol.SetTolerances(cfg.RelTol, cfg.AbsTol); err != nil {
		return nil, nil, nil, err
	}
	if cfg.MaxSteps > 0 {
		type capped interface{ SetMaxSteps(int) }
		if mc, ok := sol.(capped); ok {
			mc.SetMaxSteps(cfg.MaxSteps)
		}
	}
	return prob, sol, y, nil
}

func buildSolver(cfg *config.Config, y vec.Vector) (bridge.Solver, error) {
	switch cfg.Family {
	case "multistep":
		method, iter := bridge.Adams, bridge.Functional
		if cfg.Method == "bdf" {
			method, iter = bridge.BDF, bridge.Newton
		}
		return bridge.NewMultistep(y, method, iter), nil
	case "multistage":
		explicit := cfg.Method != "dirk"
		s := bridge.NewMultistage(y, explicit)
		if cfg.Table != "" {
			s.SetERKTable(multistage.TableByName(cfg.Table))
		}
		if cfg.FixedStep > 0 {
			s.SetFixedStep(cfg.FixedStep)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("driver: unknown family %q", cfg.Family)
	}
}

// Run executes the configured integration, sampling the state after
// every outer step.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	_, sol, y, err := Build(cfg)
	if err != nil {
		return nil, err
	}

	est := int(cfg.Duration/cfg.Dt) + 1
	result := &Result{
		Times:  make([]float64, 0, est),
		States: make([][]float64, 0, est),
	}
	record := func(t float64) {
		result.Times = append(result.Times, t)
		result.States = append(result.States, y.Clone())
	}

	t := 0.0
	record(t)
	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		dt := math.Min(cfg.Dt, cfg.Duration-t)
		if err := sol.Step(y, &t, &dt); err != nil {
			result.Stats = sol.Stats()
			return result, err
		}
		if !y.IsValid() {
			result.Stats = sol.Stats()
			return result, engine.ErrInvalidState
		}
		record(t)
	}

	result.Stats = sol.Stats()
	return result, nil
}
