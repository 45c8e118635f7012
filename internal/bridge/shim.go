package bridge

import (
	"github.com/kstrom/odebridge/internal/operator"
	"github.com/kstrom/odebridge/internal/vec"
)

// multistepShim implements the engine's linear-solve hook quadruple on
// top of a Jacobian-solve operator. Setup keeps shallow references to
// the predictor pair; Solve passes the predictor as the previous
// iterate, with the engine's gamma as the step weight.
type multistepShim struct {
	js     operator.JacobianSolver
	setupY vec.Vector
	setupF vec.Vector
}

func newMultistepShim(js operator.JacobianSolver) *multistepShim {
	return &multistepShim{js: js}
}

func (s *multistepShim) Init() error { return nil }

func (s *multistepShim) Setup(t float64, ypred, fpred vec.Vector) error {
	s.setupY = ypred
	s.setupF = fpred
	return nil
}

func (s *multistepShim) Solve(t float64, b, ycur, yprev, fcur vec.Vector, gamma float64) error {
	prev := s.setupY
	if prev == nil {
		prev = yprev
	}
	return s.js.SolveJacobian(b, ycur, prev, gamma)
}

func (s *multistepShim) Free() {
	s.setupY = nil
	s.setupF = nil
}

// multistageShim behaves like multistepShim but ignores solve requests
// issued during the first internal step after (re)initialization: the
// stage predictor is not meaningful yet. Stage solves always carry
// times past t0, so the guard keys off now, the driving engine's
// step-start time, which stays at t0 until a step is accepted.
type multistageShim struct {
	multistepShim
	t0  float64
	now func() float64
}

func newMultistageShim(js operator.JacobianSolver, t0 float64, now func() float64) *multistageShim {
	return &multistageShim{multistepShim: multistepShim{js: js}, t0: t0, now: now}
}

func (s *multistageShim) Solve(t float64, b, ycur, yprev, fcur vec.Vector, gamma float64) error {
	if s.now() <= s.t0 {
		return nil
	}
	return s.multistepShim.Solve(t, b, ycur, yprev, fcur, gamma)
}
