package bridge

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/linsolve"
	"github.com/kstrom/odebridge/internal/vec"
)

var _ = Describe("wrapRHS", func() {
	It("stamps the operator time and applies it in place", func() {
		op := newProbeOp(3)
		rhs := wrapRHS(op)

		y := vec.Vector{1, 2, 3}
		ydot := vec.New(3)
		Expect(rhs(1.5, y, ydot)).To(Succeed())

		Expect(op.gotTime).To(Equal(1.5))
		Expect(op.Time()).To(Equal(1.5))
		Expect(op.gotY).To(BeIdenticalTo(&y[0]), "operator must see the engine's storage, not a copy")
		Expect(ydot[0]).To(Equal(-1.0))
	})

	It("rejects a state of the wrong width", func() {
		rhs := wrapRHS(newProbeOp(3))
		err := rhs(0, vec.New(2), vec.New(2))
		Expect(err).To(MatchError(ErrWidthMismatch))
	})
})

var _ = Describe("Multistep adapter", func() {
	var (
		fake *fakeEngine
		y    vec.Vector
	)

	newAdapter := func(method Method, iter Iteration) *Multistep {
		s := NewMultistep(y, method, iter)
		fake = &fakeEngine{hLast: 0.007}
		s.newEngine = func(Method, Iteration) engine.Engine { return fake }
		s.eng = fake
		return s
	}

	BeforeEach(func() {
		y = vec.Vector{1, 0}
	})

	Describe("Init", func() {
		It("registers the RHS at t=0 with default tolerances", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			Expect(fake.f).NotTo(BeNil())
			Expect(fake.initT).To(BeZero())
			Expect(&fake.y[0]).To(BeIdenticalTo(&y[0]))
			Expect(fake.rel).To(Equal(RelTolDefault))
			Expect(fake.abs).To(Equal(AbsTolDefault))
		})

		It("gives a Newton instance tighter defaults and a dense solver", func() {
			s := newAdapter(BDF, Newton)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			Expect(fake.rel).To(Equal(1e-3))
			Expect(fake.abs).To(Equal(1e-6))
			Expect(fake.ls).To(BeAssignableToTypeOf(&multistepShim{}))
		})

		It("keeps tolerances chosen before Init", func() {
			s := newAdapter(BDF, Newton)
			Expect(s.SetTolerances(1e-8, 1e-12)).To(Succeed())
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			Expect(fake.rel).To(Equal(1e-8))
			Expect(fake.abs).To(Equal(1e-12))
		})

		It("rejects an operator of the wrong width", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(5))).To(MatchError(ErrWidthMismatch))
		})
	})

	Describe("Step", func() {
		It("writes back the achieved time and last internal step", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			fake.shortfall = 0.03

			t, dt := 1.0, 0.1
			Expect(s.Step(y, &t, &dt)).To(Succeed())

			Expect(t).To(BeNumerically("~", 1.1-0.03, 1e-12))
			Expect(dt).To(Equal(0.007))
		})

		It("leaves dt alone when the engine reports no step", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			fake.hLast = 0

			t, dt := 0.0, 0.25
			Expect(s.Step(y, &t, &dt)).To(Succeed())
			Expect(dt).To(Equal(0.25))
		})

		It("rejects a non-positive dt", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			t, dt := 0.0, 0.0
			Expect(s.Step(y, &t, &dt)).To(MatchError(ErrBadStep))
		})

		It("fails before Init", func() {
			s := NewMultistep(y, Adams, Functional)
			t, dt := 0.0, 0.1
			Expect(s.Step(y, &t, &dt)).To(MatchError(ErrNotInitialized))
		})
	})

	Describe("SetLinearSolve", func() {
		It("rebuilds a functional instance in Newton form at the current time", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			old := fake
			old.stats.CurrentTime = 2.5

			rebuilt := &fakeEngine{}
			s.newEngine = func(m Method, it Iteration) engine.Engine {
				Expect(m).To(Equal(BDF))
				Expect(it).To(Equal(Newton))
				return rebuilt
			}

			Expect(s.SetLinearSolve(&recordingSolver{})).To(Succeed())

			Expect(rebuilt.initT).To(Equal(2.5), "rebuild must not lose the current time")
			Expect(rebuilt.maxSteps).To(Equal(newtonMaxSteps))
			Expect(rebuilt.rel).To(Equal(newtonRelTol))
			Expect(rebuilt.abs).To(Equal(newtonAbsTol))
			Expect(rebuilt.ls).To(BeAssignableToTypeOf(&multistepShim{}))
		})

		It("replaces the default solver on a Newton instance without rebuilding", func() {
			s := newAdapter(BDF, Newton)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			rebuilds := 0
			s.newEngine = func(Method, Iteration) engine.Engine { rebuilds++; return &fakeEngine{} }

			Expect(s.SetLinearSolve(&recordingSolver{})).To(Succeed())
			Expect(rebuilds).To(BeZero())
			Expect(fake.maxSteps).To(Equal(newtonMaxSteps))
		})

		It("fails before Init", func() {
			s := NewMultistep(y, Adams, Functional)
			Expect(s.SetLinearSolve(&recordingSolver{})).To(MatchError(ErrNotInitialized))
		})
	})

	Describe("ReInit", func() {
		It("restarts the engine from the new state and time", func() {
			s := newAdapter(Adams, Functional)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			y2 := vec.Vector{3, 4}
			Expect(s.ReInit(newProbeOp(2), y2, 7.5)).To(Succeed())

			Expect(fake.initT).To(Equal(7.5))
			Expect(&fake.y[0]).To(BeIdenticalTo(&y2[0]))
		})

		It("fails before Init", func() {
			s := NewMultistep(y, Adams, Functional)
			Expect(s.ReInit(newProbeOp(2), y, 0)).To(MatchError(ErrNotInitialized))
		})
	})

	Describe("end to end", func() {
		It("integrates a nonstiff problem across a mid-run solver attach", func() {
			state := vec.Vector{1}
			s := NewMultistep(state, Adams, Functional)
			op := newDecayOp(-1)
			Expect(s.Init(op)).To(Succeed())
			Expect(s.SetTolerances(1e-6, 1e-9)).To(Succeed())

			t, dt := 0.0, 0.1
			for t < 0.5 {
				Expect(s.Step(state, &t, &dt)).To(Succeed())
			}
			mid := t

			Expect(s.SetLinearSolve(linsolve.NewDense(op))).To(Succeed())
			Expect(s.Stats().CurrentTime).To(BeNumerically("~", mid, 1e-12))
			Expect(s.SetTolerances(1e-6, 1e-9)).To(Succeed())

			dt = 0.1
			for t < 1.0 {
				Expect(s.Step(state, &t, &dt)).To(Succeed())
			}
			Expect(state[0]).To(BeNumerically("~", math.Cos(t), 5e-3))
		})

		It("handles a stiff problem through the default dense solver", func() {
			state := vec.Vector{1}
			s := NewMultistep(state, BDF, Newton)
			Expect(s.Init(newDecayOp(-1e3))).To(Succeed())
			s.SetMaxSteps(newtonMaxSteps)

			t, dt := 0.0, 0.1
			for t < 1.0 {
				Expect(s.Step(state, &t, &dt)).To(Succeed())
			}
			Expect(state[0]).To(BeNumerically("~", math.Cos(t), 5e-2))
			Expect(s.Stats().LinearSolves).To(BeNumerically(">", 0))
		})
	})
})
