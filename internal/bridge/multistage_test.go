package bridge

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kstrom/odebridge/internal/engine"
	"github.com/kstrom/odebridge/internal/linsolve"
	"github.com/kstrom/odebridge/internal/multistage"
	"github.com/kstrom/odebridge/internal/vec"
)

var _ = Describe("Multistage adapter", func() {
	var (
		fake *fakeEngine
		y    vec.Vector
	)

	newAdapter := func(explicit bool) *Multistage {
		s := NewMultistage(y, explicit)
		fake = &fakeEngine{hLast: 0.004}
		s.newExplicit = func(multistage.Tableau) engine.Engine { return fake }
		s.newImplicit = func() engine.Engine { return fake }
		s.eng = fake
		return s
	}

	BeforeEach(func() {
		y = vec.Vector{1, 0}
	})

	Describe("Init", func() {
		It("registers the RHS at t=0 with default tolerances", func() {
			s := newAdapter(true)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			Expect(fake.f).NotTo(BeNil())
			Expect(fake.initT).To(BeZero())
			Expect(fake.rel).To(Equal(RelTolDefault))
			Expect(fake.abs).To(Equal(AbsTolDefault))
		})

		It("gives an implicit instance a dense solver behind the stage shim", func() {
			s := newAdapter(false)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			Expect(fake.ls).To(BeAssignableToTypeOf(&multistageShim{}))
		})

		It("re-applies a fixed step chosen before Init", func() {
			s := newAdapter(true)
			s.SetFixedStep(0.02)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			Expect(fake.fixed).To(Equal(0.02))
		})
	})

	Describe("SetERKTable", func() {
		It("forwards the tableau to the explicit engine", func() {
			s := newAdapter(true)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			s.SetERKTable(multistage.BogackiShampine())
			Expect(fake.tableSet).To(BeTrue())
			Expect(fake.table.Name).To(Equal("bogacki-shampine"))
		})

		It("restores the choice when an explicit engine is rebuilt", func() {
			state := vec.Vector{1, 0}
			s := NewMultistage(state, true)
			Expect(s.Init(newHarmonicOp())).To(Succeed())
			s.SetERKTable(multistage.HeunEuler())

			picked := ""
			s.newExplicit = func(tb multistage.Tableau) engine.Engine {
				picked = tb.Name
				return multistage.NewERK(tb)
			}
			s.eng = s.build()
			Expect(picked).To(Equal("heun-euler"))
		})
	})

	Describe("SetLinearSolve", func() {
		It("rebuilds an explicit instance implicit at the preserved time", func() {
			s := newAdapter(true)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			fake.stats.CurrentTime = 3.25

			rebuilt := &fakeEngine{}
			s.newImplicit = func() engine.Engine { return rebuilt }

			Expect(s.SetLinearSolve(&recordingSolver{})).To(Succeed())

			Expect(rebuilt.initT).To(Equal(3.25))
			Expect(rebuilt.maxSteps).To(Equal(newtonMaxSteps))
			Expect(rebuilt.rel).To(Equal(newtonRelTol))
			Expect(rebuilt.abs).To(Equal(newtonAbsTol))

			shim, ok := rebuilt.ls.(*multistageShim)
			Expect(ok).To(BeTrue())
			Expect(shim.t0).To(Equal(3.25))
		})

		It("carries the fixed step across the rebuild", func() {
			s := newAdapter(true)
			Expect(s.Init(newProbeOp(2))).To(Succeed())
			s.SetFixedStep(0.05)

			rebuilt := &fakeEngine{}
			s.newImplicit = func() engine.Engine { return rebuilt }
			Expect(s.SetLinearSolve(&recordingSolver{})).To(Succeed())
			Expect(rebuilt.fixed).To(Equal(0.05))
		})

		It("fails before Init", func() {
			s := NewMultistage(y, true)
			Expect(s.SetLinearSolve(&recordingSolver{})).To(MatchError(ErrNotInitialized))
		})
	})

	Describe("ReInit", func() {
		It("moves the stage-solve guard to the new start time", func() {
			s := newAdapter(false)
			Expect(s.Init(newProbeOp(2))).To(Succeed())

			Expect(s.ReInit(newProbeOp(2), y, 4.0)).To(Succeed())
			Expect(s.shim.t0).To(Equal(4.0))
			Expect(fake.initT).To(Equal(4.0))
		})
	})

	Describe("end to end", func() {
		It("integrates the oscillator through one period explicitly", func() {
			state := vec.Vector{1, 0}
			s := NewMultistage(state, true)
			Expect(s.Init(newHarmonicOp())).To(Succeed())
			Expect(s.SetTolerances(1e-8, 1e-11)).To(Succeed())
			s.SetMaxSteps(100000)

			t, dt := 0.0, 0.1
			for t < 2*math.Pi {
				Expect(s.Step(state, &t, &dt)).To(Succeed())
				Expect(dt).To(BeNumerically(">", 0))
			}
			Expect(state[0]).To(BeNumerically("~", math.Cos(t), 1e-4))
			Expect(state[1]).To(BeNumerically("~", -math.Sin(t), 1e-4))
		})

		It("handles a stiff problem after attaching a solver mid-run", func() {
			state := vec.Vector{1}
			s := NewMultistage(state, true)
			op := newDecayOp(-1e3)
			Expect(s.Init(op)).To(Succeed())
			Expect(s.SetTolerances(1e-5, 1e-8)).To(Succeed())
			s.SetMaxSteps(newtonMaxSteps)

			Expect(s.SetLinearSolve(linsolve.NewDense(op))).To(Succeed())
			Expect(s.SetTolerances(1e-5, 1e-8)).To(Succeed())

			t, dt := 0.0, 0.1
			for t < 1.0 {
				Expect(s.Step(state, &t, &dt)).To(Succeed())
			}
			Expect(state[0]).To(BeNumerically("~", math.Cos(t), 1e-2))
			Expect(s.Stats().LinearSolves).To(BeNumerically(">", 0))
		})
	})
})

var _ = Describe("stage-solve shims", func() {
	It("hands the setup predictor to the Jacobian solve as the previous iterate", func() {
		rec := &recordingSolver{}
		shim := newMultistepShim(rec)

		ypred := vec.Vector{1, 2}
		fpred := vec.Vector{0, 0}
		Expect(shim.Setup(0.5, ypred, fpred)).To(Succeed())

		b := vec.Vector{1, 1}
		ycur := vec.Vector{1.1, 2.1}
		Expect(shim.Solve(0.5, b, ycur, nil, nil, 0.25)).To(Succeed())

		Expect(rec.calls).To(Equal(1))
		Expect(rec.gamma).To(Equal(0.25))
		Expect(&rec.yprev[0]).To(BeIdenticalTo(&ypred[0]), "predictor must pass through by reference")
		Expect(&rec.ycur[0]).To(BeIdenticalTo(&ycur[0]))
	})

	It("falls back to the engine-supplied previous iterate without a Setup", func() {
		rec := &recordingSolver{}
		shim := newMultistepShim(rec)

		yprev := vec.Vector{9}
		Expect(shim.Solve(0, vec.Vector{1}, vec.Vector{1}, yprev, nil, 0.1)).To(Succeed())
		Expect(&rec.yprev[0]).To(BeIdenticalTo(&yprev[0]))
	})

	It("skips stage solves while the engine still sits at the start time", func() {
		rec := &recordingSolver{}
		stepStart := 1.0
		shim := newMultistageShim(rec, 1.0, func() float64 { return stepStart })

		// Stage times run past t0 even during the first internal step;
		// the guard watches the step-start time instead.
		Expect(shim.Solve(1.05, vec.Vector{1}, vec.Vector{1}, nil, nil, 0.1)).To(Succeed())
		Expect(rec.calls).To(BeZero(), "first-step stage solve must be a no-op")

		stepStart = 1.1
		Expect(shim.Solve(1.15, vec.Vector{1}, vec.Vector{1}, nil, nil, 0.1)).To(Succeed())
		Expect(rec.calls).To(Equal(1))
	})

	It("drops its references on Free", func() {
		shim := newMultistepShim(&recordingSolver{})
		Expect(shim.Setup(0, vec.Vector{1}, vec.Vector{1})).To(Succeed())
		shim.Free()
		Expect(shim.setupY).To(BeNil())
		Expect(shim.setupF).To(BeNil())
	})
})
