package sim_test

import (
	"bytes"
	"context"
	"errors"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/engine/reference"
	"github.com/san-kum/ionsim/internal/forcefield"
	"github.com/san-kum/ionsim/internal/params"
	"github.com/san-kum/ionsim/internal/reporters"
	"github.com/san-kum/ionsim/internal/rigid"
	"github.com/san-kum/ionsim/internal/sim"
	"github.com/san-kum/ionsim/internal/topology"
)

// spyBackend records whether a context was ever requested.
type spyBackend struct {
	engine.Backend
	calls int
}

func (b *spyBackend) NewContext(sys *engine.System, integ engine.LangevinIntegrator, top engine.Topology) (engine.Context, error) {
	b.calls++
	return b.Backend.NewContext(sys, integ, top)
}

func squareSystem(box float64) *topology.Topology {
	top, err := topology.RigidSquares(1, 0.4, [3]float64{box, box, box}, topology.Chloride, 11)
	Expect(err).NotTo(HaveOccurred())
	return top
}

func defaultOptions() sim.Options {
	return sim.Options{
		Integrator:            engine.LangevinIntegrator{Temperature: 300, Friction: 5, Timestep: 0.0005},
		Minimize:              true,
		MinimizeTolerance:     50,
		MinimizeMaxIterations: 200,
		Seed:                  3,
		EquilibrationSteps:    20,
		ProductionSteps:       40,
		Rigid:                 true,
		RigidThreshold:        0.6,
		RigidStiffness:        5e5,
		RigidSelector:         rigid.ByName("SQR"),
		ChargeScale:           1,
	}
}

func stageNames(ts []sim.StageTiming) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

var _ = Describe("Pipeline", func() {
	var (
		logs   *bytes.Buffer
		logger *log.Logger
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		logger = log.New(logs)
	})

	build := func(top *topology.Topology, opts sim.Options, backend engine.Backend) *sim.Pipeline {
		p, err := sim.Build(top, forcefield.DebyeHuckel(), forcefield.Options{Cutoff: 1.2}, backend, opts, logger)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	It("runs every stage in order and reports production only", func() {
		p := build(squareSystem(4), defaultOptions(), reference.New())
		thermo := reporters.NewThermo(10, p.DegreesOfFreedom())

		res, err := p.Run(context.Background(), thermo)
		Expect(err).NotTo(HaveOccurred())
		Expect(stageNames(res.Stages)).To(Equal([]string{
			sim.StageBuild, sim.StageOverrides, sim.StageCharges, sim.StageRigid, sim.StageCheck,
			sim.StageIntegrator, sim.StageContext, sim.StagePositions, sim.StageMinimize,
			sim.StageVelocities, sim.StageEquilibrate, sim.StageReporters, sim.StageProduction,
		}))
		Expect(res.Final.Step).To(Equal(60))
		Expect(res.Minimized).To(BeTrue())
		Expect(res.Final.IsValid()).To(BeTrue())

		steps := []int{}
		for _, row := range thermo.Rows() {
			steps = append(steps, row.Step)
		}
		Expect(steps).To(Equal([]int{30, 40, 50, 60}))
		Expect(logs.String()).To(ContainSubstring("stage done"))
	})

	It("builds six bonds and six exclusions per excluder for a square", func() {
		p := build(squareSystem(4), defaultOptions(), reference.New())
		Expect(p.Setup()).To(Succeed())

		h := p.Handles()
		Expect(h.Bonds.NumBonds()).To(Equal(6))
		for _, ex := range h.Excluders() {
			Expect(ex.NumExclusions()).To(Equal(6))
		}
		Expect(p.RigidReports()).To(HaveLen(1))
		Expect(p.RigidReports()[0].Rigid()).To(BeTrue())
	})

	It("warns about residues left partly flexible", func() {
		opts := defaultOptions()
		opts.RigidThreshold = 0.5
		p := build(squareSystem(4), opts, reference.New())
		Expect(p.Setup()).To(Succeed())

		reports := p.RigidReports()
		Expect(reports).To(HaveLen(1))
		Expect(reports[0].Constrained).To(HaveLen(4))
		Expect(reports[0].Skipped).To(HaveLen(2))
		Expect(logs.String()).To(ContainSubstring("not fully rigid"))
	})

	It("applies overrides before binding the context", func() {
		opts := defaultOptions()
		opts.Overrides = []params.Override{{Force: engine.KindCustomNonbonded, Name: "lD", Value: 0.35}}
		p := build(squareSystem(4), opts, reference.New())
		Expect(p.Setup()).To(Succeed())

		v, ok := p.Handles().Custom.GlobalParameter("lD")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(0.35))
	})

	It("reports the dielectric after an epsilon_r override", func() {
		opts := defaultOptions()
		opts.Overrides = []params.Override{{Force: engine.KindNonbonded, Name: "epsilon_r", Value: 40}}
		ions, err := topology.IonPairs(5, [3]float64{4, 4, 4}, topology.Sodium, topology.Chloride, 0.3, 2)
		Expect(err).NotTo(HaveOccurred())
		p, err := sim.Build(ions, forcefield.ExplicitIons(), forcefield.Options{Cutoff: 1.2, Dielectric: 78.5}, reference.New(), opts, logger)
		Expect(err).NotTo(HaveOccurred())
		_, ok := p.Dielectric()
		Expect(ok).To(BeFalse())

		Expect(p.Setup()).To(Succeed())
		eps, ok := p.Dielectric()
		Expect(ok).To(BeTrue())
		Expect(eps).To(Equal(40.0))
	})

	It("stops at an unknown override without creating a context", func() {
		opts := defaultOptions()
		opts.Overrides = []params.Override{{Force: engine.KindCustomNonbonded, Name: "kappa", Value: 1}}
		spy := &spyBackend{Backend: reference.New()}
		p := build(squareSystem(4), opts, spy)
		closer := &stepRecorder{interval: 1}

		_, err := p.Run(context.Background(), closer)
		var se sim.StageError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Stage).To(Equal(sim.StageOverrides))
		Expect(err).To(MatchError(engine.ErrConfiguration))
		Expect(spy.calls).To(BeZero())
		Expect(closer.closed).To(Equal(1))
	})

	It("scales charges on both nonbonded forces", func() {
		opts := defaultOptions()
		opts.ChargeScale = 0.5
		p := build(squareSystem(4), opts, reference.New())
		Expect(p.Setup()).To(Succeed())

		idx := p.Handles().Custom.PerParticleParameterIndex(params.ChargeParameter)
		Expect(idx).To(BeNumerically(">=", 0))
		Expect(p.Handles().Custom.ParticleParameters(0)[idx]).To(Equal(0.5))
	})

	It("rejects a cutoff beyond half the box", func() {
		p, err := sim.Build(squareSystem(2), forcefield.DebyeHuckel(), forcefield.Options{Cutoff: 1.2}, reference.New(), defaultOptions(), logger)
		Expect(err).NotTo(HaveOccurred())
		err = p.Setup()
		var se sim.StageError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Stage).To(Equal(sim.StageCheck))
	})

	It("returns the partial result when cancelled during production", func() {
		p := build(squareSystem(4), defaultOptions(), reference.New())
		ctx, cancel := context.WithCancel(context.Background())
		r := &cancelAt{step: 30, cancel: cancel}

		res, err := p.Run(ctx, r)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res).NotTo(BeNil())
		Expect(res.Final.Step).To(Equal(30))
		Expect(res.Stages[len(res.Stages)-1].Name).To(Equal(sim.StageProduction))
	})
})

type cancelAt struct {
	step   int
	cancel context.CancelFunc
}

func (c *cancelAt) Interval() int { return 10 }
func (c *cancelAt) Report(s engine.State) error {
	if s.Step >= c.step {
		c.cancel()
	}
	return nil
}
func (c *cancelAt) Close() error { return nil }
