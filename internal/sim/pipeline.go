package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/forcefield"
	"github.com/san-kum/ionsim/internal/params"
	"github.com/san-kum/ionsim/internal/rigid"
	"github.com/san-kum/ionsim/internal/topology"
)

// Pipeline drives one run through its stages in a fixed order. The first
// failing stage ends the run; nothing is retried or resumed.
type Pipeline struct {
	sys     *engine.System
	top     *topology.Topology
	backend engine.Backend
	opts    Options
	logger  *log.Logger

	handles *engine.Handles
	reports []rigid.Report
	stages  []StageTiming
	ready   bool
}

// New wraps an already built system. A nil logger discards output.
func New(sys *engine.System, top *topology.Topology, backend engine.Backend, opts Options, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{sys: sys, top: top, backend: backend, opts: opts, logger: logger}
}

// Build creates the system from a force field and records it as the first
// stage.
func Build(top *topology.Topology, ff *forcefield.ForceField, ffOpts forcefield.Options, backend engine.Backend, opts Options, logger *log.Logger) (*Pipeline, error) {
	p := New(nil, top, backend, opts, logger)
	err := p.stage(StageBuild, func() error {
		sys, err := ff.CreateSystem(top, ffOpts)
		if err != nil {
			return err
		}
		p.sys = sys
		p.logger.Info("system built", "forcefield", ff.Name, "atoms", sys.NumParticles(), "forces", sys.NumForces(), "box", fmt.Sprintf("%.3gx%.3gx%.3g", top.Box[0], top.Box[1], top.Box[2]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) System() *engine.System { return p.sys }

func (p *Pipeline) Topology() *topology.Topology { return p.top }

// Handles is nil before Setup.
func (p *Pipeline) Handles() *engine.Handles { return p.handles }

func (p *Pipeline) RigidReports() []rigid.Report { return p.reports }

// Dielectric is epsilon_r of the nonbonded force after overrides. It is
// false before Setup or when the system has no nonbonded force.
func (p *Pipeline) Dielectric() (float64, bool) {
	if p.handles == nil || p.handles.Nonbonded == nil {
		return 0, false
	}
	return p.handles.Nonbonded.Dielectric(), true
}

// DegreesOfFreedom counts restraints as flexible: rigid bodies here are
// springs, not constraints.
func (p *Pipeline) DegreesOfFreedom() int {
	return engine.DegreesOfFreedom(p.sys.NumParticles(), 0)
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	p.logger.Debug("stage start", "stage", name)
	err := fn()
	took := time.Since(start)
	p.stages = append(p.stages, StageTiming{Name: name, Duration: took})
	if err != nil {
		p.logger.Error("stage failed", "stage", name, "err", err)
		return StageError{Stage: name, Err: err}
	}
	p.logger.Info("stage done", "stage", name, "took", took.Round(time.Microsecond))
	return nil
}

// Setup resolves force handles, applies overrides and charge scaling, then
// builds rigid bodies and checks them. It runs once.
func (p *Pipeline) Setup() error {
	if p.ready {
		return nil
	}
	if p.sys == nil {
		return StageError{Stage: StageBuild, Err: engine.ErrNoParticles}
	}
	h, err := engine.Resolve(p.sys)
	if err != nil {
		return StageError{Stage: StageBuild, Err: err}
	}
	p.handles = h

	if err := p.stage(StageOverrides, func() error {
		if err := params.Apply(h, p.opts.Overrides); err != nil {
			return err
		}
		for _, o := range p.opts.Overrides {
			p.logger.Info("override", "param", o.String())
		}
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(StageCharges, func() error {
		if p.opts.ChargeScale == 0 || p.opts.ChargeScale == 1 {
			return nil
		}
		p.logger.Info("scaling charges", "factor", p.opts.ChargeScale)
		return params.ScaleCharges(h, p.opts.ChargeScale)
	}); err != nil {
		return err
	}

	if err := p.stage(StageRigid, p.buildRigid); err != nil {
		return err
	}

	if err := p.stage(StageCheck, p.check); err != nil {
		return err
	}
	p.ready = true
	return nil
}

func (p *Pipeline) buildRigid() error {
	if !p.opts.Rigid {
		return nil
	}
	if p.handles.Bonds == nil {
		return &engine.ConfigurationError{Force: engine.KindHarmonicBond.String(), Reason: "rigid bodies need a harmonic bond force"}
	}
	threshold, k := p.opts.RigidThreshold, p.opts.RigidStiffness
	if threshold <= 0 {
		threshold = rigid.DefaultThreshold
	}
	if k <= 0 {
		k = rigid.DefaultStiffness
	}
	p.reports = rigid.BuildAll(p.top, p.opts.RigidSelector, threshold, k, p.handles.Bonds, p.handles.Excluders()...)
	constrained := 0
	for _, r := range p.reports {
		constrained += len(r.Constrained)
		p.logger.Debug("rigid residue", "report", r.String())
	}
	for _, r := range rigid.Validate(p.reports) {
		p.logger.Warn("residue not fully rigid", "residue", fmt.Sprintf("%s%d", r.Residue.Name, r.Residue.ID), "constrained", len(r.Constrained), "pairs", r.Total, "threshold", threshold)
	}
	p.logger.Info("rigid bodies", "residues", len(p.reports), "bonds", constrained)
	return nil
}

func (p *Pipeline) check() error {
	if err := p.sys.Validate(); err != nil {
		return err
	}
	if p.top.NumAtoms() != p.sys.NumParticles() {
		return fmt.Errorf("topology has %d atoms, system %d particles: %w", p.top.NumAtoms(), p.sys.NumParticles(), engine.ErrDimensionMismatch)
	}
	box := p.sys.Box()
	half := math.Min(box[0], math.Min(box[1], box[2])) / 2
	cutoffs := map[string]float64{}
	if p.handles.Nonbonded != nil {
		cutoffs[p.handles.Nonbonded.Name()] = p.handles.Nonbonded.Cutoff
	}
	if p.handles.Custom != nil {
		cutoffs[p.handles.Custom.Name()] = p.handles.Custom.Cutoff
	}
	for name, c := range cutoffs {
		if c > half {
			return &engine.ConfigurationError{Force: name, Parameter: "cutoff", Reason: fmt.Sprintf("%g nm exceeds half the smallest box edge (%g nm)", c, half)}
		}
	}
	if p.handles.Bonds != nil {
		return rigid.CheckConsistency(p.handles.Bonds, p.handles.Excluders()...)
	}
	return nil
}

// Run executes Setup if needed, then integrator, context, positions,
// minimisation, velocities, equilibration, reporters and production.
// Reporters are attached only for production and closed when Run returns.
func (p *Pipeline) Run(ctx context.Context, reporters ...engine.Reporter) (res *Result, err error) {
	defer func() {
		var cerrs []error
		for _, r := range reporters {
			if cerr := r.Close(); cerr != nil {
				cerrs = append(cerrs, cerr)
			}
		}
		if len(cerrs) > 0 && err == nil {
			err = fmt.Errorf("close reporters: %w", errors.Join(cerrs...))
		}
	}()

	if err := p.Setup(); err != nil {
		return nil, err
	}
	res = &Result{Rigid: p.reports, Incomplete: rigid.Validate(p.reports), DOF: p.DegreesOfFreedom()}
	defer func() { res.Stages = append([]StageTiming(nil), p.stages...) }()

	var integrator engine.LangevinIntegrator
	if err := p.stage(StageIntegrator, func() error {
		integrator = p.opts.Integrator
		if err := integrator.Validate(); err != nil {
			return err
		}
		p.logger.Info("langevin integrator", "T", integrator.Temperature, "friction", integrator.Friction, "dt", integrator.Timestep)
		return nil
	}); err != nil {
		return res, err
	}

	var ectx engine.Context
	if err := p.stage(StageContext, func() error {
		c, err := p.backend.NewContext(p.sys, integrator, p.top)
		if err != nil {
			return err
		}
		ectx = c
		p.logger.Info("context bound", "backend", p.backend.Name())
		return nil
	}); err != nil {
		return res, err
	}

	if err := p.stage(StagePositions, func() error {
		if err := ectx.SetPositions(p.top.Positions); err != nil {
			return err
		}
		res.Potential0 = ectx.State().Potential
		return nil
	}); err != nil {
		return res, err
	}

	if p.opts.Minimize {
		if err := p.stage(StageMinimize, func() error {
			if err := ectx.Minimize(ctx, p.opts.MinimizeTolerance, p.opts.MinimizeMaxIterations); err != nil {
				return err
			}
			res.Minimized = true
			p.logger.Info("minimized", "from", res.Potential0, "to", ectx.State().Potential)
			return nil
		}); err != nil {
			return res, err
		}
	}

	if err := p.stage(StageVelocities, func() error {
		t := p.opts.VelocityTemperature
		if t <= 0 {
			t = integrator.Temperature
		}
		return ectx.SetVelocitiesToTemperature(t, p.opts.Seed)
	}); err != nil {
		return res, err
	}

	sim := NewSimulation(ectx)
	if err := p.stage(StageEquilibrate, func() error {
		return sim.Step(ctx, p.opts.EquilibrationSteps)
	}); err != nil {
		res.Final = ectx.State()
		return res, err
	}

	if err := p.stage(StageReporters, func() error {
		for _, r := range reporters {
			sim.AddReporter(r)
		}
		p.logger.Info("reporters attached", "count", len(reporters))
		return nil
	}); err != nil {
		return res, err
	}

	err = p.stage(StageProduction, func() error {
		return sim.Step(ctx, p.opts.ProductionSteps)
	})
	res.Final = ectx.State()
	if err != nil {
		return res, err
	}
	p.logger.Info("run complete", "steps", res.Final.Step, "time_ps", res.Final.Time, "potential", res.Final.Potential, "T", res.Final.Temperature(res.DOF))
	return res, nil
}
