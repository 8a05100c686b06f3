package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/params"
	"github.com/san-kum/ionsim/internal/rigid"
)

// Stage names in execution order.
const (
	StageBuild       = "build"
	StageOverrides   = "overrides"
	StageCharges     = "charges"
	StageRigid       = "rigid"
	StageCheck       = "check"
	StageIntegrator  = "integrator"
	StageContext     = "context"
	StagePositions   = "positions"
	StageMinimize    = "minimize"
	StageVelocities  = "velocities"
	StageEquilibrate = "equilibrate"
	StageReporters   = "reporters"
	StageProduction  = "production"
)

// Options are the physical knobs of one run.
type Options struct {
	Integrator engine.LangevinIntegrator

	Minimize              bool
	MinimizeTolerance     float64 // kJ/mol/nm
	MinimizeMaxIterations int

	// VelocityTemperature defaults to the integrator temperature.
	VelocityTemperature float64
	Seed                int64

	EquilibrationSteps int
	ProductionSteps    int

	Rigid          bool
	RigidThreshold float64 // nm
	RigidStiffness float64 // kJ/mol/nm^2
	// RigidSelector picks residues; nil means every multi-atom residue.
	RigidSelector rigid.Selector

	Overrides   []params.Override
	ChargeScale float64
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

type Result struct {
	Stages     []StageTiming
	Final      engine.State
	Minimized  bool
	Potential0 float64 // kJ/mol before minimisation
	Rigid      []rigid.Report
	Incomplete []rigid.Report
	DOF        int
}

func (r *Result) Elapsed() time.Duration {
	var d time.Duration
	for _, s := range r.Stages {
		d += s.Duration
	}
	return d
}

// StageError reports which stage stopped the pipeline.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e StageError) Unwrap() error { return e.Err }
