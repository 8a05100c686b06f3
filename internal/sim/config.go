package sim

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/san-kum/ionsim/internal/config"
	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/forcefield"
	"github.com/san-kum/ionsim/internal/rigid"
	"github.com/san-kum/ionsim/internal/topology"
)

// OptionsFromConfig maps the run configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	overrides, err := cfg.ParamOverrides()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Integrator: engine.LangevinIntegrator{
			Temperature: cfg.Temperature,
			Friction:    cfg.Friction,
			Timestep:    cfg.Timestep,
		},
		Minimize:              cfg.Minimize,
		MinimizeTolerance:     cfg.MinimizeTolerance,
		MinimizeMaxIterations: cfg.MinimizeMaxIterations,
		Seed:                  cfg.Seed,
		EquilibrationSteps:    cfg.EquilibrationSteps,
		ProductionSteps:       cfg.ProductionSteps,
		Rigid:                 cfg.Rigid.Enabled,
		RigidThreshold:        cfg.Rigid.Threshold,
		RigidStiffness:        cfg.Rigid.Stiffness,
		Overrides:             overrides,
		ChargeScale:           cfg.ChargeScale,
	}
	if len(cfg.Rigid.Residues) > 0 {
		opts.RigidSelector = rigid.ByName(cfg.Rigid.Residues...)
	}
	return opts, nil
}

// FromConfig loads the structure and force field named by cfg and builds
// the pipeline on the configured backend.
func FromConfig(cfg *config.Config, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := engine.GetBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	top, err := topology.LoadPDB(cfg.Structure)
	if err != nil {
		return nil, fmt.Errorf("load structure: %w", err)
	}
	ff, err := cfg.LoadForceField()
	if err != nil {
		return nil, fmt.Errorf("load force field: %w", err)
	}
	if logger != nil {
		logger.Info("inputs", "structure", cfg.Structure, "atoms", top.NumAtoms(), "residues", top.NumResidues(), "forcefield", ff.Name)
	}
	return Build(top, ff, forcefield.Options{Cutoff: cfg.Cutoff, Dielectric: cfg.Dielectric}, backend, opts, logger)
}
