package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/forcefield"
	"github.com/san-kum/ionsim/internal/params"
)

const (
	DefaultBackend           = "reference"
	DefaultCutoff            = 1.2   // nm
	DefaultTemperature       = 300.0 // K
	DefaultFriction          = 1.0   // 1/ps
	DefaultTimestep          = 0.002 // ps
	DefaultDielectric        = 78.5
	DefaultMinimizeTolerance = 10.0 // kJ/mol/nm
	DefaultMinimizeIters     = 1000
	DefaultEquilibration     = 5000
	DefaultProduction        = 50000
	DefaultReportInterval    = 500
	DefaultRigidThreshold    = 0.6 // nm
	DefaultRigidStiffness    = 5e5 // kJ/mol/nm^2
	DefaultRMax              = 2.0 // nm
	DefaultBinWidth          = 0.02

	// BuiltinPrefix marks a force field bundled with the binary instead of
	// a file path.
	BuiltinPrefix = "builtin:"
)

type Config struct {
	Name       string `yaml:"name"`
	Backend    string `yaml:"backend"`
	Structure  string `yaml:"structure"`
	ForceField string `yaml:"forcefield"`

	Cutoff      float64 `yaml:"cutoff"`
	Temperature float64 `yaml:"temperature"`
	Friction    float64 `yaml:"friction"`
	Timestep    float64 `yaml:"timestep"`
	Dielectric  float64 `yaml:"dielectric"`

	Minimize              bool    `yaml:"minimize"`
	MinimizeTolerance     float64 `yaml:"minimize_tolerance"`
	MinimizeMaxIterations int     `yaml:"minimize_max_iterations"`

	EquilibrationSteps int   `yaml:"equilibration_steps"`
	ProductionSteps    int   `yaml:"production_steps"`
	ReportInterval     int   `yaml:"report_interval"`
	Seed               int64 `yaml:"seed"`

	Rigid       RigidConfig      `yaml:"rigid"`
	Overrides   []OverrideConfig `yaml:"overrides,omitempty"`
	ChargeScale float64          `yaml:"charge_scale"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
}

type RigidConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	Stiffness float64 `yaml:"stiffness"`
	// Residues limits rigid bodies to these residue names; empty means
	// every multi-atom residue.
	Residues []string `yaml:"residues,omitempty"`
}

type OverrideConfig struct {
	Force string  `yaml:"force"`
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

type AnalysisConfig struct {
	A        string  `yaml:"a"`
	B        string  `yaml:"b"`
	RMax     float64 `yaml:"rmax"`
	BinWidth float64 `yaml:"bin_width"`
	Skip     int     `yaml:"skip"`
	Z1       float64 `yaml:"z1"`
	Z2       float64 `yaml:"z2"`
	// RMin is the smallest radius entering the RMS comparison.
	RMin float64 `yaml:"rmin"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:                  "ions",
		Backend:               DefaultBackend,
		Structure:             "structure.pdb",
		ForceField:            BuiltinPrefix + "ions",
		Cutoff:                DefaultCutoff,
		Temperature:           DefaultTemperature,
		Friction:              DefaultFriction,
		Timestep:              DefaultTimestep,
		Dielectric:            DefaultDielectric,
		Minimize:              true,
		MinimizeTolerance:     DefaultMinimizeTolerance,
		MinimizeMaxIterations: DefaultMinimizeIters,
		EquilibrationSteps:    DefaultEquilibration,
		ProductionSteps:       DefaultProduction,
		ReportInterval:        DefaultReportInterval,
		Seed:                  1,
		Rigid: RigidConfig{
			Threshold: DefaultRigidThreshold,
			Stiffness: DefaultRigidStiffness,
		},
		ChargeScale: 1,
		Analysis: AnalysisConfig{
			A:        "NA",
			B:        "CL",
			RMax:     DefaultRMax,
			BinWidth: DefaultBinWidth,
			Z1:       1,
			Z2:       -1,
		},
	}
}

// Load reads a YAML config over the defaults. Relative structure and force
// field paths are resolved against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	cfg.Structure = resolve(dir, cfg.Structure)
	if !cfg.IsBuiltinForceField() {
		cfg.ForceField = resolve(dir, cfg.ForceField)
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the knobs that do not depend on the structure. The
// cutoff against the box is checked when the system is built.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	check(c.Structure != "", "structure is required")
	check(c.ForceField != "", "forcefield is required")
	check(c.Cutoff > 0, "cutoff must be positive, got %g", c.Cutoff)
	check(c.Temperature > 0, "temperature must be positive, got %g", c.Temperature)
	check(c.Friction >= 0, "friction must be non-negative, got %g", c.Friction)
	check(c.Timestep > 0, "timestep must be positive, got %g", c.Timestep)
	check(c.Dielectric >= 0, "dielectric must be non-negative, got %g", c.Dielectric)
	check(c.EquilibrationSteps >= 0, "equilibration_steps must be non-negative")
	check(c.ProductionSteps >= 0, "production_steps must be non-negative")
	check(c.ReportInterval > 0, "report_interval must be positive, got %d", c.ReportInterval)
	check(c.ChargeScale != 0, "charge_scale must be non-zero")
	if c.Minimize {
		check(c.MinimizeTolerance > 0, "minimize_tolerance must be positive")
		check(c.MinimizeMaxIterations > 0, "minimize_max_iterations must be positive")
	}
	if c.Rigid.Enabled {
		check(c.Rigid.Threshold > 0, "rigid.threshold must be positive")
		check(c.Rigid.Stiffness > 0, "rigid.stiffness must be positive")
	}
	if _, err := c.ParamOverrides(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.IsBuiltinForceField() {
		if _, ok := forcefield.Builtin(c.builtinName()); !ok {
			problems = append(problems, fmt.Sprintf("unknown builtin force field %q (available: %v)", c.builtinName(), forcefield.ListBuiltins()))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ParamOverrides converts the configured overrides, rejecting unknown force
// kinds.
func (c *Config) ParamOverrides() ([]params.Override, error) {
	out := make([]params.Override, 0, len(c.Overrides))
	for i, o := range c.Overrides {
		kind, err := engine.ParseForceKind(o.Force)
		if err != nil {
			return nil, fmt.Errorf("overrides[%d]: %w", i, err)
		}
		if o.Name == "" {
			return nil, fmt.Errorf("overrides[%d]: parameter name is required", i)
		}
		out = append(out, params.Override{Force: kind, Name: o.Name, Value: o.Value})
	}
	return out, nil
}

func (c *Config) IsBuiltinForceField() bool {
	return strings.HasPrefix(c.ForceField, BuiltinPrefix)
}

func (c *Config) builtinName() string {
	return strings.TrimPrefix(c.ForceField, BuiltinPrefix)
}

// LoadForceField reads the force-field file or returns the bundled one.
func (c *Config) LoadForceField() (*forcefield.ForceField, error) {
	if c.IsBuiltinForceField() {
		ff, ok := forcefield.Builtin(c.builtinName())
		if !ok {
			return nil, fmt.Errorf("unknown builtin force field %q", c.builtinName())
		}
		return ff, nil
	}
	return forcefield.Load(c.ForceField)
}

// TotalSteps counts equilibration and production.
func (c *Config) TotalSteps() int {
	return c.EquilibrationSteps + c.ProductionSteps
}
