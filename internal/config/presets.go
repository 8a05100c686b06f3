package config

import (
	"sort"

	"github.com/san-kum/ionsim/internal/forcefield"
	"github.com/san-kum/ionsim/internal/topology"
)

// Preset bundles a config with the inputs `ionsim init` writes next to it.
type Preset struct {
	Description string
	Config      func() *Config
	Structure   func(seed int64) (*topology.Topology, error)
	ForceField  func() *forcefield.ForceField
}

var Presets = map[string]Preset{
	"ions": {
		Description: "50 NaCl pairs in a 5 nm box, Coulomb in a dielectric continuum",
		Config: func() *Config {
			cfg := DefaultConfig()
			cfg.Name = "ions"
			cfg.ForceField = "forcefield.yaml"
			return cfg
		},
		Structure: func(seed int64) (*topology.Topology, error) {
			return topology.IonPairs(50, [3]float64{5, 5, 5}, topology.Sodium, topology.Chloride, 0.3, seed)
		},
		ForceField: forcefield.ExplicitIons,
	},
	"rigid-square": {
		Description: "rigid +4 squares with chloride counter-ions, screened Coulomb",
		Config: func() *Config {
			cfg := DefaultConfig()
			cfg.Name = "rigid-square"
			cfg.ForceField = "forcefield.yaml"
			cfg.Cutoff = 2.0
			cfg.Timestep = 0.001
			cfg.Friction = 5
			cfg.Rigid.Enabled = true
			cfg.Rigid.Residues = []string{"SQR"}
			cfg.Overrides = []OverrideConfig{
				{Force: "custom_nonbonded", Name: "lD", Value: 1.0},
				{Force: "custom_nonbonded", Name: "lB", Value: 0.7},
			}
			cfg.Analysis = AnalysisConfig{
				A: "SQR:S1", B: "CL",
				RMax: DefaultRMax, BinWidth: 0.05,
				Z1: 1, Z2: -1, RMin: 0.4,
			}
			return cfg
		},
		Structure: func(seed int64) (*topology.Topology, error) {
			return topology.RigidSquares(8, 0.4, [3]float64{6, 6, 6}, topology.Chloride, seed)
		},
		ForceField: forcefield.DebyeHuckel,
	},
}

// GetPreset returns nil when the name is unknown.
func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
