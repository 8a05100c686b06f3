// Package forcefield reads force-field definition files and builds engine
// systems from a topology.
package forcefield

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/topology"
)

var (
	ErrUnknownResidue = errors.New("forcefield: no template for residue")
	ErrUnknownAtom    = errors.New("forcefield: no template for atom")
	ErrUnknownType    = errors.New("forcefield: unknown atom type")
)

// AtomType carries the per-particle parameters shared by all atoms of a
// type. Params feeds custom per-particle parameters by name.
type AtomType struct {
	Mass    float64            `yaml:"mass"`    // amu
	Charge  float64            `yaml:"charge"`  // e
	Sigma   float64            `yaml:"sigma"`   // nm
	Epsilon float64            `yaml:"epsilon"` // kJ/mol
	Params  map[string]float64 `yaml:"params,omitempty"`
}

// Global is an ordered global parameter declaration.
type Global struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// Nonbonded configures the Coulomb plus Lennard-Jones force. With
// NoCoulomb set, particles enter it uncharged and electrostatics are left to
// the custom force.
type Nonbonded struct {
	Enabled   bool     `yaml:"enabled"`
	NoCoulomb bool     `yaml:"no_coulomb,omitempty"`
	Globals   []Global `yaml:"globals,omitempty"`
}

type CustomNonbonded struct {
	Energy      string   `yaml:"energy"`
	PerParticle []string `yaml:"per_particle"`
	Globals     []Global `yaml:"globals,omitempty"`
}

// ForceField maps residue templates (atom name to type) onto atom types.
type ForceField struct {
	Name      string                       `yaml:"name"`
	AtomTypes map[string]AtomType          `yaml:"atom_types"`
	Residues  map[string]map[string]string `yaml:"residues"`
	Nonbonded Nonbonded                    `yaml:"nonbonded"`
	Custom    *CustomNonbonded             `yaml:"custom_nonbonded,omitempty"`
}

func Load(path string) (*ForceField, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ff ForceField
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse force field %s: %w", path, err)
	}
	if err := ff.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ff, nil
}

func (ff *ForceField) Save(path string) error {
	data, err := yaml.Marshal(ff)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks internal references and parameter ranges.
func (ff *ForceField) Validate() error {
	if len(ff.AtomTypes) == 0 {
		return errors.New("forcefield: no atom types")
	}
	for _, name := range sortedKeys(ff.AtomTypes) {
		at := ff.AtomTypes[name]
		if at.Mass <= 0 {
			return fmt.Errorf("forcefield: atom type %s: mass must be positive", name)
		}
		if at.Sigma < 0 || at.Epsilon < 0 {
			return fmt.Errorf("forcefield: atom type %s: sigma and epsilon must be non-negative", name)
		}
	}
	for _, res := range sortedKeys(ff.Residues) {
		for atom, typ := range ff.Residues[res] {
			if _, ok := ff.AtomTypes[typ]; !ok {
				return fmt.Errorf("%w %q (residue %s atom %s)", ErrUnknownType, typ, res, atom)
			}
		}
	}
	if ff.Custom != nil {
		if ff.Custom.Energy == "" {
			return errors.New("forcefield: custom_nonbonded has no energy expression")
		}
		for _, p := range ff.Custom.PerParticle {
			for _, name := range sortedKeys(ff.AtomTypes) {
				if _, ok := ff.AtomTypes[name].param(p); !ok {
					return fmt.Errorf("forcefield: atom type %s has no value for custom parameter %q", name, p)
				}
			}
		}
	}
	if !ff.Nonbonded.Enabled && ff.Custom == nil {
		return errors.New("forcefield: neither nonbonded nor custom_nonbonded is enabled")
	}
	return nil
}

// param resolves a custom per-particle parameter: explicit params first,
// then the standard q, sigma and epsilon.
func (at AtomType) param(name string) (float64, bool) {
	if v, ok := at.Params[name]; ok {
		return v, true
	}
	switch name {
	case "q", "charge":
		return at.Charge, true
	case "sigma":
		return at.Sigma, true
	case "epsilon":
		return at.Epsilon, true
	}
	return 0, false
}

// TypeOf returns the atom type for an atom of a residue.
func (ff *ForceField) TypeOf(residue, atom string) (string, AtomType, error) {
	tmpl, ok := ff.Residues[residue]
	if !ok {
		return "", AtomType{}, fmt.Errorf("%w %q", ErrUnknownResidue, residue)
	}
	typ, ok := tmpl[atom]
	if !ok {
		return "", AtomType{}, fmt.Errorf("%w %q in residue %s", ErrUnknownAtom, atom, residue)
	}
	return typ, ff.AtomTypes[typ], nil
}

// Options control system creation.
type Options struct {
	Cutoff     float64 // nm
	Dielectric float64 // relative; 0 keeps the force-field value
}

// CreateSystem builds one particle per atom of top, a nonbonded force when
// enabled, a custom nonbonded force when declared and an empty harmonic
// bond force for later restraints. Forces are added in that order.
func (ff *ForceField) CreateSystem(top *topology.Topology, opts Options) (*engine.System, error) {
	if top.NumAtoms() == 0 {
		return nil, engine.ErrNoParticles
	}
	if opts.Cutoff <= 0 {
		return nil, fmt.Errorf("forcefield: cutoff must be positive, got %g", opts.Cutoff)
	}

	sys := engine.NewSystem()
	sys.SetBox(top.Box)

	var nb *engine.NonbondedForce
	if ff.Nonbonded.Enabled {
		nb = engine.NewNonbondedForce(opts.Cutoff)
		for _, g := range ff.Nonbonded.Globals {
			nb.AddGlobalParameter(g.Name, g.Value)
		}
		if opts.Dielectric > 0 {
			if _, ok := nb.GlobalParameter("epsilon_r"); !ok {
				nb.AddGlobalParameter("epsilon_r", opts.Dielectric)
			}
			for i := 0; i < nb.NumGlobalParameters(); i++ {
				if nb.GlobalParameterName(i) == "epsilon_r" {
					nb.SetGlobalParameterDefault(i, opts.Dielectric)
				}
			}
		}
	}

	var custom *engine.CustomNonbondedForce
	if ff.Custom != nil {
		custom = engine.NewCustomNonbondedForce(ff.Custom.Energy, opts.Cutoff)
		for _, p := range ff.Custom.PerParticle {
			custom.AddPerParticleParameter(p)
		}
		for _, g := range ff.Custom.Globals {
			custom.AddGlobalParameter(g.Name, g.Value)
		}
	}

	for i, atom := range top.Atoms {
		res := top.Residues[atom.Residue]
		_, at, err := ff.TypeOf(res.Name, atom.Name)
		if err != nil {
			return nil, fmt.Errorf("atom %d (%s%d:%s): %w", i, res.Name, res.ID, atom.Name, err)
		}
		sys.AddParticle(at.Mass)
		if nb != nil {
			q := at.Charge
			if ff.Nonbonded.NoCoulomb {
				q = 0
			}
			nb.AddParticle(q, at.Sigma, at.Epsilon)
		}
		if custom != nil {
			vals := make([]float64, len(ff.Custom.PerParticle))
			for k, p := range ff.Custom.PerParticle {
				vals[k], _ = at.param(p)
			}
			if _, err := custom.AddParticle(vals); err != nil {
				return nil, err
			}
		}
	}

	if nb != nil {
		sys.AddForce(nb)
	}
	if custom != nil {
		sys.AddForce(custom)
	}
	sys.AddForce(engine.NewHarmonicBondForce())
	return sys, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
