package forcefield

import "sort"

// ScreenedCoulombEnergy is the Debye-Hückel pair energy in kJ/mol, with lB
// and lD in nm and kT in kJ/mol.
const ScreenedCoulombEnergy = "kT*lB*q1*q2/r*exp(-r/lD)"

var builtins = map[string]func() *ForceField{
	"ions":         ExplicitIons,
	"debye-huckel": DebyeHuckel,
}

// Builtin returns a fresh copy of a bundled force field.
func Builtin(name string) (*ForceField, bool) {
	fn, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func ListBuiltins() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ExplicitIons is monovalent NaCl in a dielectric continuum: Coulomb scaled
// by epsilon_r plus Lennard-Jones cores.
func ExplicitIons() *ForceField {
	return &ForceField{
		Name: "ions",
		AtomTypes: map[string]AtomType{
			"Na": {Mass: 22.99, Charge: 1, Sigma: 0.333, Epsilon: 0.0116},
			"Cl": {Mass: 35.45, Charge: -1, Sigma: 0.440, Epsilon: 0.418},
		},
		Residues: map[string]map[string]string{
			"NA": {"NA": "Na"},
			"CL": {"CL": "Cl"},
		},
		Nonbonded: Nonbonded{
			Enabled: true,
			Globals: []Global{{Name: "epsilon_r", Value: 78.5}},
		},
	}
}

// DebyeHuckel is an implicit-salt model: uncharged Lennard-Jones cores and
// screened Coulomb between the q parameters. Square residues carry a +1
// charge at each corner, balanced by chloride.
func DebyeHuckel() *ForceField {
	return &ForceField{
		Name: "debye-huckel",
		AtomTypes: map[string]AtomType{
			"C":  {Mass: 12.011, Charge: 1, Sigma: 0.3, Epsilon: 0.1},
			"Cl": {Mass: 35.45, Charge: -1, Sigma: 0.440, Epsilon: 0.418},
		},
		Residues: map[string]map[string]string{
			"SQR": {"S1": "C", "S2": "C", "S3": "C", "S4": "C"},
			"CL":  {"CL": "Cl"},
		},
		Nonbonded: Nonbonded{
			Enabled:   true,
			NoCoulomb: true,
		},
		Custom: &CustomNonbonded{
			Energy:      ScreenedCoulombEnergy,
			PerParticle: []string{"q"},
			Globals: []Global{
				{Name: "kT", Value: 2.494},
				{Name: "lB", Value: 0.7},
				{Name: "lD", Value: 1.0},
			},
		},
	}
}
