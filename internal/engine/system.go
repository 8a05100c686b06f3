package engine

import "fmt"

// ForceKind tags a force term so callers can locate it without inspecting
// its dynamic type.
type ForceKind int

const (
	KindHarmonicBond ForceKind = iota
	KindNonbonded
	KindCustomNonbonded
)

var kindNames = map[ForceKind]string{
	KindHarmonicBond:    "harmonic_bond",
	KindNonbonded:       "nonbonded",
	KindCustomNonbonded: "custom_nonbonded",
}

func (k ForceKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("force_kind(%d)", int(k))
}

// ParseForceKind maps a config name such as "custom_nonbonded" to its kind.
func ParseForceKind(name string) (ForceKind, error) {
	for k, s := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, &ConfigurationError{Force: name, Reason: "unknown force kind"}
}

// Force is a named interaction attached to a System.
type Force interface {
	Kind() ForceKind
	Name() string
}

// System is the particle system handed to a Backend.
type System struct {
	masses []float64
	box    [3]float64
	forces []Force
}

func NewSystem() *System {
	return &System{}
}

// AddParticle appends a particle and returns its index.
func (s *System) AddParticle(mass float64) int {
	s.masses = append(s.masses, mass)
	return len(s.masses) - 1
}

func (s *System) NumParticles() int { return len(s.masses) }

func (s *System) Mass(i int) float64 { return s.masses[i] }

func (s *System) Masses() []float64 {
	out := make([]float64, len(s.masses))
	copy(out, s.masses)
	return out
}

// AddForce appends f and returns its index in the force list.
func (s *System) AddForce(f Force) int {
	s.forces = append(s.forces, f)
	return len(s.forces) - 1
}

func (s *System) NumForces() int { return len(s.forces) }

func (s *System) Force(i int) Force { return s.forces[i] }

func (s *System) Forces() []Force {
	out := make([]Force, len(s.forces))
	copy(out, s.forces)
	return out
}

// SetBox sets the rectangular periodic box edge lengths in nm.
func (s *System) SetBox(box [3]float64) { s.box = box }

func (s *System) Box() [3]float64 { return s.box }

func (s *System) Volume() float64 { return s.box[0] * s.box[1] * s.box[2] }

// Validate checks that the system can be handed to a backend.
func (s *System) Validate() error {
	if len(s.masses) == 0 {
		return ErrNoParticles
	}
	for i, m := range s.masses {
		if m <= 0 {
			return fmt.Errorf("particle %d: mass must be positive, got %g: %w", i, m, ErrConfiguration)
		}
	}
	for i, l := range s.box {
		if l <= 0 {
			return fmt.Errorf("box edge %d must be positive, got %g: %w", i, l, ErrConfiguration)
		}
	}
	n := len(s.masses)
	for _, f := range s.forces {
		if pc, ok := f.(interface{ NumParticles() int }); ok && pc.NumParticles() != n {
			return fmt.Errorf("%s has %d particles, system has %d: %w", f.Name(), pc.NumParticles(), n, ErrDimensionMismatch)
		}
	}
	return nil
}
