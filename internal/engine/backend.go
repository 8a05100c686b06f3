package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// BoltzmannKJ is k_B in kJ/mol/K.
const BoltzmannKJ = 0.008314462618

// LangevinIntegrator parameterises stochastic dynamics.
type LangevinIntegrator struct {
	Temperature float64 // K
	Friction    float64 // 1/ps
	Timestep    float64 // ps
}

func (li LangevinIntegrator) Validate() error {
	if li.Temperature <= 0 {
		return fmt.Errorf("temperature must be positive, got %g: %w", li.Temperature, ErrConfiguration)
	}
	if li.Friction < 0 {
		return fmt.Errorf("friction must be non-negative, got %g: %w", li.Friction, ErrConfiguration)
	}
	if li.Timestep <= 0 {
		return fmt.Errorf("timestep must be positive, got %g: %w", li.Timestep, ErrConfiguration)
	}
	return nil
}

// State is a snapshot of a running context.
type State struct {
	Step       int
	Time       float64 // ps
	Positions  [][3]float64
	Velocities [][3]float64
	Potential  float64 // kJ/mol
	Kinetic    float64 // kJ/mol
	Box        [3]float64
}

// DegreesOfFreedom is 3N minus constraints minus the removed centre-of-mass
// motion.
func DegreesOfFreedom(n, constraints int) int {
	dof := 3*n - constraints - 3
	if dof < 1 {
		dof = 1
	}
	return dof
}

// Temperature converts the kinetic energy to an instantaneous temperature.
func (s State) Temperature(dof int) float64 {
	if dof <= 0 {
		return 0
	}
	return 2 * s.Kinetic / (float64(dof) * BoltzmannKJ)
}

func (s State) Volume() float64 { return s.Box[0] * s.Box[1] * s.Box[2] }

// IsValid reports whether energies and positions are finite.
func (s State) IsValid() bool {
	if math.IsNaN(s.Potential) || math.IsInf(s.Potential, 0) {
		return false
	}
	for _, p := range s.Positions {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Topology is the read-only view of residue grouping a backend may use.
type Topology interface {
	NumAtoms() int
}

// Context is a system bound to an integrator.
type Context interface {
	SetPositions(pos [][3]float64) error
	SetVelocitiesToTemperature(temperature float64, seed int64) error
	Minimize(ctx context.Context, tolerance float64, maxIterations int) error
	Step(ctx context.Context, n int) error
	State() State
}

// Backend creates contexts. It is the only gateway to the engine.
type Backend interface {
	Name() string
	NewContext(sys *System, integrator LangevinIntegrator, top Topology) (Context, error)
}

// Reporter receives states during production.
type Reporter interface {
	Interval() int
	Report(s State) error
	Close() error
}

var backends = map[string]func() Backend{}

// RegisterBackend makes a backend available by name.
func RegisterBackend(name string, fn func() Backend) {
	backends[name] = fn
}

// GetBackend returns a fresh backend by name.
func GetBackend(name string) (Backend, error) {
	fn, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownBackend, name, ListBackends())
	}
	return fn(), nil
}

func ListBackends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
