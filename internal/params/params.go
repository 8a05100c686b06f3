// Package params applies named overrides to the global and per-particle
// parameters of forces that are already attached to a system.
package params

import (
	"fmt"

	"github.com/san-kum/ionsim/internal/engine"
)

// SetGlobal overwrites the default of the named global parameter on f.
// A name that f does not declare is an error.
func SetGlobal(f engine.GlobalParameterized, name string, value float64) error {
	for i := 0; i < f.NumGlobalParameters(); i++ {
		if f.GlobalParameterName(i) == name {
			f.SetGlobalParameterDefault(i, value)
			return nil
		}
	}
	return &engine.ConfigurationError{
		Force:     f.Name(),
		Parameter: name,
		Reason:    fmt.Sprintf("no such global parameter (have %v)", globalNames(f)),
	}
}

func globalNames(f engine.GlobalParameterized) []string {
	names := make([]string, f.NumGlobalParameters())
	for i := range names {
		names[i] = f.GlobalParameterName(i)
	}
	return names
}

// ChargeParameter is the per-particle parameter of a custom force that
// ScaleCharges treats as a charge.
const ChargeParameter = "q"

// ScaleCharges multiplies every particle charge on the nonbonded force and
// the "q" parameter of the custom force by factor. Forces that are absent,
// or a custom force without "q", are left alone.
func ScaleCharges(h *engine.Handles, factor float64) error {
	if h.Nonbonded != nil {
		for i := 0; i < h.Nonbonded.NumParticles(); i++ {
			p := h.Nonbonded.ParticleParameters(i)
			p.Charge *= factor
			h.Nonbonded.SetParticleParameters(i, p)
		}
	}
	if h.Custom != nil {
		q := h.Custom.PerParticleParameterIndex(ChargeParameter)
		if q < 0 {
			return nil
		}
		for i := 0; i < h.Custom.NumParticles(); i++ {
			p := h.Custom.ParticleParameters(i)
			p[q] *= factor
			if err := h.Custom.SetParticleParameters(i, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Override sets one global parameter on the force of the given kind.
type Override struct {
	Force engine.ForceKind
	Name  string
	Value float64
}

func (o Override) String() string {
	return fmt.Sprintf("%s.%s=%g", o.Force, o.Name, o.Value)
}

// Apply sets each override in order and stops at the first failure.
func Apply(h *engine.Handles, overrides []Override) error {
	for _, o := range overrides {
		f, err := h.ByKind(o.Force)
		if err != nil {
			return fmt.Errorf("override %s: %w", o, err)
		}
		if err := SetGlobal(f, o.Name, o.Value); err != nil {
			return fmt.Errorf("override %s: %w", o, err)
		}
	}
	return nil
}
