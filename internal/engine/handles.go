package engine

import "fmt"

// Handles are the typed force handles of a System, resolved once by kind.
// Any of them may be nil when the system has no force of that kind.
type Handles struct {
	Bonds     *HarmonicBondForce
	Nonbonded *NonbondedForce
	Custom    *CustomNonbondedForce
}

// Resolve walks the force list of sys and binds each force to its handle.
// A system with two forces of the same kind is rejected.
func Resolve(sys *System) (*Handles, error) {
	h := &Handles{}
	seen := make(map[ForceKind]int)
	for i, f := range sys.forces {
		k := f.Kind()
		if prev, dup := seen[k]; dup {
			return nil, &ConfigurationError{
				Force:  f.Name(),
				Reason: fmt.Sprintf("duplicate %s force at index %d (first at %d)", k, i, prev),
			}
		}
		seen[k] = i
		switch k {
		case KindHarmonicBond:
			h.Bonds = f.(*HarmonicBondForce)
		case KindNonbonded:
			h.Nonbonded = f.(*NonbondedForce)
		case KindCustomNonbonded:
			h.Custom = f.(*CustomNonbondedForce)
		default:
			return nil, &ConfigurationError{Force: f.Name(), Reason: "unsupported force kind " + k.String()}
		}
	}
	return h, nil
}

// ByKind returns the global-parameter view of the force with kind k.
func (h *Handles) ByKind(k ForceKind) (GlobalParameterized, error) {
	switch k {
	case KindNonbonded:
		if h.Nonbonded != nil {
			return h.Nonbonded, nil
		}
	case KindCustomNonbonded:
		if h.Custom != nil {
			return h.Custom, nil
		}
	case KindHarmonicBond:
		return nil, &ConfigurationError{Force: k.String(), Reason: "force has no global parameters"}
	}
	return nil, &ConfigurationError{Force: k.String(), Reason: "force not present in system"}
}

// Excluders returns every nonbonded-type force present, in a fixed order.
func (h *Handles) Excluders() []Excluder {
	var out []Excluder
	if h.Nonbonded != nil {
		out = append(out, h.Nonbonded)
	}
	if h.Custom != nil {
		out = append(out, h.Custom)
	}
	return out
}
