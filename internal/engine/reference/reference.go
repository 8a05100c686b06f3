// Package reference is a small in-process backend: direct-space cutoff
// sums under minimum-image periodic boundaries, Langevin dynamics and a
// steepest-descent minimiser. Import it for its registration side effect.
package reference

import (
	"fmt"
	"runtime"

	"github.com/san-kum/ionsim/internal/engine"
)

// Name is the registry name of this backend.
const Name = "reference"

func init() {
	engine.RegisterBackend(Name, func() engine.Backend { return New() })
}

// Backend evaluates forces on the CPU with a fixed number of workers.
type Backend struct {
	workers int
}

func New() *Backend {
	return &Backend{workers: runtime.NumCPU()}
}

// WithWorkers returns a backend using n goroutines for pair sums.
func WithWorkers(n int) *Backend {
	if n < 1 {
		n = 1
	}
	return &Backend{workers: n}
}

func (b *Backend) Name() string { return Name }

// NewContext binds sys to integ. Global parameters and per-particle values
// are read now; later changes to the forces do not reach the context.
func (b *Backend) NewContext(sys *engine.System, integ engine.LangevinIntegrator, top engine.Topology) (engine.Context, error) {
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	if err := integ.Validate(); err != nil {
		return nil, err
	}
	if top != nil && top.NumAtoms() != sys.NumParticles() {
		return nil, fmt.Errorf("topology has %d atoms, system has %d: %w", top.NumAtoms(), sys.NumParticles(), engine.ErrDimensionMismatch)
	}
	h, err := engine.Resolve(sys)
	if err != nil {
		return nil, err
	}
	ev, err := newEvaluator(sys, h, b.workers)
	if err != nil {
		return nil, err
	}
	return newContext(sys, integ, ev), nil
}
