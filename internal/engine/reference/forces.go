package reference

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/pbc"
)

// CoulombConstant is 1/(4 pi eps0) in kJ nm/mol/e^2.
const CoulombConstant = 138.935456

// serialThreshold is the particle count below which pair sums run on the
// calling goroutine.
const serialThreshold = 16

type nonbondedParams struct {
	cutoff2    float64
	prefactor  float64 // CoulombConstant / epsilon_r
	params     []engine.ParticleParams
	exclusions pairSet
}

type pairSet map[engine.Pair]struct{}

func snapshotExclusions(ex engine.Excluder) pairSet {
	set := make(pairSet, ex.NumExclusions())
	for n := 0; n < ex.NumExclusions(); n++ {
		set[ex.Exclusion(n)] = struct{}{}
	}
	return set
}

func (s pairSet) has(i, j int) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[engine.NewPair(i, j)]
	return ok
}

// evaluator computes the potential energy and forces of a System.
type evaluator struct {
	n       int
	box     [3]float64
	workers int

	nb     *nonbondedParams
	custom *customTables
	bonds  []engine.Bond

	localF [][][3]float64
	localE []float64
}

func newEvaluator(sys *engine.System, h *engine.Handles, workers int) (*evaluator, error) {
	ev := &evaluator{n: sys.NumParticles(), box: sys.Box(), workers: workers}
	half := math.Min(ev.box[0], math.Min(ev.box[1], ev.box[2])) / 2

	if f := h.Nonbonded; f != nil {
		if f.Cutoff <= 0 || f.Cutoff > half {
			return nil, &engine.ConfigurationError{Force: f.Name(), Reason: fmt.Sprintf("cutoff %g nm must be in (0, %g] for box %v", f.Cutoff, half, ev.box)}
		}
		eps := f.Dielectric()
		if eps <= 0 {
			return nil, &engine.ConfigurationError{Force: f.Name(), Parameter: "epsilon_r", Reason: "must be positive"}
		}
		p := &nonbondedParams{
			cutoff2:    f.Cutoff * f.Cutoff,
			prefactor:  CoulombConstant / eps,
			params:     make([]engine.ParticleParams, f.NumParticles()),
			exclusions: snapshotExclusions(f),
		}
		for i := range p.params {
			p.params[i] = f.ParticleParameters(i)
		}
		ev.nb = p
	}
	if f := h.Custom; f != nil {
		if f.Cutoff <= 0 || f.Cutoff > half {
			return nil, &engine.ConfigurationError{Force: f.Name(), Reason: fmt.Sprintf("cutoff %g nm must be in (0, %g] for box %v", f.Cutoff, half, ev.box)}
		}
		ct, err := buildCustomTables(f)
		if err != nil {
			return nil, err
		}
		ev.custom = ct
	}
	if f := h.Bonds; f != nil {
		ev.bonds = make([]engine.Bond, f.NumBonds())
		for k := range ev.bonds {
			ev.bonds[k] = f.Bond(k)
		}
	}

	ev.localF = make([][][3]float64, workers)
	ev.localE = make([]float64, workers)
	for w := range ev.localF {
		ev.localF[w] = make([][3]float64, ev.n)
	}
	return ev, nil
}

// compute fills forces (kJ/mol/nm) and returns the potential energy.
func (ev *evaluator) compute(pos [][3]float64, forces [][3]float64) (float64, error) {
	for i := range forces {
		forces[i] = [3]float64{}
	}
	var energy float64
	if ev.n < serialThreshold || ev.workers == 1 {
		energy = ev.pairsSerial(pos, forces)
	} else {
		e, err := ev.pairsParallel(pos, forces)
		if err != nil {
			return e, err
		}
		energy = e
	}
	energy += ev.bondTerms(pos, forces)
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return energy, engine.ErrUnstable
	}
	return energy, nil
}

func (ev *evaluator) pairsSerial(pos [][3]float64, f [][3]float64) float64 {
	e := 0.0
	for i := 0; i < ev.n; i++ {
		for j := i + 1; j < ev.n; j++ {
			e += ev.pair(i, j, pos, f)
		}
	}
	return e
}

// pairsParallel strides rows across workers so the triangular loop stays
// balanced, then reduces the per-worker buffers.
func (ev *evaluator) pairsParallel(pos [][3]float64, f [][3]float64) (float64, error) {
	var g errgroup.Group
	for w := 0; w < ev.workers; w++ {
		g.Go(func() error {
			lf := ev.localF[w]
			for i := range lf {
				lf[i] = [3]float64{}
			}
			e := 0.0
			for i := w; i < ev.n; i += ev.workers {
				for j := i + 1; j < ev.n; j++ {
					e += ev.pair(i, j, pos, lf)
				}
			}
			ev.localE[w] = e
			if math.IsNaN(e) || math.IsInf(e, 0) {
				return fmt.Errorf("worker %d: pair energy %g: %w", w, e, engine.ErrUnstable)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return math.NaN(), err
	}

	energy := 0.0
	for w := 0; w < ev.workers; w++ {
		energy += ev.localE[w]
		for i := 0; i < ev.n; i++ {
			for k := 0; k < 3; k++ {
				f[i][k] += ev.localF[w][i][k]
			}
		}
	}
	return energy, nil
}

// pair accumulates the nonbonded and custom terms of (i, j).
func (ev *evaluator) pair(i, j int, pos [][3]float64, f [][3]float64) float64 {
	d := pbc.Delta(pos[i], pos[j], ev.box)
	r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
	e := 0.0
	// dE/dr divided by r
	fr := 0.0

	if nb := ev.nb; nb != nil && r2 < nb.cutoff2 && !nb.exclusions.has(i, j) {
		pi, pj := nb.params[i], nb.params[j]
		r := math.Sqrt(r2)
		if qq := pi.Charge * pj.Charge; qq != 0 {
			ec := nb.prefactor * qq / r
			e += ec
			fr += -ec / r2
		}
		eps := math.Sqrt(pi.Epsilon * pj.Epsilon)
		if eps != 0 {
			sig := 0.5 * (pi.Sigma + pj.Sigma)
			s2 := sig * sig / r2
			s6 := s2 * s2 * s2
			e += 4 * eps * (s6*s6 - s6)
			fr += -24 * eps * (2*s6*s6 - s6) / r2
		}
	}
	if ct := ev.custom; ct != nil && r2 < ct.cutoff2 && !ct.exclusions.has(i, j) {
		r := math.Sqrt(r2)
		ec, dedr := ct.lookup(i, j).eval(r)
		e += ec
		fr += dedr / r
	}
	if fr != 0 {
		for k := 0; k < 3; k++ {
			// d points from i to j
			fk := fr * d[k]
			f[i][k] += fk
			f[j][k] -= fk
		}
	}
	return e
}

// bondTerms adds 1/2 k (r - r0)^2 for every bond, using minimum-image
// separations.
func (ev *evaluator) bondTerms(pos [][3]float64, f [][3]float64) float64 {
	e := 0.0
	for _, b := range ev.bonds {
		d := pbc.Delta(pos[b.I], pos[b.J], ev.box)
		r := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		dr := r - b.Length
		e += 0.5 * b.K * dr * dr
		if r == 0 {
			continue
		}
		fr := b.K * dr / r
		for k := 0; k < 3; k++ {
			fk := fr * d[k]
			f[b.I][k] += fk
			f[b.J][k] -= fk
		}
	}
	return e
}
