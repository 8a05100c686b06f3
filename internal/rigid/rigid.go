// Package rigid makes residues rigid by tying every close intra-residue pair
// with a stiff harmonic bond and removing that pair from nonbonded
// evaluation.
package rigid

import (
	"fmt"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/pbc"
	"github.com/san-kum/ionsim/internal/topology"
)

// Defaults used by the rigid-square setups, in nm and kJ/mol/nm^2.
const (
	DefaultThreshold = 0.6
	DefaultStiffness = 5e5
)

// Pairs enumerates every unordered pair in [start, end) in ascending
// lexicographic order.
func Pairs(start, end int) []engine.Pair {
	n := end - start
	if n < 2 {
		return nil
	}
	out := make([]engine.Pair, 0, n*(n-1)/2)
	for i := start; i < end; i++ {
		for j := i + 1; j < end; j++ {
			out = append(out, engine.Pair{I: i, J: j})
		}
	}
	return out
}

// Report summarises one residue.
type Report struct {
	Residue     topology.Residue
	Total       int
	Constrained []engine.Pair
	Skipped     []engine.Pair
}

// Rigid reports whether every pair was constrained.
func (r Report) Rigid() bool { return len(r.Skipped) == 0 }

func (r Report) String() string {
	return fmt.Sprintf("%s%d: %d/%d pairs constrained", r.Residue.Name, r.Residue.ID, len(r.Constrained), r.Total)
}

// Build adds a bond of the measured length and stiffness k for every pair
// of res closer than threshold, and the matching exclusion on each
// excluder. Pairs at or beyond the threshold are left untouched.
func Build(res topology.Residue, positions [][3]float64, threshold, k float64, bonds *engine.HarmonicBondForce, excluders ...engine.Excluder) Report {
	rep := Report{Residue: res}
	for _, p := range Pairs(res.Start, res.End) {
		rep.Total++
		d := pbc.Euclidean(positions[p.I], positions[p.J])
		if d >= threshold {
			rep.Skipped = append(rep.Skipped, p)
			continue
		}
		bonds.AddBond(p.I, p.J, d, k)
		for _, ex := range excluders {
			ex.AddExclusion(p.I, p.J)
		}
		rep.Constrained = append(rep.Constrained, p)
	}
	return rep
}

// Selector picks the residues to make rigid.
type Selector func(r topology.Residue) bool

// ByName selects residues by name.
func ByName(names ...string) Selector {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(r topology.Residue) bool { return set[r.Name] }
}

// Multiatom selects residues with at least two atoms.
func Multiatom(r topology.Residue) bool { return r.Len() > 1 }

// BuildAll runs Build over the selected residues of top in residue order.
func BuildAll(top *topology.Topology, sel Selector, threshold, k float64, bonds *engine.HarmonicBondForce, excluders ...engine.Excluder) []Report {
	if sel == nil {
		sel = Multiatom
	}
	var reports []Report
	for _, r := range top.Residues {
		if !sel(r) {
			continue
		}
		reports = append(reports, Build(r, top.Positions, threshold, k, bonds, excluders...))
	}
	return reports
}

// Validate returns the reports of residues that are only partly rigid.
func Validate(reports []Report) []Report {
	var out []Report
	for _, r := range reports {
		if !r.Rigid() {
			out = append(out, r)
		}
	}
	return out
}

// CheckConsistency verifies that every exclusion on the excluders is backed
// by a bond between the same pair.
func CheckConsistency(bonds *engine.HarmonicBondForce, excluders ...engine.Excluder) error {
	bonded := make(map[engine.Pair]bool, bonds.NumBonds())
	for n := 0; n < bonds.NumBonds(); n++ {
		b := bonds.Bond(n)
		bonded[engine.NewPair(b.I, b.J)] = true
	}
	for _, ex := range excluders {
		for n := 0; n < ex.NumExclusions(); n++ {
			p := ex.Exclusion(n)
			if !bonded[p] {
				return &engine.ConfigurationError{
					Force:  ex.Name(),
					Reason: fmt.Sprintf("exclusion %v has no matching bond", p),
				}
			}
		}
	}
	return nil
}
