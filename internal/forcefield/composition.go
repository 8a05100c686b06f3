package forcefield

import (
	"github.com/san-kum/ionsim/internal/electro"
	"github.com/san-kum/ionsim/internal/topology"
)

// Composition counts the atoms of top per atom type, with each type's
// charge as its valence. Neutral types are left out.
func (ff *ForceField) Composition(top *topology.Topology) (electro.Composition, error) {
	counts := make(map[string]int)
	for _, atom := range top.Atoms {
		typ, _, err := ff.TypeOf(top.Residues[atom.Residue].Name, atom.Name)
		if err != nil {
			return electro.Composition{}, err
		}
		counts[typ]++
	}
	comp := electro.Composition{Volume: top.Volume()}
	for _, typ := range sortedKeys(counts) {
		q, _ := ff.AtomTypes[typ].param("q")
		if q == 0 {
			continue
		}
		comp.Species = append(comp.Species, electro.Species{Name: typ, Count: counts[typ], Valence: q})
	}
	return comp, nil
}
