package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/ionsim/internal/topology"
)

// Selection matches atoms by residue name and atom name. An empty field
// matches anything.
type Selection struct {
	Residue string
	Atom    string
}

// ParseSelection reads "ATOM" or "RES:ATOM"; "RES:" selects every atom of
// a residue name.
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selection{}, fmt.Errorf("analysis: empty selection")
	}
	res, atom, found := strings.Cut(s, ":")
	if !found {
		return Selection{Atom: s}, nil
	}
	if res == "" {
		return Selection{}, fmt.Errorf("analysis: selection %q has no residue name", s)
	}
	return Selection{Residue: res, Atom: atom}, nil
}

func (s Selection) String() string {
	if s.Residue == "" {
		return s.Atom
	}
	return s.Residue + ":" + s.Atom
}

func (s Selection) Matches(res topology.Residue, atom topology.Atom) bool {
	if s.Residue != "" && s.Residue != res.Name {
		return false
	}
	return s.Atom == "" || s.Atom == atom.Name
}

// Indices returns the matching atom indices in ascending order.
func (s Selection) Indices(top *topology.Topology) []int {
	var out []int
	for i, a := range top.Atoms {
		if s.Matches(top.Residues[a.Residue], a) {
			out = append(out, i)
		}
	}
	return out
}
