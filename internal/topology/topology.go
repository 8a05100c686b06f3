// Package topology holds atoms, residues, positions and the periodic box of
// a structure, and reads and writes them as PDB files.
package topology

import (
	"errors"
	"fmt"

	"github.com/san-kum/ionsim/internal/pbc"
)

var (
	ErrEmpty       = errors.New("topology: no atoms")
	ErrNoBox       = errors.New("topology: structure has no periodic box")
	ErrBadPosition = errors.New("topology: position count does not match atom count")
)

// Atom is one particle of the structure.
type Atom struct {
	Name    string
	Element string
	Residue int // index into Topology.Residues
}

// Residue is a contiguous run of atoms [Start, End).
type Residue struct {
	Name  string
	ID    int
	Chain string
	Start int
	End   int
}

// Len is the number of atoms in the residue.
func (r Residue) Len() int { return r.End - r.Start }

// Topology is a structure with positions in nm and a rectangular box in nm.
type Topology struct {
	Atoms     []Atom
	Residues  []Residue
	Positions [][3]float64
	Box       [3]float64
}

func New() *Topology {
	return &Topology{}
}

func (t *Topology) NumAtoms() int { return len(t.Atoms) }

func (t *Topology) NumResidues() int { return len(t.Residues) }

// AddResidue opens a new residue; atoms added afterwards belong to it.
func (t *Topology) AddResidue(name string, id int, chain string) int {
	n := len(t.Atoms)
	t.Residues = append(t.Residues, Residue{Name: name, ID: id, Chain: chain, Start: n, End: n})
	return len(t.Residues) - 1
}

// AddAtom appends an atom to the last residue, opening an anonymous residue
// if there is none.
func (t *Topology) AddAtom(name, element string, pos [3]float64) int {
	if len(t.Residues) == 0 {
		t.AddResidue("UNK", 1, "A")
	}
	r := len(t.Residues) - 1
	t.Atoms = append(t.Atoms, Atom{Name: name, Element: element, Residue: r})
	t.Positions = append(t.Positions, pos)
	t.Residues[r].End = len(t.Atoms)
	return len(t.Atoms) - 1
}

// ResidueOf returns the residue holding atom i.
func (t *Topology) ResidueOf(i int) Residue {
	return t.Residues[t.Atoms[i].Residue]
}

// Centre is the periodic centre of a residue's atoms.
func (t *Topology) Centre(r Residue) [3]float64 {
	return pbc.CenterOfMass(t.Positions[r.Start:r.End], t.Box)
}

// Volume is the box volume in nm^3.
func (t *Topology) Volume() float64 { return t.Box[0] * t.Box[1] * t.Box[2] }

// Validate checks that atoms, positions and residue ranges agree.
func (t *Topology) Validate() error {
	if len(t.Atoms) == 0 {
		return ErrEmpty
	}
	if len(t.Positions) != len(t.Atoms) {
		return fmt.Errorf("%w: %d positions, %d atoms", ErrBadPosition, len(t.Positions), len(t.Atoms))
	}
	next := 0
	for i, r := range t.Residues {
		if r.Start != next || r.End < r.Start {
			return fmt.Errorf("topology: residue %d (%s%d) range [%d,%d) is not contiguous", i, r.Name, r.ID, r.Start, r.End)
		}
		next = r.End
	}
	if next != len(t.Atoms) {
		return fmt.Errorf("topology: residues cover %d of %d atoms", next, len(t.Atoms))
	}
	return nil
}

// HasBox reports whether every box edge is positive.
func (t *Topology) HasBox() bool {
	return t.Box[0] > 0 && t.Box[1] > 0 && t.Box[2] > 0
}
