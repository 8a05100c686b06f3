package topology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	chem "github.com/rmera/gochem"
)

const angstromPerNm = 10

// LoadPDB reads atoms and coordinates with gochem and the periodic box from
// the CRYST1 record. Consecutive atoms sharing residue id and chain form one
// residue. Coordinates are converted to nm.
func LoadPDB(path string) (*Topology, error) {
	mol, err := chem.PDBFileRead(path)
	if err != nil {
		return nil, fmt.Errorf("read pdb %s: %w", path, err)
	}
	if mol.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	coords := mol.Coords[0]

	t := New()
	prevID, prevChain := 0, ""
	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		if i == 0 || at.MolID != prevID || at.Chain != prevChain {
			t.AddResidue(at.MolName, at.MolID, at.Chain)
			prevID, prevChain = at.MolID, at.Chain
		}
		pos := [3]float64{
			coords.At(i, 0) / angstromPerNm,
			coords.At(i, 1) / angstromPerNm,
			coords.At(i, 2) / angstromPerNm,
		}
		t.AddAtom(at.Name, at.Symbol, pos)
	}

	box, err := readCryst1(path)
	if err != nil {
		return nil, err
	}
	t.Box = box
	return t, nil
}

// readCryst1 scans for the unit-cell record. A missing record leaves the box
// zero; non-orthogonal cells are rejected.
func readCryst1(path string) ([3]float64, error) {
	var box [3]float64
	f, err := os.Open(path)
	if err != nil {
		return box, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "CRYST1") {
			continue
		}
		fields := strings.Fields(line[6:])
		if len(fields) < 6 {
			return box, fmt.Errorf("%s: malformed CRYST1 record %q", path, line)
		}
		var cell [6]float64
		for k := 0; k < 6; k++ {
			cell[k], err = strconv.ParseFloat(fields[k], 64)
			if err != nil {
				return box, fmt.Errorf("%s: CRYST1 field %d: %w", path, k+1, err)
			}
		}
		for k := 3; k < 6; k++ {
			if cell[k] != 90 {
				return box, fmt.Errorf("%s: only rectangular boxes are supported, got angles %v", path, cell[3:])
			}
		}
		for k := 0; k < 3; k++ {
			box[k] = cell[k] / angstromPerNm
		}
		return box, nil
	}
	return box, sc.Err()
}

// WritePDB writes a CRYST1 record (when the box is set), one ATOM record per
// atom in Å, TER records between chains and END.
func WritePDB(w io.Writer, t *Topology) error {
	bw := bufio.NewWriter(w)
	if t.HasBox() {
		fmt.Fprintf(bw, "CRYST1%9.3f%9.3f%9.3f%7.2f%7.2f%7.2f P 1           1\n",
			t.Box[0]*angstromPerNm, t.Box[1]*angstromPerNm, t.Box[2]*angstromPerNm, 90.0, 90.0, 90.0)
	}
	serial := 1
	for ri, r := range t.Residues {
		for i := r.Start; i < r.End; i++ {
			a := t.Atoms[i]
			p := t.Positions[i]
			fmt.Fprintf(bw, "ATOM  %5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
				serial%100000, pdbAtomName(a.Name), truncate(r.Name, 3), truncate(r.Chain, 1), r.ID%10000,
				p[0]*angstromPerNm, p[1]*angstromPerNm, p[2]*angstromPerNm, 1.0, 0.0, truncate(a.Element, 2))
			serial++
		}
		if ri == len(t.Residues)-1 || t.Residues[ri+1].Chain != r.Chain {
			fmt.Fprintf(bw, "TER   %5d      %3s %1s%4d\n", serial%100000, truncate(r.Name, 3), truncate(r.Chain, 1), r.ID%10000)
			serial++
		}
	}
	fmt.Fprintln(bw, "END")
	return bw.Flush()
}

// WritePDBFile writes t to path.
func WritePDBFile(path string, t *Topology) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePDB(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// pdbAtomName left-pads names shorter than four characters so that
// one-letter elements land in column 14.
func pdbAtomName(name string) string {
	name = truncate(name, 4)
	if len(name) < 4 {
		return " " + name
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
