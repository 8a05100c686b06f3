package topology

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/ionsim/internal/pbc"
)

// maxPlacementTries bounds the rejection sampler per particle.
const maxPlacementTries = 10000

// Ion names a single-atom residue.
type Ion struct {
	Residue string
	Atom    string
	Element string
}

var (
	Sodium   = Ion{Residue: "NA", Atom: "NA", Element: "Na"}
	Chloride = Ion{Residue: "CL", Atom: "CL", Element: "Cl"}
)

type placer struct {
	rng     *rand.Rand
	box     [3]float64
	minDist float64
	placed  [][3]float64
}

func (p *placer) place(radius float64) ([3]float64, error) {
	for try := 0; try < maxPlacementTries; try++ {
		c := [3]float64{
			p.rng.Float64() * p.box[0],
			p.rng.Float64() * p.box[1],
			p.rng.Float64() * p.box[2],
		}
		ok := true
		for _, q := range p.placed {
			if pbc.Distance(c, q, p.box) < p.minDist+radius {
				ok = false
				break
			}
		}
		if ok {
			return c, nil
		}
	}
	return [3]float64{}, fmt.Errorf("topology: could not place particle %d in box %v with spacing %g nm", len(p.placed), p.box, p.minDist)
}

// IonPairs builds n cation/anion pairs at random non-overlapping positions.
// Residue ids count up from 1 in insertion order; cations and anions
// alternate.
func IonPairs(n int, box [3]float64, cation, anion Ion, minDist float64, seed int64) (*Topology, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	pl := &placer{rng: rand.New(rand.NewSource(seed)), box: box, minDist: minDist}
	t := New()
	t.Box = box
	for i := 0; i < n; i++ {
		for k, ion := range []Ion{cation, anion} {
			pos, err := pl.place(0)
			if err != nil {
				return nil, err
			}
			pl.placed = append(pl.placed, pos)
			t.AddResidue(ion.Residue, 2*i+k+1, "A")
			t.AddAtom(ion.Atom, ion.Element, pos)
		}
	}
	return t, nil
}

// RigidSquares builds n four-atom square residues with edge side, randomly
// rotated about z, plus 4n monovalent counter-ions. Square atoms are named
// S1..S4 going around the perimeter.
func RigidSquares(n int, side float64, box [3]float64, counter Ion, seed int64) (*Topology, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	rng := rand.New(rand.NewSource(seed))
	pl := &placer{rng: rng, box: box, minDist: side}
	t := New()
	t.Box = box

	half := side / 2
	corners := [4][2]float64{{-half, -half}, {half, -half}, {half, half}, {-half, half}}
	diag := side * math.Sqrt2 / 2
	id := 1
	centres := make([][3]float64, 0, n)
	for i := 0; i < n; i++ {
		c, err := pl.place(2 * diag)
		if err != nil {
			return nil, err
		}
		pl.placed = append(pl.placed, c)
		centres = append(centres, c)
		theta := rng.Float64() * 2 * math.Pi
		sin, cos := math.Sincos(theta)
		t.AddResidue("SQR", id, "A")
		id++
		for k, xy := range corners {
			// left unwrapped so each square stays whole
			pos := [3]float64{
				c[0] + cos*xy[0] - sin*xy[1],
				c[1] + sin*xy[0] + cos*xy[1],
				c[2],
			}
			t.AddAtom(fmt.Sprintf("S%d", k+1), "C", pos)
		}
	}
	// counter-ions keep clear of whole squares
	pl.placed = centres
	pl.minDist = side
	for i := 0; i < 4*n; i++ {
		pos, err := pl.place(diag)
		if err != nil {
			return nil, err
		}
		pl.placed = append(pl.placed, pos)
		t.AddResidue(counter.Residue, id, "B")
		id++
		t.AddAtom(counter.Atom, counter.Element, pos)
	}
	return t, nil
}
