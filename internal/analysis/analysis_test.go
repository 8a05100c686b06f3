package analysis

import (
	"errors"
	"io"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/san-kum/ionsim/internal/electro"
	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/reporters"
	"github.com/san-kum/ionsim/internal/topology"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in   string
		want Selection
		err  bool
	}{
		{"NA", Selection{Atom: "NA"}, false},
		{"SQR:S1", Selection{Residue: "SQR", Atom: "S1"}, false},
		{"SQR:", Selection{Residue: "SQR"}, false},
		{"", Selection{}, true},
		{":S1", Selection{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSelection(tt.in)
		if (err != nil) != tt.err {
			t.Fatalf("ParseSelection(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSelection(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSelectionIndices(t *testing.T) {
	top := topology.New()
	top.AddResidue("NA", 1, "A")
	top.AddAtom("NA", "Na", [3]float64{})
	top.AddResidue("CL", 2, "A")
	top.AddAtom("CL", "Cl", [3]float64{})
	top.AddResidue("NA", 3, "A")
	top.AddAtom("NA", "Na", [3]float64{})

	got := Selection{Atom: "NA"}.Indices(top)
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("NA indices = %v", got)
	}
	got = Selection{Residue: "CL"}.Indices(top)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("CL: indices = %v", got)
	}
}

func TestPairList(t *testing.T) {
	if n := len(pairList([]int{0, 1, 2, 3}, []int{0, 1, 2, 3})); n != 6 {
		t.Errorf("identical selections: %d pairs, want 6", n)
	}
	if n := len(pairList([]int{0, 1}, []int{2, 3, 4})); n != 6 {
		t.Errorf("distinct selections: %d pairs, want 6", n)
	}
	if n := len(pairList([]int{0, 1}, []int{1, 2})); n != 3 {
		t.Errorf("overlapping selections: %d pairs, want 3", n)
	}
}

func uniformFrames(n, frames int, box [3]float64, seed int64) *SliceFrames {
	rng := rand.New(rand.NewSource(seed))
	src := &SliceFrames{}
	for f := 0; f < frames; f++ {
		pos := make([][3]float64, n)
		for i := range pos {
			for k := 0; k < 3; k++ {
				pos[i][k] = rng.Float64() * box[k]
			}
		}
		src.Frames = append(src.Frames, pos)
	}
	return src
}

func TestRDFIdealGasTendsToOne(t *testing.T) {
	box := [3]float64{4, 4, 4}
	n := 200
	src := uniformFrames(n, 40, box, 3)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	rdf, err := ComputeRDF(src, box, all, all, Options{RMax: 1.8, BinWidth: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if rdf.Frames != 40 || rdf.Pairs != n*(n-1)/2 {
		t.Fatalf("frames=%d pairs=%d", rdf.Frames, rdf.Pairs)
	}
	// Inner bins are noisy; check the outer half.
	for k := len(rdf.G) / 2; k < len(rdf.G); k++ {
		if math.Abs(rdf.G[k]-1) > 0.1 {
			t.Errorf("g(%.2f) = %.3f, want ~1", rdf.R[k], rdf.G[k])
		}
	}
	coord := rdf.Coordination(n - 1)
	want := float64(n-1) / rdf.Volume * 4.0 / 3.0 * math.Pi * math.Pow(1.8, 3)
	if math.Abs(coord[len(coord)-1]-want)/want > 0.05 {
		t.Errorf("coordination at rmax = %.2f, want ~%.2f", coord[len(coord)-1], want)
	}
}

func TestRDFSinglePairMinimumImage(t *testing.T) {
	box := [3]float64{3, 3, 3}
	src := &SliceFrames{Frames: [][][3]float64{
		{{0.1, 0, 0}, {2.8, 0, 0}},
		{{0.1, 0, 0}, {2.8, 0, 0}},
	}}
	rdf, err := ComputeRDF(src, box, []int{0}, []int{1}, Options{RMax: 1.5, BinWidth: 0.1, Skip: 1})
	if err != nil {
		t.Fatal(err)
	}
	if rdf.Frames != 1 {
		t.Fatalf("frames = %d, want 1 after skip", rdf.Frames)
	}
	// distance 0.3 nm across the boundary falls in bin [0.3, 0.4)
	for k, c := range rdf.Counts {
		want := 0.0
		if k == 3 {
			want = 1
		}
		if c != want {
			t.Errorf("count[%d] = %g, want %g", k, c, want)
		}
	}
	shell := 4.0 / 3.0 * math.Pi * (math.Pow(0.4, 3) - math.Pow(0.3, 3))
	if want := 27 / shell; math.Abs(rdf.G[3]-want) > 1e-9 {
		t.Errorf("g = %g, want %g", rdf.G[3], want)
	}
}

func TestRDFErrors(t *testing.T) {
	box := [3]float64{2, 2, 2}
	src := &SliceFrames{Frames: [][][3]float64{{{0, 0, 0}, {1, 0, 0}}}}
	if _, err := ComputeRDF(src, box, []int{0}, []int{1}, Options{RMax: 1.5, BinWidth: 0.1}); err == nil {
		t.Error("rmax beyond half box accepted")
	}
	if _, err := ComputeRDF(src, box, nil, []int{1}, Options{RMax: 1, BinWidth: 0.1}); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty selection: %v", err)
	}
	if _, err := ComputeRDF(src, box, []int{0}, []int{0}, Options{RMax: 1, BinWidth: 0.1}); !errors.Is(err, ErrNoPairs) {
		t.Errorf("self pair: %v", err)
	}
	if _, err := ComputeRDF(src, box, []int{0}, []int{1}, Options{RMax: 1, BinWidth: 0.1, Skip: 5}); !errors.Is(err, ErrNoFrames) {
		t.Errorf("skip all: %v", err)
	}
}

func TestPMF(t *testing.T) {
	w := PMF([]float64{0, 1, math.E})
	if !math.IsInf(w[0], 1) || w[1] != 0 || math.Abs(w[2]+1) > 1e-12 {
		t.Errorf("PMF = %v", w)
	}
	kj := PMFKJ([]float64{math.E}, 300)
	if math.Abs(kj[0]+0.008314462618*300) > 1e-6 {
		t.Errorf("PMFKJ = %v", kj)
	}
}

func TestCompareExactScreenedCoulomb(t *testing.T) {
	lB, lD := 0.7, 1.0
	rdf := &RDF{R: []float64{0.05, 0.5, 1.0, 1.5}}
	for _, r := range rdf.R {
		rdf.G = append(rdf.G, math.Exp(-electro.ScreenedCoulomb(r, 1, -1, lB, lD)))
	}
	rdf.G[0] = 0
	c := Compare(rdf, 1, -1, lB, lD, 0.3)
	if c.Used != 3 {
		t.Fatalf("used %d bins, want 3", c.Used)
	}
	if c.RMS > 1e-12 {
		t.Errorf("RMS = %g, want 0", c.RMS)
	}
	if !math.IsInf(c.Points[0].PMF, 1) {
		t.Errorf("empty bin PMF = %g", c.Points[0].PMF)
	}
}

func TestDCDFramesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traj.dcd")
	w, err := reporters.NewDCD(path, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	frames := [][][3]float64{
		{{0.1, 0.2, 0.3}, {1.5, 1.0, 0.5}},
		{{0.2, 0.2, 0.3}, {1.4, 1.0, 0.5}},
	}
	for i, f := range frames {
		if err := w.Report(engine.State{Step: i, Positions: f}); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	src, err := DCDFrames(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	pos := make([][3]float64, 2)
	for i, f := range frames {
		if err := src.Next(pos); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		for a := range f {
			for k := 0; k < 3; k++ {
				if math.Abs(pos[a][k]-f[a][k]) > 1e-5 {
					t.Errorf("frame %d atom %d: %v, want %v", i, a, pos[a], f[a])
				}
			}
		}
	}
	if err := src.Next(pos); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame: %v", err)
	}
	if _, err := DCDFrames(path, 3); err == nil {
		t.Error("atom count mismatch accepted")
	}
}
