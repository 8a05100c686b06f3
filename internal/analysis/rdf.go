package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ionsim/internal/pbc"
)

var (
	ErrEmptySelection = errors.New("analysis: selection matches no atoms")
	ErrNoPairs        = errors.New("analysis: selections form no pairs")
	ErrNoFrames       = errors.New("analysis: no frames left after skipping")
)

// Options set the histogram range in nm and how many leading frames to
// discard.
type Options struct {
	RMax     float64
	BinWidth float64
	Skip     int
}

func (o Options) validate(box [3]float64) error {
	if o.RMax <= 0 || o.BinWidth <= 0 {
		return fmt.Errorf("analysis: rmax and bin width must be positive, got %g and %g", o.RMax, o.BinWidth)
	}
	if o.BinWidth > o.RMax {
		return fmt.Errorf("analysis: bin width %g exceeds rmax %g", o.BinWidth, o.RMax)
	}
	half := math.Min(box[0], math.Min(box[1], box[2])) / 2
	if o.RMax > half {
		return fmt.Errorf("analysis: rmax %g nm beyond half the box (%g nm)", o.RMax, half)
	}
	return nil
}

// RDF is a radial distribution function on uniform bins.
type RDF struct {
	Edges  []float64 // nm, len(G)+1
	R      []float64 // nm, bin centres
	G      []float64
	Counts []float64 // raw pair counts over all frames
	Frames int
	Pairs  int // pairs per frame
	Volume float64
}

// ComputeRDF histograms minimum-image distances between a and b over every
// frame after opts.Skip.
func ComputeRDF(src FrameSource, box [3]float64, a, b []int, opts Options) (*RDF, error) {
	if err := opts.validate(box); err != nil {
		return nil, err
	}
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptySelection
	}
	pairs := pairList(a, b)
	if len(pairs) == 0 {
		return nil, ErrNoPairs
	}

	nbins := int(math.Round(opts.RMax / opts.BinWidth))
	edges := floats.Span(make([]float64, nbins+1), 0, opts.RMax)
	rdf := &RDF{
		Edges:  edges,
		R:      make([]float64, nbins),
		G:      make([]float64, nbins),
		Counts: make([]float64, nbins),
		Pairs:  len(pairs),
		Volume: box[0] * box[1] * box[2],
	}
	for k := range rdf.R {
		rdf.R[k] = 0.5 * (edges[k] + edges[k+1])
	}

	pos := make([][3]float64, src.NumAtoms())
	dist := make([]float64, 0, len(pairs))
	frame := make([]float64, nbins)
	for n := 0; ; n++ {
		err := src.Next(pos)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", n, err)
		}
		if n < opts.Skip {
			continue
		}
		dist = dist[:0]
		for _, p := range pairs {
			if d := pbc.Distance(pos[p[0]], pos[p[1]], box); d < opts.RMax {
				dist = append(dist, d)
			}
		}
		sort.Float64s(dist)
		stat.Histogram(frame, edges, dist, nil)
		floats.Add(rdf.Counts, frame)
		rdf.Frames++
	}
	if rdf.Frames == 0 {
		return nil, ErrNoFrames
	}

	density := float64(rdf.Pairs) / rdf.Volume
	for k := range rdf.G {
		shell := 4.0 / 3.0 * math.Pi * (math.Pow(edges[k+1], 3) - math.Pow(edges[k], 3))
		rdf.G[k] = rdf.Counts[k] / (float64(rdf.Frames) * density * shell)
	}
	return rdf, nil
}

// pairList enumerates unordered pairs between a and b without self pairs
// or repeats; identical selections yield NA(NA-1)/2 pairs.
func pairList(a, b []int) [][2]int {
	seen := make(map[[2]int]bool)
	var out [][2]int
	for _, i := range a {
		for _, j := range b {
			if i == j {
				continue
			}
			key := [2]int{min(i, j), max(i, j)}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// Coordination is the running number of B neighbours around an A atom,
// n(r) = 4 pi rhoB sum g r^2 dr, at each upper bin edge.
func (r *RDF) Coordination(nb int) []float64 {
	rho := float64(nb) / r.Volume
	out := make([]float64, len(r.G))
	for k := range r.G {
		shell := 4.0 / 3.0 * math.Pi * (math.Pow(r.Edges[k+1], 3) - math.Pow(r.Edges[k], 3))
		out[k] = rho * r.G[k] * shell
	}
	floats.CumSum(out, out)
	return out
}
