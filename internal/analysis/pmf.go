package analysis

import (
	"math"

	"github.com/san-kum/ionsim/internal/electro"
)

// PMF converts g(r) to w(r) = -ln g(r) in kT. Empty bins give +Inf.
func PMF(g []float64) []float64 {
	w := make([]float64, len(g))
	for i, v := range g {
		if v <= 0 {
			w[i] = math.Inf(1)
			continue
		}
		w[i] = -math.Log(v)
	}
	return w
}

// PMFKJ is PMF scaled to kJ/mol at the given temperature.
func PMFKJ(g []float64, temperature float64) []float64 {
	kT := electro.ThermalEnergy(temperature)
	w := PMF(g)
	for i := range w {
		w[i] *= kT
	}
	return w
}

// Point is one bin of a PMF comparison.
type Point struct {
	R        float64
	G        float64
	PMF      float64
	Screened float64
}

// Comparison lines the measured PMF up with the Debye-Hückel pair
// potential lB z1 z2 exp(-r/lD)/r.
type Comparison struct {
	Points []Point
	// RMS deviation in kT over finite bins with r >= RMin.
	RMS  float64
	RMin float64
	Used int
}

func Compare(rdf *RDF, z1, z2, lB, lD, rmin float64) *Comparison {
	w := PMF(rdf.G)
	c := &Comparison{Points: make([]Point, len(w)), RMin: rmin}
	var sum float64
	for k, r := range rdf.R {
		ref := electro.ScreenedCoulomb(r, z1, z2, lB, lD)
		c.Points[k] = Point{R: r, G: rdf.G[k], PMF: w[k], Screened: ref}
		if r < rmin || math.IsInf(w[k], 0) {
			continue
		}
		d := w[k] - ref
		sum += d * d
		c.Used++
	}
	if c.Used > 0 {
		c.RMS = math.Sqrt(sum / float64(c.Used))
	} else {
		c.RMS = math.NaN()
	}
	return c
}
