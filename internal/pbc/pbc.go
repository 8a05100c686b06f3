// Package pbc holds geometry helpers for rectangular periodic boxes.
package pbc

import "math"

// MinimumImage maps a displacement to its nearest periodic image. Axes with a
// non-positive box length are treated as non-periodic.
func MinimumImage(d, box [3]float64) [3]float64 {
	for k := 0; k < 3; k++ {
		if box[k] <= 0 {
			continue
		}
		d[k] -= box[k] * math.Round(d[k]/box[k])
	}
	return d
}

// Delta returns the minimum-image vector from a to b.
func Delta(a, b, box [3]float64) [3]float64 {
	return MinimumImage([3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}, box)
}

// Distance is the minimum-image distance between a and b.
func Distance(a, b, box [3]float64) float64 {
	d := Delta(a, b, box)
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// Euclidean is the plain distance between a and b.
func Euclidean(a, b [3]float64) float64 {
	dx, dy, dz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Wrap folds p into [0, L) on every periodic axis.
func Wrap(p, box [3]float64) [3]float64 {
	for k := 0; k < 3; k++ {
		if box[k] <= 0 {
			continue
		}
		p[k] = math.Mod(p[k], box[k])
		if p[k] < 0 {
			p[k] += box[k]
		}
	}
	return p
}

// CenterOfMass is the periodic centre of a set of points: per axis, each
// coordinate becomes an angle 2*pi*x/L, the sines and cosines are averaged and
// atan2 of the means is mapped back into [0, L).
//
// Points spread uniformly around an axis give near-zero means and an
// ill-defined direction; no special handling is done for that case.
// Non-periodic axes use the arithmetic mean.
func CenterOfMass(positions [][3]float64, box [3]float64) [3]float64 {
	var com [3]float64
	n := len(positions)
	if n == 0 {
		return com
	}
	for k := 0; k < 3; k++ {
		if box[k] <= 0 {
			sum := 0.0
			for _, p := range positions {
				sum += p[k]
			}
			com[k] = sum / float64(n)
			continue
		}
		var s, c float64
		for _, p := range positions {
			theta := 2 * math.Pi * p[k] / box[k]
			s += math.Sin(theta)
			c += math.Cos(theta)
		}
		s /= float64(n)
		c /= float64(n)
		theta := math.Atan2(s, c)
		if theta < 0 {
			theta += 2 * math.Pi
		}
		com[k] = box[k] * theta / (2 * math.Pi)
		if com[k] >= box[k] {
			com[k] -= box[k]
		}
	}
	return com
}
