// Package analysis post-processes trajectories of charged particles.
//
//   - [Selection]: atoms picked by residue and atom name
//   - [ComputeRDF]: radial distribution function under periodic boundaries
//   - [PMF]: potential of mean force w(r) = -ln g(r) in kT
//   - [Compare]: PMF against the screened Coulomb (Debye-Hückel) curve
//
// # Normalisation
//
// For selections A and B the histogram of minimum-image distances is
// divided by frames * pairs * shell volume / box volume, where pairs is
// NA*NB for distinct selections and NA(NA-1)/2 when A and B are the same.
// Far from any correlation g(r) then tends to 1.
//
//	rdf, err := analysis.ComputeRDF(frames, box, a, b, analysis.Options{RMax: 2, BinWidth: 0.02})
//	cmp := analysis.Compare(rdf, 1, -1, lB, lD, 0.4)
package analysis
