// Package electro provides closed-form electrostatics for dilute
// electrolytes: Bjerrum and Debye lengths and the screened Coulomb
// (Debye-Hückel) pair potential.
package electro

import (
	"errors"
	"fmt"
	"math"
)

// SI constants. e, k_B and N_A are exact since 2019; eps0 is CODATA 2018.
const (
	ElementaryCharge   = 1.602176634e-19  // C
	VacuumPermittivity = 8.8541878128e-12 // F/m
	Boltzmann          = 1.380649e-23     // J/K
	Avogadro           = 6.02214076e23    // 1/mol

	// CoulombKJ is e^2/(4 pi eps0) in kJ nm/mol, the prefactor engines use.
	CoulombKJ = 138.935457833
	// BoltzmannKJ is k_B in kJ/mol/K.
	BoltzmannKJ = Boltzmann * Avogadro / 1000
)

var (
	ErrInvalidTemperature = errors.New("electro: temperature must be positive")
	ErrInvalidDielectric  = errors.New("electro: dielectric constant must be positive")
	ErrInvalidVolume      = errors.New("electro: volume must be positive")
	ErrNoIons             = errors.New("electro: composition carries no charged species")
)

// ThermalEnergy is k_B T in kJ/mol.
func ThermalEnergy(temperature float64) float64 {
	return BoltzmannKJ * temperature
}

// BjerrumLength returns e^2/(4 pi eps0 epsR k_B T) in nm.
func BjerrumLength(epsR, temperature float64) (float64, error) {
	if temperature <= 0 {
		return 0, fmt.Errorf("%w: %g K", ErrInvalidTemperature, temperature)
	}
	if epsR <= 0 {
		return 0, fmt.Errorf("%w: %g", ErrInvalidDielectric, epsR)
	}
	e2 := ElementaryCharge * ElementaryCharge
	lb := e2 / (4 * math.Pi * VacuumPermittivity * epsR * Boltzmann * temperature)
	return lb * 1e9, nil
}

// Species is one ionic component of a solution.
type Species struct {
	Name    string
	Count   int
	Valence float64
}

// Composition is a set of species in a volume (nm^3).
type Composition struct {
	Species []Species
	Volume  float64
}

// IonPairs is the composition of n monovalent cation/anion pairs.
func IonPairs(n int, volume float64) Composition {
	return Composition{
		Species: []Species{
			{Name: "cation", Count: n, Valence: 1},
			{Name: "anion", Count: n, Valence: -1},
		},
		Volume: volume,
	}
}

// NumParticles is the total particle count.
func (c Composition) NumParticles() int {
	n := 0
	for _, s := range c.Species {
		n += s.Count
	}
	return n
}

// ChargeDensity returns sum_i rho_i z_i^2 in 1/nm^3.
func (c Composition) ChargeDensity() (float64, error) {
	if c.Volume <= 0 {
		return 0, fmt.Errorf("%w: %g nm^3", ErrInvalidVolume, c.Volume)
	}
	sum := 0.0
	for _, s := range c.Species {
		sum += float64(s.Count) * s.Valence * s.Valence
	}
	if sum == 0 {
		return 0, ErrNoIons
	}
	return sum / c.Volume, nil
}

// IonicStrength returns 1/2 sum_i c_i z_i^2 in mol/L.
func (c Composition) IonicStrength() (float64, error) {
	rho, err := c.ChargeDensity()
	if err != nil {
		return 0, err
	}
	// 1 nm^3 = 1e-24 L
	return 0.5 * rho / Avogadro * 1e24, nil
}

// DebyeLength returns 1/kappa in nm with kappa^2 = 4 pi lB sum rho z^2.
func DebyeLength(lB float64, c Composition) (float64, error) {
	rho, err := c.ChargeDensity()
	if err != nil {
		return 0, err
	}
	kappa2 := 4 * math.Pi * lB * rho
	return 1 / math.Sqrt(kappa2), nil
}

// Lengths bundles the Bjerrum and Debye lengths of a composition.
type Lengths struct {
	Bjerrum float64 // nm
	Debye   float64 // nm
}

// Estimate derives both lengths from dielectric, temperature and composition.
func Estimate(epsR, temperature float64, c Composition) (Lengths, error) {
	lb, err := BjerrumLength(epsR, temperature)
	if err != nil {
		return Lengths{}, err
	}
	ld, err := DebyeLength(lb, c)
	if err != nil {
		return Lengths{}, err
	}
	return Lengths{Bjerrum: lb, Debye: ld}, nil
}

// ScreenedCoulomb is the Debye-Hückel pair potential lB z1 z2 / r exp(-r/lD)
// in units of k_B T.
func ScreenedCoulomb(r, z1, z2, lB, lD float64) float64 {
	return lB * z1 * z2 / r * math.Exp(-r/lD)
}
