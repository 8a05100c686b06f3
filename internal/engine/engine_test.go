package engine

import (
	"errors"
	"math"
	"testing"
)

func newTestSystem() (*System, *HarmonicBondForce, *NonbondedForce, *CustomNonbondedForce) {
	sys := NewSystem()
	sys.SetBox([3]float64{3, 3, 3})
	bonds := NewHarmonicBondForce()
	nb := NewNonbondedForce(1.2)
	nb.AddGlobalParameter("epsilon_r", 78.5)
	custom := NewCustomNonbondedForce("lB*q1*q2/r*exp(-r/lD)", 1.2)
	custom.AddPerParticleParameter("q")
	custom.AddGlobalParameter("lB", 0.7)
	custom.AddGlobalParameter("lD", 1.0)
	for i := 0; i < 2; i++ {
		sys.AddParticle(22.99)
		nb.AddParticle(1, 0.3, 0.5)
		custom.AddParticle([]float64{1})
	}
	sys.AddForce(bonds)
	sys.AddForce(nb)
	sys.AddForce(custom)
	return sys, bonds, nb, custom
}

func TestResolve(t *testing.T) {
	sys, bonds, nb, custom := newTestSystem()

	h, err := Resolve(sys)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if h.Bonds != bonds || h.Nonbonded != nb || h.Custom != custom {
		t.Error("handles not bound to the system forces")
	}
	if len(h.Excluders()) != 2 {
		t.Errorf("expected 2 excluders, got %d", len(h.Excluders()))
	}
}

func TestResolve_Duplicate(t *testing.T) {
	sys, _, _, _ := newTestSystem()
	sys.AddForce(NewHarmonicBondForce())

	_, err := Resolve(sys)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatal("expected *ConfigurationError")
	}
}

func TestHandles_ByKind(t *testing.T) {
	sys := NewSystem()
	sys.AddForce(NewHarmonicBondForce())
	h, err := Resolve(sys)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kind ForceKind
	}{
		{"missing nonbonded", KindNonbonded},
		{"missing custom", KindCustomNonbonded},
		{"bonds have no globals", KindHarmonicBond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.ByKind(tt.kind); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestParseForceKind(t *testing.T) {
	for _, k := range []ForceKind{KindHarmonicBond, KindNonbonded, KindCustomNonbonded} {
		got, err := ParseForceKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseForceKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseForceKind("ewald"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestExclusions(t *testing.T) {
	var e Exclusions
	a := e.AddExclusion(3, 1)
	b := e.AddExclusion(1, 3)

	if a != b {
		t.Errorf("re-adding a pair returned a new index: %d vs %d", a, b)
	}
	if e.NumExclusions() != 1 {
		t.Errorf("expected 1 exclusion, got %d", e.NumExclusions())
	}
	if e.Exclusion(0) != (Pair{I: 1, J: 3}) {
		t.Errorf("pair not ordered: %v", e.Exclusion(0))
	}
	if !e.IsExcluded(3, 1) || e.IsExcluded(1, 2) {
		t.Error("IsExcluded mismatch")
	}
}

func TestGlobalParameters(t *testing.T) {
	var g GlobalParameters
	g.AddGlobalParameter("lD", 1.0)
	g.AddGlobalParameter("lB", 0.7)

	if v, ok := g.GlobalParameter("lB"); !ok || v != 0.7 {
		t.Errorf("lB = %v, %v", v, ok)
	}
	if _, ok := g.GlobalParameter("kappa"); ok {
		t.Error("unexpected parameter kappa")
	}
	g.SetGlobalParameterDefault(0, 2.5)
	if g.GlobalParameterMap()["lD"] != 2.5 {
		t.Error("SetGlobalParameterDefault did not update lD")
	}
}

func TestCustomNonbonded_AddParticleMismatch(t *testing.T) {
	f := NewCustomNonbondedForce("q1*q2/r", 1)
	f.AddPerParticleParameter("q")
	if _, err := f.AddParticle([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestSystem_Validate(t *testing.T) {
	sys, _, nb, _ := newTestSystem()
	if err := sys.Validate(); err != nil {
		t.Fatalf("valid system rejected: %v", err)
	}

	nb.AddParticle(0, 0.3, 0)
	if err := sys.Validate(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}

	if err := NewSystem().Validate(); !errors.Is(err, ErrNoParticles) {
		t.Errorf("expected ErrNoParticles, got %v", err)
	}
}

func TestState_Temperature(t *testing.T) {
	n := 10
	dof := DegreesOfFreedom(n, 0)
	target := 300.0
	s := State{Kinetic: 0.5 * float64(dof) * BoltzmannKJ * target}

	if got := s.Temperature(dof); math.Abs(got-target) > 1e-9 {
		t.Errorf("temperature = %f, want %f", got, target)
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"finite", State{Potential: -10, Positions: [][3]float64{{1, 2, 3}}}, true},
		{"nan energy", State{Potential: math.NaN()}, false},
		{"inf position", State{Positions: [][3]float64{{math.Inf(1), 0, 0}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}
