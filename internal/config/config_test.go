package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/ionsim/internal/engine"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Backend != "reference" {
		t.Errorf("expected backend reference, got %s", cfg.Backend)
	}
	if cfg.TotalSteps() != DefaultEquilibration+DefaultProduction {
		t.Errorf("total steps = %d", cfg.TotalSteps())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"zero timestep", func(c *Config) { c.Timestep = 0 }, "timestep"},
		{"negative temperature", func(c *Config) { c.Temperature = -1 }, "temperature"},
		{"zero cutoff", func(c *Config) { c.Cutoff = 0 }, "cutoff"},
		{"no structure", func(c *Config) { c.Structure = "" }, "structure"},
		{"zero interval", func(c *Config) { c.ReportInterval = 0 }, "report_interval"},
		{"rigid without stiffness", func(c *Config) { c.Rigid.Enabled = true; c.Rigid.Stiffness = 0 }, "rigid.stiffness"},
		{"unknown force kind", func(c *Config) {
			c.Overrides = []OverrideConfig{{Force: "ewald", Name: "alpha", Value: 1}}
		}, "overrides[0]"},
		{"unknown builtin", func(c *Config) { c.ForceField = "builtin:amber" }, "amber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParamOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Overrides = []OverrideConfig{
		{Force: "custom_nonbonded", Name: "lD", Value: 0.5},
		{Force: "nonbonded", Name: "epsilon_r", Value: 40},
	}
	got, err := cfg.ParamOverrides()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Force != engine.KindCustomNonbonded || got[1].Value != 40 {
		t.Errorf("overrides = %+v", got)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "name: test\nstructure: in/structure.pdb\nforcefield: ff.yaml\ntemperature: 250\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Structure != filepath.Join(dir, "in", "structure.pdb") {
		t.Errorf("structure = %s", cfg.Structure)
	}
	if cfg.ForceField != filepath.Join(dir, "ff.yaml") {
		t.Errorf("forcefield = %s", cfg.ForceField)
	}
	if cfg.Temperature != 250 {
		t.Errorf("temperature = %g", cfg.Temperature)
	}
	if cfg.Timestep != DefaultTimestep {
		t.Errorf("unset timestep should keep default, got %g", cfg.Timestep)
	}
}

func TestLoadKeepsBuiltinForceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("forcefield: builtin:debye-huckel\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	ff, err := cfg.LoadForceField()
	if err != nil {
		t.Fatal(err)
	}
	if ff.Name != "debye-huckel" {
		t.Errorf("force field = %s", ff.Name)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := GetPreset("rigid-square").Config()
	cfg.Structure = "/abs/structure.pdb"
	cfg.ForceField = "/abs/forcefield.yaml"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Rigid.Enabled || len(got.Overrides) != 2 || got.Analysis.A != "SQR:S1" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset("ions")
	if p == nil {
		t.Fatal("expected preset, got nil")
	}
	top, err := p.Structure(7)
	if err != nil {
		t.Fatal(err)
	}
	if top.NumAtoms() != 100 {
		t.Errorf("ions preset has %d atoms, want 100", top.NumAtoms())
	}
	if err := p.Config().Validate(); err != nil {
		t.Errorf("preset config invalid: %v", err)
	}
	if err := p.ForceField().Validate(); err != nil {
		t.Errorf("preset force field invalid: %v", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	got := ListPresets()
	if len(got) != 2 || got[0] != "ions" || got[1] != "rigid-square" {
		t.Errorf("presets = %v", got)
	}
}
