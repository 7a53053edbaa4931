package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"techrace/internal/tardist"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.NumFirms != 10 || cfg.InnovationGap != 20 || cfg.Distribution != string(tardist.Normal) {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "techrace.yaml")
	data := []byte("num_firms: 50\ndistribution: right_skewed\nrecord_firms: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NumFirms != 50 || cfg.Distribution != "right_skewed" || !cfg.RecordFirms {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.AvgNodeDegree != 3 || cfg.TarGain != 1 || cfg.Seed != 1 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := Default()
	cfg.Seed = 77
	cfg.NetworkEffect = 1.25
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("round trip mismatch: got %+v want %+v", loaded, cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("num_firms: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"num firms":    func(c *Config) { c.NumFirms = 0 },
		"degree":       func(c *Config) { c.AvgNodeDegree = -1 },
		"degree nan":   func(c *Config) { c.AvgNodeDegree = math.NaN() },
		"gap":          func(c *Config) { c.InnovationGap = -0.5 },
		"tar gain":     func(c *Config) { c.TarGain = 0 },
		"distribution": func(c *Config) { c.Distribution = "bimodal" },
		"max steps":    func(c *Config) { c.MaxSteps = -1 },
		"baseline inf": func(c *Config) { c.BaselineSuccessProb = math.Inf(1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDistributionErrorKeepsCause(t *testing.T) {
	cfg := Default()
	cfg.Distribution = "bimodal"
	if err := cfg.Validate(); !errors.Is(err, tardist.ErrUnknownDistribution) {
		t.Fatalf("expected wrapped unknown distribution, got %v", err)
	}
}

func TestZeroGapIsAllowed(t *testing.T) {
	cfg := Default()
	cfg.InnovationGap = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero gap should validate: %v", err)
	}
}

func TestParametersRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = 12
	cfg.RecordFirms = true
	if got := FromParameters(cfg.Parameters()); got != cfg {
		t.Fatalf("got %+v want %+v", got, cfg)
	}
}
