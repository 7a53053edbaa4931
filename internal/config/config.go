// Package config holds the simulation's recognized options. Values come from
// Default, optionally overlaid by a YAML file; callers apply flag overrides on
// top and call Validate before building a model.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"techrace/internal/model"
	"techrace/internal/tardist"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors the model's configuration surface.
type Config struct {
	// NumFirms is the population size and the topology's node count.
	NumFirms int `json:"num_firms" yaml:"num_firms"`

	// AvgNodeDegree sets the G(n,p) edge probability p = AvgNodeDegree / NumFirms.
	AvgNodeDegree float64 `json:"avg_node_degree" yaml:"avg_node_degree"`

	BaselineSuccessProb float64 `json:"baseline_success_prob" yaml:"baseline_success_prob"`

	// InnovationGap is the distance from the market median within which a
	// firm attempts to innovate.
	InnovationGap float64 `json:"innovation_gap" yaml:"innovation_gap"`

	NetworkEffect float64 `json:"network_effect" yaml:"network_effect"`

	// Distribution is one of normal, left_skewed, right_skewed.
	Distribution string `json:"distribution" yaml:"distribution"`

	TarGain float64 `json:"tar_gain" yaml:"tar_gain"`

	// SuccessProbAdjustment is the fractional step applied to a firm's
	// success probability after each attempt.
	SuccessProbAdjustment float64 `json:"success_prob_adjustment" yaml:"success_prob_adjustment"`

	Seed int64 `json:"seed" yaml:"seed"`

	// MaxSteps caps a run that never reaches the stop condition. 0 disables the cap.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// RecordFirms adds per-firm snapshots to every published step.
	RecordFirms bool `json:"record_firms" yaml:"record_firms"`
}

func Default() Config {
	return Config{
		NumFirms:              10,
		AvgNodeDegree:         3,
		BaselineSuccessProb:   0.05,
		InnovationGap:         20,
		NetworkEffect:         0.5,
		Distribution:          string(tardist.Normal),
		TarGain:               1,
		SuccessProbAdjustment: 0.005,
		Seed:                  1,
		MaxSteps:              1000,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	if c.NumFirms < 1 {
		return fmt.Errorf("%w: num_firms must be >= 1, got %d", ErrInvalidConfig, c.NumFirms)
	}
	if !finite(c.AvgNodeDegree) || c.AvgNodeDegree < 0 {
		return fmt.Errorf("%w: avg_node_degree must be a finite value >= 0, got %v", ErrInvalidConfig, c.AvgNodeDegree)
	}
	if !finite(c.BaselineSuccessProb) {
		return fmt.Errorf("%w: baseline_success_prob must be finite", ErrInvalidConfig)
	}
	if !finite(c.InnovationGap) || c.InnovationGap < 0 {
		return fmt.Errorf("%w: innovation_gap must be a finite value >= 0, got %v", ErrInvalidConfig, c.InnovationGap)
	}
	if !finite(c.NetworkEffect) {
		return fmt.Errorf("%w: network_effect must be finite", ErrInvalidConfig)
	}
	if _, err := tardist.Parse(c.Distribution); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !finite(c.TarGain) || c.TarGain <= 0 {
		return fmt.Errorf("%w: tar_gain must be > 0, got %v", ErrInvalidConfig, c.TarGain)
	}
	if !finite(c.SuccessProbAdjustment) {
		return fmt.Errorf("%w: success_prob_adjustment must be finite", ErrInvalidConfig)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be >= 0, got %d", ErrInvalidConfig, c.MaxSteps)
	}
	return nil
}

func (c Config) Parameters() model.RunParameters {
	return model.RunParameters{
		NumFirms:              c.NumFirms,
		AvgNodeDegree:         c.AvgNodeDegree,
		BaselineSuccessProb:   c.BaselineSuccessProb,
		InnovationGap:         c.InnovationGap,
		NetworkEffect:         c.NetworkEffect,
		Distribution:          c.Distribution,
		TarGain:               c.TarGain,
		SuccessProbAdjustment: c.SuccessProbAdjustment,
		Seed:                  c.Seed,
		MaxSteps:              c.MaxSteps,
		RecordFirms:           c.RecordFirms,
	}
}

func FromParameters(p model.RunParameters) Config {
	return Config{
		NumFirms:              p.NumFirms,
		AvgNodeDegree:         p.AvgNodeDegree,
		BaselineSuccessProb:   p.BaselineSuccessProb,
		InnovationGap:         p.InnovationGap,
		NetworkEffect:         p.NetworkEffect,
		Distribution:          p.Distribution,
		TarGain:               p.TarGain,
		SuccessProbAdjustment: p.SuccessProbAdjustment,
		Seed:                  p.Seed,
		MaxSteps:              p.MaxSteps,
		RecordFirms:           p.RecordFirms,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
