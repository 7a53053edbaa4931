package main

import (
	"github.com/spf13/cobra"

	"techrace/pkg/techrace"
)

// addConfigFlags registers one flag per simulation option. Defaults shown in
// help come from techrace.DefaultConfig; a value only overrides the config
// file when the flag is set explicitly.
func addConfigFlags(cmd *cobra.Command) {
	def := techrace.DefaultConfig()
	f := cmd.Flags()
	f.String("config", "", "YAML config file; flags override its values")
	f.Int("num-firms", def.NumFirms, "number of firms")
	f.Float64("avg-node-degree", def.AvgNodeDegree, "expected network degree per firm")
	f.Float64("baseline-success-prob", def.BaselineSuccessProb, "baseline innovation success probability")
	f.Float64("innovation-gap", def.InnovationGap, "distance from the median TAR within which firms innovate")
	f.Float64("network-effect", def.NetworkEffect, "weight of neighbour influence on success probability")
	f.String("distribution", def.Distribution, "initial TAR distribution: normal|left_skewed|right_skewed")
	f.Float64("tar-gain", def.TarGain, "TAR added by a successful innovation")
	f.Float64("success-prob-adjustment", def.SuccessProbAdjustment, "fractional success probability change after an attempt")
	f.Int64("seed", def.Seed, "random seed")
	f.Int("max-steps", def.MaxSteps, "step cap, 0 for none")
	f.Bool("record-firms", def.RecordFirms, "record per-firm snapshots every step")
}

func configFromFlags(cmd *cobra.Command) (techrace.Config, error) {
	f := cmd.Flags()
	cfg := techrace.DefaultConfig()
	if path, _ := f.GetString("config"); path != "" {
		loaded, err := techrace.LoadConfig(path)
		if err != nil {
			return techrace.Config{}, err
		}
		cfg = loaded
	}

	if f.Changed("num-firms") {
		cfg.NumFirms, _ = f.GetInt("num-firms")
	}
	if f.Changed("avg-node-degree") {
		cfg.AvgNodeDegree, _ = f.GetFloat64("avg-node-degree")
	}
	if f.Changed("baseline-success-prob") {
		cfg.BaselineSuccessProb, _ = f.GetFloat64("baseline-success-prob")
	}
	if f.Changed("innovation-gap") {
		cfg.InnovationGap, _ = f.GetFloat64("innovation-gap")
	}
	if f.Changed("network-effect") {
		cfg.NetworkEffect, _ = f.GetFloat64("network-effect")
	}
	if f.Changed("distribution") {
		cfg.Distribution, _ = f.GetString("distribution")
	}
	if f.Changed("tar-gain") {
		cfg.TarGain, _ = f.GetFloat64("tar-gain")
	}
	if f.Changed("success-prob-adjustment") {
		cfg.SuccessProbAdjustment, _ = f.GetFloat64("success-prob-adjustment")
	}
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("max-steps") {
		cfg.MaxSteps, _ = f.GetInt("max-steps")
	}
	if f.Changed("record-firms") {
		cfg.RecordFirms, _ = f.GetBool("record-firms")
	}
	return cfg, cfg.Validate()
}
