package simulation

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"techrace/internal/config"
	"techrace/internal/innovation"
	"techrace/internal/tardist"
	"techrace/internal/topology"
)

// Independent PCG streams per concern so that, for a fixed seed, changing
// how one stream is consumed does not shift the others.
const (
	streamTopology uint64 = iota + 1
	streamTAR
	streamEngine
	streamShuffle
)

func stream(seed int64, id uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), id))
}

type Model struct {
	Clock    *Clock
	Topology *topology.Graph
}

// Build validates cfg and assembles topology, initial TARs, engine and
// clock.
func Build(cfg config.Config, sink MetricsSink, logger *slog.Logger) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return Model{}, err
	}
	dist, err := tardist.Parse(cfg.Distribution)
	if err != nil {
		return Model{}, err
	}

	topo, err := topology.NewGnp(cfg.NumFirms, cfg.AvgNodeDegree, stream(cfg.Seed, streamTopology))
	if err != nil {
		return Model{}, fmt.Errorf("build topology: %w", err)
	}
	tars, err := tardist.Sample(dist, cfg.NumFirms, rand.NewPCG(uint64(cfg.Seed), streamTAR))
	if err != nil {
		return Model{}, fmt.Errorf("sample initial tar: %w", err)
	}
	pop, err := NewPopulation(tars, cfg.BaselineSuccessProb, topo)
	if err != nil {
		return Model{}, err
	}
	engine, err := innovation.NewEngine(innovation.Params{
		BaselineSuccessProb:   cfg.BaselineSuccessProb,
		InnovationGap:         cfg.InnovationGap,
		NetworkEffect:         cfg.NetworkEffect,
		TarGain:               cfg.TarGain,
		SuccessProbAdjustment: cfg.SuccessProbAdjustment,
	}, stream(cfg.Seed, streamEngine))
	if err != nil {
		return Model{}, err
	}
	clock, err := NewClock(ClockConfig{
		Population:  pop,
		Engine:      engine,
		Shuffle:     stream(cfg.Seed, streamShuffle),
		Sink:        sink,
		RecordFirms: cfg.RecordFirms,
		Logger:      logger,
	})
	if err != nil {
		return Model{}, err
	}
	return Model{Clock: clock, Topology: topo}, nil
}
