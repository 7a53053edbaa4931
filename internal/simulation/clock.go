// Package simulation owns the firm population and drives it one step at a
// time: classify, check the stop condition, run the innovation engine over
// every active firm in a fresh random order, then publish metrics.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"techrace/internal/innovation"
	"techrace/internal/logging"
	"techrace/internal/market"
	"techrace/internal/model"
)

type ClockState int

const (
	Running ClockState = iota
	Stopped
)

func (s ClockState) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// StopFraction is the share of the initial population at or below which the
// run ends.
const StopFraction = 5

type ClockConfig struct {
	Population  *Population
	Engine      *innovation.Engine
	Shuffle     *rand.Rand
	Sink        MetricsSink
	RecordFirms bool
	Logger      *slog.Logger
}

// Clock is not safe for concurrent use.
type Clock struct {
	pop         *Population
	engine      *innovation.Engine
	shuffle     *rand.Rand
	sink        MetricsSink
	recordFirms bool
	logger      *slog.Logger

	step  int
	state ClockState
	order []int
}

func NewClock(cfg ClockConfig) (*Clock, error) {
	if cfg.Population == nil {
		return nil, fmt.Errorf("population is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("innovation engine is required")
	}
	if cfg.Shuffle == nil {
		return nil, fmt.Errorf("shuffle source is required")
	}

	state := Running
	if cfg.Population.Len() == 0 {
		state = Stopped
	}
	return &Clock{
		pop:         cfg.Population,
		engine:      cfg.Engine,
		shuffle:     cfg.Shuffle,
		sink:        cfg.Sink,
		recordFirms: cfg.RecordFirms,
		logger:      logging.OrDefault(cfg.Logger),
		state:       state,
		order:       make([]int, cfg.Population.Len()),
	}, nil
}

func (c *Clock) State() ClockState {
	return c.state
}

func (c *Clock) StepCount() int {
	return c.step
}

func (c *Clock) Population() *Population {
	return c.pop
}

// Step advances the model by one step. It reports false once the clock has
// stopped, either on this call or earlier; no engine pass and no metrics
// happen in that case. The only error source is the metrics sink.
func (c *Clock) Step(ctx context.Context) (model.StepMetrics, bool, error) {
	if c.state == Stopped {
		return model.StepMetrics{}, false, nil
	}

	c.step++
	c.classify()

	active := market.CountActive(c.pop.firms)
	if float64(active) <= float64(c.pop.Len())/StopFraction {
		c.state = Stopped
		c.logger.InfoContext(ctx, "simulation stopped", "step", c.step, "active", active, "firms", c.pop.Len())
		return model.StepMetrics{}, false, nil
	}

	for _, idx := range c.activationOrder() {
		firm := &c.pop.firms[idx]
		if !firm.Active {
			continue
		}
		median := market.MedianTAR(c.pop.firms)
		out := c.engine.Step(firm, median, c.pop.neighborTARs(firm.ID))
		c.logger.Log(ctx, logging.LevelTrace, "firm update",
			"step", c.step,
			"firm", firm.ID,
			"median_tar", median,
			"decided", out.Decided,
			"succeeded", out.Succeeded,
			"influence", out.Influence,
			"tar", firm.TAR,
			"success_prob", firm.SuccessProb,
			"deactivated", out.Deactivated,
		)
	}

	metrics := c.collect()
	if c.sink != nil {
		if err := c.sink.Publish(ctx, metrics); err != nil {
			return metrics, true, fmt.Errorf("publish step %d metrics: %w", c.step, err)
		}
	}
	return metrics, true, nil
}

// classify buckets active firms against thresholds from the current active
// population. Inactive firms keep their last interval.
func (c *Clock) classify() {
	thresholds := market.QuartileThresholds(c.pop.firms)
	for i := range c.pop.firms {
		if c.pop.firms[i].Active {
			c.pop.firms[i].Interval = market.IntervalOf(c.pop.firms[i].TAR, thresholds)
		}
	}
}

// activationOrder is reshuffled on every call.
func (c *Clock) activationOrder() []int {
	for i := range c.order {
		c.order[i] = i
	}
	c.shuffle.Shuffle(len(c.order), func(i, j int) {
		c.order[i], c.order[j] = c.order[j], c.order[i]
	})
	return c.order
}

func (c *Clock) collect() model.StepMetrics {
	snap := market.TakeSnapshot(c.pop.firms)
	metrics := model.StepMetrics{
		Step:           c.step,
		Innovating:     snap.Innovating,
		Skewness:       snap.Skewness,
		IntervalCounts: snap.IntervalCounts,
		Active:         snap.Active,
		MedianTAR:      snap.MedianTAR,
		MaxTAR:         snap.MaxTAR,
		Leaders:        snap.Leaders,
		Followers:      snap.Followers,
	}
	if c.recordFirms {
		metrics.Firms = make([]model.FirmSnapshot, 0, len(c.pop.firms))
		for _, firm := range c.pop.firms {
			metrics.Firms = append(metrics.Firms, model.SnapshotOf(firm))
		}
	}
	return metrics
}

type RunResult struct {
	Steps      int
	StopReason model.StopReason
	Active     int
}

// Run steps until the clock stops, maxSteps completed steps have been
// published (0 means no cap), or ctx is cancelled. Cancellation is only
// observed between steps.
func (c *Clock) Run(ctx context.Context, maxSteps int) (RunResult, error) {
	completed := 0
	for {
		if err := ctx.Err(); err != nil {
			return c.result(model.StopReasonCanceled), err
		}
		if maxSteps > 0 && completed >= maxSteps {
			c.logger.InfoContext(ctx, "step limit reached", "steps", c.step, "limit", maxSteps)
			return c.result(model.StopReasonStepLimit), nil
		}
		_, advanced, err := c.Step(ctx)
		if err != nil {
			return c.result(""), err
		}
		if !advanced {
			return c.result(model.StopReasonStopped), nil
		}
		completed++
	}
}

func (c *Clock) result(reason model.StopReason) RunResult {
	return RunResult{
		Steps:      c.step,
		StopReason: reason,
		Active:     market.CountActive(c.pop.firms),
	}
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
