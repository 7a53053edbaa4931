package simulation

import (
	"context"
	"log/slog"
	"sync"

	"techrace/internal/logging"
	"techrace/internal/model"
)

// MetricsSink receives the metrics of every completed step.
type MetricsSink interface {
	Publish(ctx context.Context, metrics model.StepMetrics) error
}

type SinkFunc func(ctx context.Context, metrics model.StepMetrics) error

func (f SinkFunc) Publish(ctx context.Context, metrics model.StepMetrics) error {
	return f(ctx, metrics)
}

// Recorder keeps every published step in memory.
type Recorder struct {
	mu      sync.Mutex
	metrics []model.StepMetrics
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, metrics model.StepMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.Firms = append([]model.FirmSnapshot(nil), metrics.Firms...)
	r.metrics = append(r.metrics, metrics)
	return nil
}

func (r *Recorder) Metrics() []model.StepMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]model.StepMetrics(nil), r.metrics...)
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.metrics)
}

// LogSink emits one debug line per step.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, m model.StepMetrics) error {
	logging.OrDefault(s.Logger).DebugContext(ctx, "step",
		"step", m.Step,
		"active", m.Active,
		"innovating", m.Innovating,
		"median_tar", m.MedianTAR,
		"max_tar", m.MaxTAR,
		"skewness", m.Skewness,
		"intervals", m.IntervalCounts,
	)
	return nil
}

// MultiSink publishes to each sink in order and stops at the first error.
type MultiSink []MetricsSink

func (m MultiSink) Publish(ctx context.Context, metrics model.StepMetrics) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, metrics); err != nil {
			return err
		}
	}
	return nil
}
