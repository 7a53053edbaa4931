package storage

import (
	"context"

	"techrace/internal/model"
)

// Store persists finished runs: the run record, the per-step metrics the
// clock published, and the final firm states.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveStepMetrics(ctx context.Context, runID string, metrics []model.StepMetrics) error
	GetStepMetrics(ctx context.Context, runID string) ([]model.StepMetrics, bool, error)
	SaveFinalFirms(ctx context.Context, runID string, firms []model.Firm) error
	GetFinalFirms(ctx context.Context, runID string) ([]model.Firm, bool, error)
}
