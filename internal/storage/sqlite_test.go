//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"techrace/internal/model"
)

func TestSQLiteStoreRunAndMetricsRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "techrace.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	older := model.RunRecord{ID: "older", CreatedAt: time.Unix(10, 0).UTC(), FinalStep: 3}
	newer := model.RunRecord{ID: "newer", CreatedAt: time.Unix(20, 0).UTC(), FinalStep: 9, StopReason: model.StopReasonStopped}
	for _, run := range []model.RunRecord{older, newer} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, "newer")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || loaded.FinalStep != 9 || loaded.StopReason != model.StopReasonStopped {
		t.Fatalf("unexpected run loaded: ok=%v run=%+v", ok, loaded)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "newer" {
		t.Fatalf("unexpected run list: %+v", runs)
	}

	metrics := []model.StepMetrics{
		{Step: 1, Innovating: 4, Skewness: -0.5, IntervalCounts: [4]int{2, 3, 3, 2}, Active: 10},
		{Step: 2, Innovating: 2, Active: 9},
	}
	if err := store.SaveStepMetrics(ctx, "newer", metrics); err != nil {
		t.Fatalf("save metrics: %v", err)
	}
	loadedMetrics, ok, err := store.GetStepMetrics(ctx, "newer")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if !ok || len(loadedMetrics) != 2 || loadedMetrics[0].IntervalCounts != [4]int{2, 3, 3, 2} {
		t.Fatalf("unexpected metrics: ok=%v metrics=%+v", ok, loadedMetrics)
	}

	firms := []model.Firm{model.NewFirm(0, 40, 0.05)}
	if err := store.SaveFinalFirms(ctx, "newer", firms); err != nil {
		t.Fatalf("save firms: %v", err)
	}
	loadedFirms, ok, err := store.GetFinalFirms(ctx, "newer")
	if err != nil || !ok || len(loadedFirms) != 1 || loadedFirms[0].TAR != 40 {
		t.Fatalf("unexpected firms: ok=%v err=%v firms=%+v", ok, err, loadedFirms)
	}

	if _, ok, err := store.GetStepMetrics(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing metrics, ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
