package storage

import (
	"context"
	"testing"
	"time"

	"techrace/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := model.RunRecord{ID: "run-1", CreatedAt: time.Unix(100, 0).UTC(), FinalStep: 4}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loaded, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if loaded.FinalStep != 4 || loaded.VersionedRecord != CurrentVersion() {
		t.Fatalf("unexpected run: %+v", loaded)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for i, id := range []string{"a", "b", "c"} {
		if err := store.SaveRun(ctx, model.RunRecord{ID: id, CreatedAt: time.Unix(int64(i), 0)}); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "c" || runs[2].ID != "a" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestMemoryStoreStepMetricsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.StepMetrics{
		{Step: 1, Innovating: 3, IntervalCounts: [4]int{1, 2, 3, 4}, Firms: []model.FirmSnapshot{{ID: 0, TAR: 12}}},
		{Step: 2, Innovating: 1},
	}
	if err := store.SaveStepMetrics(ctx, "run-1", input); err != nil {
		t.Fatalf("save metrics: %v", err)
	}
	input[0].Firms[0].TAR = 99

	output, ok, err := store.GetStepMetrics(ctx, "run-1")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted metrics")
	}
	if len(output) != 2 || output[0].IntervalCounts != [4]int{1, 2, 3, 4} {
		t.Fatalf("unexpected metrics: %+v", output)
	}
	if output[0].Firms[0].TAR != 12 {
		t.Fatalf("stored metrics aliased caller slice: %+v", output[0].Firms)
	}
}

func TestMemoryStoreFinalFirmsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	firms := []model.Firm{model.NewFirm(0, 10, 0.05), model.NewFirm(1, 60, 0.05)}
	if err := store.SaveFinalFirms(ctx, "run-1", firms); err != nil {
		t.Fatalf("save firms: %v", err)
	}
	output, ok, err := store.GetFinalFirms(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get firms: ok=%v err=%v", ok, err)
	}
	if len(output) != 2 || output[1].TAR != 60 || output[1].State() != model.Leader {
		t.Fatalf("unexpected firms: %+v", output)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "x"}); err == nil {
		t.Fatal("expected error saving to uninitialized store")
	}
}
