package stats

import (
	"os"
	"path/filepath"
	"testing"

	"techrace/internal/model"
)

func sampleArtifacts(runID string, withFirms bool) RunArtifacts {
	metrics := []model.StepMetrics{
		{Step: 1, Active: 10, Innovating: 4, MedianTAR: 48.5, MaxTAR: 91, Skewness: -0.25, IntervalCounts: [4]int{2, 3, 4, 1}, Leaders: 4, Followers: 6},
		{Step: 2, Active: 8, Innovating: 3, MedianTAR: 49, MaxTAR: 91, Skewness: 0.125, IntervalCounts: [4]int{1, 3, 3, 1}, Leaders: 4, Followers: 4},
	}
	if withFirms {
		metrics[0].Firms = []model.FirmSnapshot{{ID: 0, TAR: 48.5, Interval: 1, State: "FOLLOWER", Active: true}}
		metrics[1].Firms = []model.FirmSnapshot{{ID: 0, TAR: 49.5, Interval: 2, State: "FOLLOWER", Active: true}}
	}
	return RunArtifacts{
		Config: RunConfig{
			RunID:         runID,
			RunParameters: model.RunParameters{NumFirms: 10, Distribution: "normal", Seed: 3},
		},
		Summary:  RunSummary{RunID: runID, FinalStep: 3, StopReason: model.StopReasonStopped, FinalActive: 2},
		Metrics:  metrics,
		Firms:    []model.Firm{model.NewFirm(0, 49.5, 0.05)},
		Topology: []TopologyEdge{{From: 0, To: 1}},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-123", false))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	files := []string{"config.json", "summary.json", "metrics.csv", "firms.json", "topology.json"}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}
	if _, err := os.Stat(filepath.Join(runDir, "firm_trajectories.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no trajectories without firm snapshots, got err=%v", err)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestWriteRunArtifactsWithFirmTrajectories(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-firms", true))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(runDir, "firm_trajectories.csv")); err != nil {
		t.Fatalf("expected trajectories file: %v", err)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, "run-firms", t.TempDir())
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportedDir, "firm_trajectories.csv")); err != nil {
		t.Fatalf("expected exported trajectories: %v", err)
	}
}

func TestStepMetricsCSVRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	input := sampleArtifacts("run-csv", true)
	if _, err := WriteRunArtifacts(baseDir, input); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	metrics, ok, err := ReadStepMetrics(baseDir, "run-csv")
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !ok {
		t.Fatal("expected metrics file")
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(metrics))
	}
	got := metrics[1]
	want := input.Metrics[1]
	if got.Step != want.Step || got.Active != want.Active || got.Innovating != want.Innovating ||
		got.MedianTAR != want.MedianTAR || got.Skewness != want.Skewness ||
		got.IntervalCounts != want.IntervalCounts || got.Leaders != want.Leaders || got.Followers != want.Followers {
		t.Fatalf("unexpected metrics row: got=%+v want=%+v", got, want)
	}
	if len(got.Firms) != 0 {
		t.Fatalf("csv rows should not carry firm snapshots: %+v", got.Firms)
	}

	if _, ok, err := ReadStepMetrics(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing metrics, ok=%v err=%v", ok, err)
	}
}

func TestReadRunConfigAndSummary(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-read", false)); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-read")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%v err=%v", ok, err)
	}
	if cfg.RunID != "run-read" || cfg.NumFirms != 10 || cfg.Seed != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	summary, ok, err := ReadRunSummary(baseDir, "run-read")
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%v err=%v", ok, err)
	}
	if summary.FinalStep != 3 || summary.StopReason != model.StopReasonStopped {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	firms, ok, err := ReadFinalFirms(baseDir, "run-read")
	if err != nil || !ok || len(firms) != 1 || firms[0].Interval != model.UnclassifiedInterval {
		t.Fatalf("unexpected firms: ok=%v err=%v firms=%+v", ok, err, firms)
	}
}

func TestRunIndexNewestFirstAndReplace(t *testing.T) {
	baseDir := t.TempDir()
	entries := []RunIndexEntry{
		{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z", FinalStep: 1},
		{RunID: "b", CreatedAtUTC: "2026-01-02T00:00:00Z", FinalStep: 2},
		{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z", FinalStep: 7},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("expected 2 entries, got %+v", index)
	}
	if index[0].RunID != "b" || index[1].RunID != "a" || index[1].FinalStep != 7 {
		t.Fatalf("unexpected index: %+v", index)
	}

	if err := AppendRunIndex(baseDir, RunIndexEntry{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}
