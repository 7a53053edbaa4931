package techrace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"techrace/internal/config"
	"techrace/internal/logging"
	"techrace/internal/market"
	"techrace/internal/model"
	"techrace/internal/simulation"
	"techrace/internal/stats"
	"techrace/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "techrace.db"
	defaultRunsLimit    = 20
)

// Config is the full set of simulation options.
type Config = config.Config

// StepMetrics is one published step of a run.
type StepMetrics = model.StepMetrics

// StopReason tells why a run ended.
type StopReason = model.StopReason

func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	artifactsDir string
	exportsDir   string

	initOnce sync.Once
	initErr  error
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	FinalStep    int
	StopReason   StopReason
	FinalActive  int
	MedianTAR    float64
	MaxTAR       float64
	Edges        int
	Metrics      []StepMetrics
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string     `json:"run_id"`
	CreatedAtUTC string     `json:"created_at_utc"`
	Distribution string     `json:"distribution"`
	NumFirms     int        `json:"num_firms"`
	Seed         int64      `json:"seed"`
	FinalStep    int        `json:"final_step"`
	StopReason   StopReason `json:"stop_reason"`
	FinalActive  int        `json:"final_active"`
}

type MetricsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logging.OrDefault(opts.Logger),
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Run builds a model from cfg, steps it until it stops, hits cfg.MaxSteps or
// ctx is cancelled, and persists the outcome. A cancelled run is still saved
// with stop reason "canceled"; the context error is returned alongside the
// summary.
func (c *Client) Run(ctx context.Context, cfg Config) (RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := newRunID(cfg)
	logger := c.logger.With("run_id", runID)

	recorder := simulation.NewRecorder()
	m, err := simulation.Build(cfg, simulation.MultiSink{recorder, simulation.LogSink{Logger: logger}}, logger)
	if err != nil {
		return RunSummary{}, err
	}
	logger.InfoContext(ctx, "run started",
		"firms", cfg.NumFirms,
		"edges", m.Topology.EdgeCount(),
		"distribution", cfg.Distribution,
		"seed", cfg.Seed,
	)

	result, runErr := m.Clock.Run(ctx, cfg.MaxSteps)
	if runErr != nil && !simulation.IsCanceled(runErr) {
		return RunSummary{}, runErr
	}
	// Persisting must not depend on the cancelled run context.
	saveCtx := context.WithoutCancel(ctx)

	firms := m.Clock.Population().Firms()
	metrics := recorder.Metrics()
	snap := market.TakeSnapshot(firms)

	record := model.RunRecord{
		ID:          runID,
		CreatedAt:   now,
		Parameters:  cfg.Parameters(),
		Edges:       m.Topology.EdgeCount(),
		FinalStep:   result.Steps,
		StopReason:  result.StopReason,
		FinalActive: result.Active,
	}
	if err := c.store.SaveRun(saveCtx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveStepMetrics(saveCtx, runID, metrics); err != nil {
		return RunSummary{}, fmt.Errorf("save metrics %s: %w", runID, err)
	}
	if err := c.store.SaveFinalFirms(saveCtx, runID, firms); err != nil {
		return RunSummary{}, fmt.Errorf("save firms %s: %w", runID, err)
	}

	edges := m.Topology.Edges()
	topo := make([]stats.TopologyEdge, 0, len(edges))
	for _, e := range edges {
		topo = append(topo, stats.TopologyEdge{From: e.From, To: e.To})
	}
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{RunID: runID, RunParameters: cfg.Parameters()},
		Summary: stats.RunSummary{
			RunID:       runID,
			FinalStep:   result.Steps,
			StopReason:  result.StopReason,
			FinalActive: result.Active,
			MedianTAR:   snap.MedianTAR,
			MaxTAR:      snap.MaxTAR,
			Edges:       len(edges),
		},
		Metrics:  metrics,
		Firms:    firms,
		Topology: topo,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        runID,
		Distribution: cfg.Distribution,
		NumFirms:     cfg.NumFirms,
		Seed:         cfg.Seed,
		FinalStep:    result.Steps,
		StopReason:   result.StopReason,
		FinalActive:  result.Active,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	logger.InfoContext(ctx, "run finished",
		"steps", result.Steps,
		"stop_reason", string(result.StopReason),
		"active", result.Active,
		"median_tar", snap.MedianTAR,
	)

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		FinalStep:    result.Steps,
		StopReason:   result.StopReason,
		FinalActive:  result.Active,
		MedianTAR:    snap.MedianTAR,
		MaxTAR:       snap.MaxTAR,
		Edges:        len(edges),
		Metrics:      metrics,
	}, runErr
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Distribution: e.Distribution,
			NumFirms:     e.NumFirms,
			Seed:         e.Seed,
			FinalStep:    e.FinalStep,
			StopReason:   e.StopReason,
			FinalActive:  e.FinalActive,
		})
	}
	return out, nil
}

// Metrics returns the per-step metrics of a run, from the store when it has
// the run and from the run's metrics.csv otherwise.
func (c *Client) Metrics(ctx context.Context, req MetricsRequest) ([]StepMetrics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "metrics")
	if err != nil {
		return nil, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	metrics, ok, err := c.store.GetStepMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics, ok, err = stats.ReadStepMetrics(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("metrics not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(metrics) > req.Limit {
		metrics = metrics[:req.Limit]
	}
	return metrics, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	if !latest {
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func newRunID(cfg Config) string {
	return fmt.Sprintf("%s-%d-%s", cfg.Distribution, cfg.Seed, uuid.NewString()[:8])
}
