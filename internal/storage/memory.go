package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"techrace/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	metrics     map[string][]model.StepMetrics
	firms       map[string][]model.Firm
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.metrics = make(map[string][]model.StepMetrics)
	s.firms = make(map[string][]model.Firm)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	Stamp(&run.VersionedRecord)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns runs newest first.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveStepMetrics(_ context.Context, runID string, metrics []model.StepMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.metrics[runID] = stampedMetrics(metrics)
	return nil
}

func (s *MemoryStore) GetStepMetrics(_ context.Context, runID string) ([]model.StepMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics, ok := s.metrics[runID]
	if !ok {
		return nil, false, nil
	}
	return stampedMetrics(metrics), true, nil
}

func (s *MemoryStore) SaveFinalFirms(_ context.Context, runID string, firms []model.Firm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.firms[runID] = append([]model.Firm(nil), firms...)
	return nil
}

func (s *MemoryStore) GetFinalFirms(_ context.Context, runID string) ([]model.Firm, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	firms, ok := s.firms[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.Firm(nil), firms...), true, nil
}

func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}
