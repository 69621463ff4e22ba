// Package store holds the in-process id-keyed registries backing the
// simulation services. Each store is safe for concurrent readers and writers,
// but callers own the single-writer-per-key contract: once a run id has been
// handed out, only the goroutine driving that run may Put under it.
package store

import (
	"sort"
	"sync"

	"quant-sandbox/internal/domain"
)

type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*domain.BacktestResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*domain.BacktestResult)}
}

func (s *ResultStore) Put(result *domain.BacktestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
}

func (s *ResultStore) Get(id string) (*domain.BacktestResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

// List returns all results, newest first.
func (s *ResultStore) List() []*domain.BacktestResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.BacktestResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type ScenarioStore struct {
	mu        sync.RWMutex
	scenarios map[string]*domain.Scenario
}

func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{scenarios: make(map[string]*domain.Scenario)}
}

func (s *ScenarioStore) Put(sc *domain.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[sc.ID] = sc
}

func (s *ScenarioStore) Get(id string) (*domain.Scenario, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	return sc, ok
}

func (s *ScenarioStore) List() []*domain.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.BacktestRun
}

func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*domain.BacktestRun)}
}

func (s *RunStore) Put(run *domain.BacktestRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) (*domain.BacktestRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

func (s *RunStore) List() []*domain.BacktestRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.BacktestRun, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
