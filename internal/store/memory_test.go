package store

import (
	"testing"
	"time"

	"quant-sandbox/internal/domain"
)

func TestResultStorePutGet(t *testing.T) {
	s := NewResultStore()

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss for unknown id")
	}

	r := &domain.BacktestResult{ID: "a", Status: domain.StatusRunning}
	s.Put(r)

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got != r {
		t.Fatal("expected the same pointer back")
	}
}

func TestResultStoreListNewestFirst(t *testing.T) {
	s := NewResultStore()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s.Put(&domain.BacktestResult{ID: "old", CreatedAt: base})
	s.Put(&domain.BacktestResult{ID: "new", CreatedAt: base.Add(time.Hour)})
	s.Put(&domain.BacktestResult{ID: "mid", CreatedAt: base.Add(time.Minute)})

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 results, got %d", len(list))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if list[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].ID)
		}
	}
}

func TestScenarioStoreOverwriteKeepsLatest(t *testing.T) {
	s := NewScenarioStore()

	s.Put(&domain.Scenario{ID: "s1", Name: "first"})
	s.Put(&domain.Scenario{ID: "s1", Name: "second"})

	got, ok := s.Get("s1")
	if !ok {
		t.Fatal("expected scenario present")
	}
	if got.Name != "second" {
		t.Fatalf("expected overwrite, got %q", got.Name)
	}
	if len(s.List()) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(s.List()))
	}
}

func TestRunStoreListNewestFirst(t *testing.T) {
	s := NewRunStore()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s.Put(&domain.BacktestRun{ID: "r1", CreatedAt: base})
	s.Put(&domain.BacktestRun{ID: "r2", CreatedAt: base.Add(time.Second)})

	list := s.List()
	if len(list) != 2 || list[0].ID != "r2" {
		t.Fatalf("expected r2 first, got %v", []string{list[0].ID, list[1].ID})
	}
}
