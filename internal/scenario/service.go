package scenario

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/store"
)

// Archiver persists scenarios and terminal runs outside the process. Best effort.
type Archiver interface {
	SaveScenario(ctx context.Context, sc *domain.Scenario) error
	SaveRun(ctx context.Context, run *domain.BacktestRun) error
}

// Service owns the scenario and run registries. A scenario's data series is
// generated once at creation and reused by every run against it.
type Service struct {
	tracer    trace.Tracer
	gen       *DataGenerator
	scenarios *store.ScenarioStore
	runs      *store.RunStore
	archiver  Archiver
}

func NewService(tracer trace.Tracer, gen *DataGenerator, scenarios *store.ScenarioStore, runs *store.RunStore, archiver Archiver) *Service {
	if gen == nil {
		gen = NewDataGenerator(nil)
	}
	if scenarios == nil {
		scenarios = store.NewScenarioStore()
	}
	if runs == nil {
		runs = store.NewRunStore()
	}
	return &Service{tracer: tracer, gen: gen, scenarios: scenarios, runs: runs, archiver: archiver}
}

func (s *Service) CreateScenario(ctx context.Context, name, description, chain string, start, end time.Time) (*domain.Scenario, error) {
	_, span := s.tracer.Start(ctx, "scenario.create")
	defer span.End()

	if !end.After(start) {
		return nil, fmt.Errorf("scenario end date must be after start date")
	}
	sc := &domain.Scenario{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Chain:       chain,
		StartDate:   start.UTC(),
		EndDate:     end.UTC(),
		DataPoints:  s.gen.Series(chain, start, end),
		CreatedAt:   time.Now().UTC(),
	}
	s.scenarios.Put(sc)
	if s.archiver != nil {
		if err := s.archiver.SaveScenario(ctx, sc); err != nil {
			log.Printf("scenario archive failed: %v", err)
		}
	}
	return sc, nil
}

func (s *Service) Scenario(ctx context.Context, id string) (*domain.Scenario, error) {
	_, span := s.tracer.Start(ctx, "scenario.get")
	defer span.End()

	sc, ok := s.scenarios.Get(id)
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	return sc, nil
}

func (s *Service) Scenarios(ctx context.Context) []*domain.Scenario {
	_, span := s.tracer.Start(ctx, "scenario.list")
	defer span.End()

	return s.scenarios.List()
}

// RunBacktest applies one parameterized strategy against a stored scenario.
// An unknown scenario id is the caller's error; anything that goes wrong
// inside the replay is captured on the run itself.
func (s *Service) RunBacktest(ctx context.Context, scenarioID string, cfg domain.StrategyConfig, initialBalance float64, agentID string) (*domain.BacktestRun, error) {
	ctx, span := s.tracer.Start(ctx, "scenario.run-backtest")
	defer span.End()

	sc, ok := s.scenarios.Get(scenarioID)
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	if initialBalance <= 0 {
		initialBalance = 10000
	}

	run := &domain.BacktestRun{
		ID:             uuid.NewString(),
		ScenarioID:     scenarioID,
		AgentID:        agentID,
		Strategy:       cfg,
		InitialBalance: initialBalance,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	s.runs.Put(run)

	run.Status = domain.StatusRunning

	defer func() {
		if r := recover(); r != nil {
			s.finish(ctx, run, fmt.Sprintf("replay panic: %v", r))
		}
	}()

	metrics, decisions, err := NewEngine(agentID).Replay(cfg, sc.DataPoints, initialBalance)
	if err != nil {
		s.finish(ctx, run, err.Error())
		return run, nil
	}
	run.Metrics = metrics
	run.Decisions = decisions
	s.finish(ctx, run, "")
	return run, nil
}

func (s *Service) Run(ctx context.Context, id string) (*domain.BacktestRun, error) {
	_, span := s.tracer.Start(ctx, "scenario.get-run")
	defer span.End()

	run, ok := s.runs.Get(id)
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

func (s *Service) Runs(ctx context.Context) []*domain.BacktestRun {
	_, span := s.tracer.Start(ctx, "scenario.list-runs")
	defer span.End()

	return s.runs.List()
}

// CompareRuns ranks completed runs by Sharpe ratio. Ids that do not resolve to
// a completed run are skipped; fewer than two survivors is the caller's error.
func (s *Service) CompareRuns(ctx context.Context, runIDs []string) (*domain.BacktestComparison, error) {
	_, span := s.tracer.Start(ctx, "scenario.compare-runs")
	defer span.End()

	entries := make([]domain.RunComparisonEntry, 0, len(runIDs))
	best := -1
	for _, id := range runIDs {
		run, ok := s.runs.Get(id)
		if !ok || run.Status != domain.StatusCompleted {
			continue
		}
		entries = append(entries, domain.RunComparisonEntry{
			RunID:          run.ID,
			StrategyName:   run.Strategy.Name,
			SharpeRatio:    run.Metrics.SharpeRatio,
			TotalReturnPct: run.Metrics.TotalReturnPct,
			MaxDrawdownPct: run.Metrics.MaxDrawdownPct,
			ProfitFactor:   run.Metrics.ProfitFactor,
		})
		if best == -1 || entries[len(entries)-1].SharpeRatio > entries[best].SharpeRatio {
			best = len(entries) - 1
		}
	}
	if len(entries) < 2 {
		return nil, domain.ErrInsufficientRuns
	}
	return &domain.BacktestComparison{
		Runs:              entries,
		BestPerformingRun: entries[best].RunID,
		BestSharpe:        entries[best].SharpeRatio,
		ComparedAt:        time.Now().UTC(),
	}, nil
}

// finish moves a run to its terminal status exactly once.
func (s *Service) finish(ctx context.Context, run *domain.BacktestRun, errMsg string) {
	if run.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	if errMsg != "" {
		run.Status = domain.StatusFailed
		run.ErrorMessage = errMsg
	} else {
		run.Status = domain.StatusCompleted
	}
	s.runs.Put(run)
	if s.archiver != nil {
		if err := s.archiver.SaveRun(ctx, run); err != nil {
			log.Printf("run archive failed: %v", err)
		}
	}
}
