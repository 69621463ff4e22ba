package backtest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/insight"
	"quant-sandbox/internal/ml/anomaly"
	"quant-sandbox/internal/store"
)

const decisionTailLimit = 50

// Narrator renders aggregate statistics into narrative insight lines.
type Narrator interface {
	Insights(ctx context.Context, stats insight.Stats) []string
}

// ResultCache caches completed results for the read path. Best effort.
type ResultCache interface {
	SetResult(ctx context.Context, result *domain.BacktestResult) error
	GetResult(ctx context.Context, id string) (*domain.BacktestResult, error)
}

// ResultArchiver persists terminal results outside the process. Best effort.
type ResultArchiver interface {
	SaveResult(ctx context.Context, result *domain.BacktestResult) error
}

// AnomalyScorer reports the fraction of anomalous samples in a series.
type AnomalyScorer interface {
	Share(samples [][]float64) float64
}

// Defaults fills the blanks of incoming quick-backtest requests. Zero values
// fall back to the built-in defaults.
type Defaults struct {
	Symbol         string
	Interval       string
	InitialBalance float64
}

func (d Defaults) withFallbacks() Defaults {
	if d.Symbol == "" {
		d.Symbol = "BTC-USD"
	}
	if _, ok := domain.IntervalDuration[d.Interval]; !ok {
		d.Interval = "1h"
	}
	if d.InitialBalance <= 0 {
		d.InitialBalance = 10000
	}
	return d
}

// Service runs multi-strategy quick backtests and owns their result registry.
type Service struct {
	tracer   trace.Tracer
	gen      *Generator
	sim      *Simulator
	narrator Narrator
	anomaly  AnomalyScorer
	results  *store.ResultStore
	cache    ResultCache
	archiver ResultArchiver
	defaults Defaults
}

func NewService(
	tracer trace.Tracer,
	gen *Generator,
	narrator Narrator,
	anomaly AnomalyScorer,
	results *store.ResultStore,
	cache ResultCache,
	archiver ResultArchiver,
	defaults Defaults,
) *Service {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	if results == nil {
		results = store.NewResultStore()
	}
	return &Service{
		tracer:   tracer,
		gen:      gen,
		sim:      NewSimulator(defaultPositionFraction),
		narrator: narrator,
		anomaly:  anomaly,
		results:  results,
		cache:    cache,
		archiver: archiver,
		defaults: defaults.withFallbacks(),
	}
}

// RunQuickBacktest executes every requested agent against one generated candle
// series. The call always returns a result; simulation failures are recorded
// on it (status=failed) instead of propagating.
func (s *Service) RunQuickBacktest(ctx context.Context, req domain.QuickBacktestRequest) *domain.BacktestResult {
	ctx, span := s.tracer.Start(ctx, "backtest.run-quick")
	defer span.End()

	s.applyRequestDefaults(&req)
	result := &domain.BacktestResult{
		ID:        uuid.NewString(),
		Status:    domain.StatusRunning,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
	s.results.Put(result)

	defer func() {
		if r := recover(); r != nil {
			s.freeze(ctx, result, fmt.Sprintf("simulation panic: %v", r))
		}
	}()

	if !req.To.After(req.From) {
		s.freeze(ctx, result, "invalid date range: to must be after from")
		return result
	}
	candles := s.gen.Candles(req.Symbol, req.Interval, req.From, req.To)
	if len(candles) < 2 {
		s.freeze(ctx, result, "date range produced fewer than two candles")
		return result
	}

	runs := make([]AgentRun, 0, len(req.Agents))
	var decisions []domain.TradeDecision
	for _, agent := range req.Agents {
		strat := StrategyForAgent(agent)
		acct, agentDecisions := s.sim.Run(strat, agent, candles, req.InitialBalance)
		runs = append(runs, AgentRun{Agent: agent, Strategy: strat.Name(), Account: acct})
		decisions = append(decisions, agentDecisions...)
	}
	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Timestamp.Before(decisions[j].Timestamp)
	})

	ranked := AggregatePerformance(runs)
	stats := Observe(runs, ranked)
	if s.anomaly != nil {
		stats.AnomalyShare = s.anomaly.Share(anomaly.CandleSamples(candles))
	}

	result.AgentPerformance = ranked
	result.BestAgent = ranked[0].Agent
	result.WorstAgent = ranked[len(ranked)-1].Agent
	result.TotalTrades = stats.TotalTrades
	result.AvgReturnPct = stats.AvgReturnPct
	result.Decisions = decisionTail(decisions, decisionTailLimit)
	if s.narrator != nil {
		result.Insights = s.narrator.Insights(ctx, stats)
	}

	s.freeze(ctx, result, "")
	return result
}

// Result resolves one backtest result by id. Misses in the in-memory store
// fall through to the cache so results survive a process restart.
func (s *Service) Result(ctx context.Context, id string) (*domain.BacktestResult, error) {
	ctx, span := s.tracer.Start(ctx, "backtest.get-result")
	defer span.End()

	if result, ok := s.results.Get(id); ok {
		return result, nil
	}
	if s.cache != nil {
		result, err := s.cache.GetResult(ctx, id)
		if err != nil {
			log.Printf("backtest result cache read failed: %v", err)
		} else if result != nil {
			s.results.Put(result)
			return result, nil
		}
	}
	return nil, domain.ErrResultNotFound
}

// Results lists all results, newest first.
func (s *Service) Results(ctx context.Context) []*domain.BacktestResult {
	_, span := s.tracer.Start(ctx, "backtest.list-results")
	defer span.End()

	return s.results.List()
}

// freeze transitions a running result to its terminal status exactly once and
// fans it out to the cache and archiver.
func (s *Service) freeze(ctx context.Context, result *domain.BacktestResult, errMsg string) {
	if result.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	result.CompletedAt = &now
	if errMsg != "" {
		result.Status = domain.StatusFailed
		result.ErrorMessage = errMsg
	} else {
		result.Status = domain.StatusCompleted
	}
	s.results.Put(result)

	if s.cache != nil {
		if err := s.cache.SetResult(ctx, result); err != nil {
			log.Printf("backtest result cache write failed: %v", err)
		}
	}
	if s.archiver != nil {
		if err := s.archiver.SaveResult(ctx, result); err != nil {
			log.Printf("backtest result archive failed: %v", err)
		}
	}
}

func (s *Service) applyRequestDefaults(req *domain.QuickBacktestRequest) {
	if req.Symbol == "" {
		req.Symbol = s.defaults.Symbol
	}
	if _, ok := domain.IntervalDuration[req.Interval]; !ok {
		req.Interval = s.defaults.Interval
	}
	if len(req.Agents) == 0 {
		req.Agents = append([]string(nil), DefaultAgents...)
	}
	if req.InitialBalance <= 0 {
		req.InitialBalance = s.defaults.InitialBalance
	}
}

func decisionTail(decisions []domain.TradeDecision, limit int) []domain.TradeDecision {
	if len(decisions) <= limit {
		return decisions
	}
	return decisions[len(decisions)-limit:]
}
