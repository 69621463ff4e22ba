package scenario

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"quant-sandbox/internal/domain"
)

func validConfig(risk domain.RiskTolerance) domain.StrategyConfig {
	return domain.StrategyConfig{
		Name:            "test-strategy",
		RiskTolerance:   risk,
		PositionSizePct: 50,
		StopLossPct:     5,
		TakeProfitPct:   10,
	}
}

func TestDataGeneratorSeries(t *testing.T) {
	gen := NewDataGenerator(rand.New(rand.NewSource(3)))
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	points := gen.Series("ethereum", start, start.Add(48*time.Hour))
	if len(points) != 48 {
		t.Fatalf("expected 48 hourly points, got %d", len(points))
	}
	for i, p := range points {
		if p.Price <= 0 || p.Volume <= 0 || p.TVL <= 0 || p.GasPrice <= 0 {
			t.Fatalf("point %d has non-positive field: %+v", i, p)
		}
		if p.Volatility < 0 {
			t.Fatalf("point %d has negative volatility", i)
		}
		if i > 0 && !p.Timestamp.After(points[i-1].Timestamp) {
			t.Fatalf("timestamps not increasing at %d", i)
		}
	}
}

func TestReplayRejectsMalformedConfig(t *testing.T) {
	points := NewDataGenerator(rand.New(rand.NewSource(5))).
		Series("ethereum", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	cases := []domain.StrategyConfig{
		{RiskTolerance: "reckless", PositionSizePct: 50, StopLossPct: 5, TakeProfitPct: 10},
		{RiskTolerance: domain.RiskModerate, PositionSizePct: 0, StopLossPct: 5, TakeProfitPct: 10},
		{RiskTolerance: domain.RiskModerate, PositionSizePct: 50, StopLossPct: 0, TakeProfitPct: 10},
	}
	for i, cfg := range cases {
		if _, _, err := NewEngine("a1").Replay(cfg, points, 10000); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestReplayMetricsBounds(t *testing.T) {
	points := NewDataGenerator(rand.New(rand.NewSource(9))).
		Series("solana", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	for _, risk := range []domain.RiskTolerance{domain.RiskConservative, domain.RiskModerate, domain.RiskAggressive} {
		metrics, decisions, err := NewEngine("a1").Replay(validConfig(risk), points, 10000)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", risk, err)
		}
		if metrics.MaxDrawdownPct < 0 || metrics.MaxDrawdownPct > 100 {
			t.Fatalf("%s: drawdown out of range: %f", risk, metrics.MaxDrawdownPct)
		}
		if metrics.WinRate < 0 || metrics.WinRate > 100 {
			t.Fatalf("%s: win rate out of range: %f", risk, metrics.WinRate)
		}
		if metrics.TotalTrades < 0 || metrics.WinningTrades > metrics.TotalTrades {
			t.Fatalf("%s: inconsistent trade counts: %+v", risk, metrics)
		}
		if metrics.TotalTrades > 0 && len(decisions) == 0 {
			t.Fatalf("%s: trades recorded without decisions", risk)
		}
	}
}

func TestReplayNoOpenPositionSurvives(t *testing.T) {
	points := NewDataGenerator(rand.New(rand.NewSource(21))).
		Series("ethereum", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))

	metrics, decisions, err := NewEngine("a1").Replay(validConfig(domain.RiskAggressive), points, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buys, sells := 0, 0
	for _, d := range decisions {
		switch d.Action {
		case domain.ActionBuy:
			buys++
		case domain.ActionSell:
			sells++
		}
	}
	if buys != sells {
		t.Fatalf("expected every open closed, got %d buys / %d sells", buys, sells)
	}
	if buys != metrics.TotalTrades {
		t.Fatalf("trade count %d does not match %d round trips", metrics.TotalTrades, buys)
	}
}

func TestProfitFactorCappedWithoutLosses(t *testing.T) {
	if got := profitFactor(500, 0); got != profitFactorCap {
		t.Fatalf("expected capped profit factor, got %f", got)
	}
	if got := profitFactor(0, 0); got != 0 {
		t.Fatalf("expected zero profit factor with no trades, got %f", got)
	}
	if got := profitFactor(200, 100); got != 2 {
		t.Fatalf("expected 2.0, got %f", got)
	}
}

func TestExitSignalOrdering(t *testing.T) {
	cfg := validConfig(domain.RiskModerate)
	pos := &domain.Position{EntryPrice: 100, Size: 1}

	if reason, ok := exitSignal(cfg, pos, domain.HistoricalDataPoint{Price: 94}); !ok || !strings.Contains(reason, "stop loss") {
		t.Fatalf("expected stop loss exit, got %q/%v", reason, ok)
	}
	if reason, ok := exitSignal(cfg, pos, domain.HistoricalDataPoint{Price: 111}); !ok || !strings.Contains(reason, "take profit") {
		t.Fatalf("expected take profit exit, got %q/%v", reason, ok)
	}
	if reason, ok := exitSignal(cfg, pos, domain.HistoricalDataPoint{Price: 102, Volatility: 0.05}); !ok || !strings.Contains(reason, "volatility") {
		t.Fatalf("expected volatility exit, got %q/%v", reason, ok)
	}
	if _, ok := exitSignal(cfg, pos, domain.HistoricalDataPoint{Price: 101, Volatility: 0.01}); ok {
		t.Fatal("expected no exit")
	}
}
