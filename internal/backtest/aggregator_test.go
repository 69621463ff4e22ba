package backtest

import (
	"math"
	"testing"
	"time"

	"quant-sandbox/internal/domain"
)

func accountWithTrades(initial float64, rois ...float64) *Account {
	acct := NewAccount(initial)
	acct.Cash = initial
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, roi := range rois {
		pnl := initial * roi * 0.1
		acct.Cash += pnl
		acct.Trades = append(acct.Trades, domain.ClosedTrade{
			EntryPrice: 100,
			ExitPrice:  100 * (1 + roi),
			Size:       1,
			PnL:        pnl,
			ROI:        roi,
			EntryTime:  base.Add(time.Duration(i) * time.Hour),
			ExitTime:   base.Add(time.Duration(i+1) * time.Hour),
		})
	}
	return acct
}

func TestAggregateRanksByReturn(t *testing.T) {
	runs := []AgentRun{
		{Agent: "Atlas", Strategy: "momentum", Account: accountWithTrades(1000, -0.05, -0.02)},
		{Agent: "Zephyr", Strategy: "mean-reversion", Account: accountWithTrades(1000, 0.04, 0.06, -0.01)},
	}

	ranked := AggregatePerformance(runs)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(ranked))
	}
	if ranked[0].Agent != "Zephyr" || ranked[1].Agent != "Atlas" {
		t.Fatalf("expected Zephyr ranked first, got %s/%s", ranked[0].Agent, ranked[1].Agent)
	}
	if ranked[0].WinRate != 100.0*2/3 {
		t.Fatalf("unexpected win rate %.2f", ranked[0].WinRate)
	}
	for _, p := range ranked {
		if p.MaxDrawdownPct < 0 || p.MaxDrawdownPct > 100 {
			t.Fatalf("drawdown out of range: %+v", p)
		}
	}
}

func TestSharpeZeroWhenNoSpread(t *testing.T) {
	if got := sharpe([]float64{0.02, 0.02, 0.02}); got != 0 {
		t.Fatalf("expected zero sharpe for zero-stdev returns, got %f", got)
	}
	if got := sharpe([]float64{0.02}); got != 0 {
		t.Fatalf("expected zero sharpe for a single trade, got %f", got)
	}
	pos := sharpe([]float64{0.01, 0.03, 0.02})
	if pos <= 0 || math.IsNaN(pos) {
		t.Fatalf("expected positive sharpe, got %f", pos)
	}
}

func TestObserveDerivesStats(t *testing.T) {
	runs := []AgentRun{
		{Agent: "Atlas", Strategy: "momentum", Account: accountWithTrades(1000, 0.30)},
		{Agent: "Drift", Strategy: "trend-following", Account: accountWithTrades(1000, -0.30)},
	}
	runs[0].Account.DrawdownEvents = 2
	ranked := AggregatePerformance(runs)

	stats := Observe(runs, ranked)
	if stats.Agents != 2 {
		t.Fatalf("expected 2 agents, got %d", stats.Agents)
	}
	if stats.TotalTrades != 2 {
		t.Fatalf("expected 2 total trades, got %d", stats.TotalTrades)
	}
	if stats.DrawdownEvents != 2 {
		t.Fatalf("expected 2 drawdown events, got %d", stats.DrawdownEvents)
	}
	if stats.EstimatedClusters < 1 || stats.EstimatedClusters > 2 {
		t.Fatalf("unexpected cluster estimate %d", stats.EstimatedClusters)
	}
	if stats.ReturnSpreadPct <= 0 {
		t.Fatalf("expected positive spread, got %f", stats.ReturnSpreadPct)
	}
	if stats.DominantPattern == "" {
		t.Fatal("expected a dominant pattern")
	}
}
