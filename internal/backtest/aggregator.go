package backtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/insight"
)

var annualization = math.Sqrt(252)

// AgentRun pairs one agent's strategy with its finished account.
type AgentRun struct {
	Agent    string
	Strategy string
	Account  *Account
}

// AggregatePerformance computes per-strategy statistics and ranks them by
// total return, best first.
func AggregatePerformance(runs []AgentRun) []domain.AgentPerformance {
	out := make([]domain.AgentPerformance, 0, len(runs))
	for _, r := range runs {
		out = append(out, performanceFor(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalReturnPct > out[j].TotalReturnPct
	})
	return out
}

func performanceFor(r AgentRun) domain.AgentPerformance {
	acct := r.Account
	perf := domain.AgentPerformance{
		Agent:        r.Agent,
		Strategy:     r.Strategy,
		Trades:       len(acct.Trades),
		FinalBalance: acct.Cash,
	}
	if acct.InitialBalance > 0 {
		perf.TotalReturnPct = (acct.Cash - acct.InitialBalance) / acct.InitialBalance * 100
	}
	perf.MaxDrawdownPct = clampPct(acct.MaxDrawdown * 100)

	if len(acct.Trades) == 0 {
		return perf
	}

	rois := make([]float64, len(acct.Trades))
	wins := 0
	for i, t := range acct.Trades {
		rois[i] = t.ROI
		if t.PnL > 0 {
			wins++
		}
	}
	perf.WinRate = float64(wins) / float64(len(acct.Trades)) * 100
	perf.AvgTradeROIPct = stat.Mean(rois, nil) * 100
	perf.SharpeRatio = sharpe(rois)
	return perf
}

// sharpe is the annualized mean/stdev of per-trade returns, zero when the
// return series has no spread.
func sharpe(rois []float64) float64 {
	if len(rois) < 2 {
		return 0
	}
	mean := stat.Mean(rois, nil)
	std := stat.StdDev(rois, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * annualization
}

// Observe derives the aggregate statistics narrative insights are built from.
// Performance entries must already be ranked best-first.
func Observe(runs []AgentRun, ranked []domain.AgentPerformance) insight.Stats {
	stats := insight.Stats{Agents: len(ranked)}
	if len(ranked) == 0 {
		return stats
	}

	returns := make([]float64, len(ranked))
	for i, p := range ranked {
		stats.TotalTrades += p.Trades
		returns[i] = p.TotalReturnPct
	}
	stats.AvgReturnPct = stat.Mean(returns, nil)
	stats.ReturnSpreadPct = ranked[0].TotalReturnPct - ranked[len(ranked)-1].TotalReturnPct

	for _, r := range runs {
		stats.DrawdownEvents += r.Account.DrawdownEvents
	}

	// Strategies whose returns land in the same 5%-wide bucket behaved as one
	// regime for this series.
	buckets := map[int]struct{}{}
	for _, ret := range returns {
		buckets[int(math.Floor(ret/5))] = struct{}{}
	}
	stats.EstimatedClusters = len(buckets)

	switch {
	case stats.AvgReturnPct > 2:
		stats.DominantPattern = "uptrend"
	case stats.AvgReturnPct < -2:
		stats.DominantPattern = "downtrend"
	default:
		stats.DominantPattern = "range-bound"
	}
	return stats
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
