package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ta"
)

const (
	highVolExitThreshold = 0.03
	profitFactorCap      = 99.99
	volatilityWindow     = 12
)

var chainBasePrice = map[string]float64{
	"ethereum":  2500,
	"solana":    100,
	"arbitrum":  1.2,
	"optimism":  2.4,
	"base":      2500,
	"avalanche": 35,
}

// DataGenerator produces a scenario's hourly historical series from a seeded
// random walk over price, volume, TVL and gas.
type DataGenerator struct {
	rng *rand.Rand
}

func NewDataGenerator(rng *rand.Rand) *DataGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &DataGenerator{rng: rng}
}

// Series walks hourly data points across [start, end).
func (g *DataGenerator) Series(chain string, start, end time.Time) []domain.HistoricalDataPoint {
	base, ok := chainBasePrice[chain]
	if !ok {
		base = domain.DefaultBasePrice
	}

	price := base
	tvl := 500_000_000.0
	gas := 40.0
	var changes []float64

	var out []domain.HistoricalDataPoint
	for ts := start.UTC(); ts.Before(end.UTC()); ts = ts.Add(time.Hour) {
		change := 0.0002 + 0.018*g.rng.NormFloat64()
		price *= 1 + change
		if price < base*0.01 {
			price = base * 0.01
		}

		changes = append(changes, change)
		window := changes
		if len(window) > volatilityWindow {
			window = window[len(window)-volatilityWindow:]
		}
		_, vol := ta.MeanStd(window)

		tvl *= 1 + 0.005*g.rng.NormFloat64()
		if tvl < 1_000_000 {
			tvl = 1_000_000
		}
		gas += 5 * g.rng.NormFloat64()
		if gas < 5 {
			gas = 5
		}
		if gas > 300 {
			gas = 300
		}

		out = append(out, domain.HistoricalDataPoint{
			Timestamp:  ts,
			Price:      price,
			Volume:     2_000_000 * (0.4 + 1.2*g.rng.Float64()),
			TVL:        tvl,
			GasPrice:   gas,
			Volatility: vol,
		})
	}
	return out
}

// Engine replays one parameterized strategy over a scenario series in a single
// forward pass.
type Engine struct {
	agent string
}

func NewEngine(agent string) *Engine {
	if agent == "" {
		agent = "scenario"
	}
	return &Engine{agent: agent}
}

// Replay returns the run's metrics and decision trace. Configuration errors
// surface as a returned error so the caller can record the run as failed.
func (e *Engine) Replay(cfg domain.StrategyConfig, points []domain.HistoricalDataPoint, initialBalance float64) (domain.RunMetrics, []domain.TradeDecision, error) {
	if !cfg.RiskTolerance.IsValid() {
		return domain.RunMetrics{}, nil, fmt.Errorf("unknown risk tolerance %q", cfg.RiskTolerance)
	}
	if cfg.PositionSizePct <= 0 || cfg.PositionSizePct > 100 {
		return domain.RunMetrics{}, nil, fmt.Errorf("position size %.2f%% out of (0,100]", cfg.PositionSizePct)
	}
	if cfg.StopLossPct <= 0 || cfg.TakeProfitPct <= 0 {
		return domain.RunMetrics{}, nil, fmt.Errorf("stop-loss and take-profit must be positive percentages")
	}
	if len(points) < 2 {
		return domain.RunMetrics{}, nil, fmt.Errorf("scenario series too short: %d points", len(points))
	}

	cash := initialBalance
	peak := initialBalance
	maxDD := 0.0
	var pos *domain.Position
	var rois []float64
	grossProfit := 0.0
	grossLoss := 0.0
	wins := 0
	trades := 0
	var decisions []domain.TradeDecision

	volSum := 0.0
	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		cur := points[i]
		volSum += prev.Volume
		avgVolume := volSum / float64(i)

		if pos == nil {
			if buySignal(cfg.RiskTolerance, prev, cur, avgVolume) {
				spend := cash * cfg.PositionSizePct / 100
				size := spend / cur.Price
				cash -= size * cur.Price
				pos = &domain.Position{EntryPrice: cur.Price, Size: size, EntryTime: cur.Timestamp}
				decisions = append(decisions, decision(e.agent, cur, domain.ActionBuy, 0.6,
					fmt.Sprintf("%s entry conditions met", cfg.RiskTolerance)))
			}
		} else if reason, ok := exitSignal(cfg, pos, cur); ok {
			roi := ta.PctChange(pos.EntryPrice, cur.Price)
			cash += pos.Size * cur.Price
			pnl := pos.Size * (cur.Price - pos.EntryPrice)
			trades++
			rois = append(rois, roi)
			if pnl > 0 {
				wins++
				grossProfit += pnl
			} else {
				grossLoss += -pnl
			}
			pos = nil
			decisions = append(decisions, decision(e.agent, cur, domain.ActionSell, 0.8, reason))
		}

		equity := cash
		if pos != nil {
			equity += pos.Size * cur.Price
		}
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}

	if pos != nil {
		last := points[len(points)-1]
		roi := ta.PctChange(pos.EntryPrice, last.Price)
		cash += pos.Size * last.Price
		pnl := pos.Size * (last.Price - pos.EntryPrice)
		trades++
		rois = append(rois, roi)
		if pnl > 0 {
			wins++
			grossProfit += pnl
		} else {
			grossLoss += -pnl
		}
		pos = nil
		decisions = append(decisions, decision(e.agent, last, domain.ActionSell, 1, "position force-closed at end of run"))
	}

	metrics := domain.RunMetrics{
		TotalTrades:   trades,
		WinningTrades: wins,
		FinalBalance:  cash,
	}
	if trades > 0 {
		metrics.WinRate = float64(wins) / float64(trades) * 100
	}
	if initialBalance > 0 {
		metrics.TotalReturnPct = (cash - initialBalance) / initialBalance * 100
	}
	metrics.MaxDrawdownPct = math.Min(maxDD*100, 100)
	metrics.SharpeRatio = sharpeRatio(rois)
	metrics.ProfitFactor = profitFactor(grossProfit, grossLoss)
	return metrics, decisions, nil
}

// buySignal branches on the configured risk tolerance.
func buySignal(risk domain.RiskTolerance, prev, cur domain.HistoricalDataPoint, avgVolume float64) bool {
	momentum := ta.PctChange(prev.Price, cur.Price)
	switch risk {
	case domain.RiskConservative:
		return cur.Volatility < 0.01 && cur.TVL > prev.TVL
	case domain.RiskModerate:
		return momentum > 0.005 && cur.Volume > avgVolume
	case domain.RiskAggressive:
		dip := momentum < -0.03
		volMomentum := cur.Volatility > 0.02 && momentum > 0.01
		return dip || volMomentum
	}
	return false
}

// exitSignal checks stop-loss, take-profit, then the volatility-driven
// early-exit-with-profit rule, in that order.
func exitSignal(cfg domain.StrategyConfig, pos *domain.Position, cur domain.HistoricalDataPoint) (string, bool) {
	roi := ta.PctChange(pos.EntryPrice, cur.Price)
	if roi <= -cfg.StopLossPct/100 {
		return fmt.Sprintf("stop loss %.1f%% hit", cfg.StopLossPct), true
	}
	if roi >= cfg.TakeProfitPct/100 {
		return fmt.Sprintf("take profit %.1f%% hit", cfg.TakeProfitPct), true
	}
	if cur.Volatility > highVolExitThreshold && roi > 0 {
		return "volatility spike, exiting with profit", true
	}
	return "", false
}

func sharpeRatio(rois []float64) float64 {
	if len(rois) < 2 {
		return 0
	}
	mean := stat.Mean(rois, nil)
	std := stat.StdDev(rois, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return profitFactorCap
	}
	pf := grossProfit / grossLoss
	if pf > profitFactorCap {
		return profitFactorCap
	}
	return pf
}

func decision(agent string, p domain.HistoricalDataPoint, action domain.TradeAction, confidence float64, rationale string) domain.TradeDecision {
	return domain.TradeDecision{
		Timestamp:  p.Timestamp,
		Agent:      agent,
		Action:     action,
		Price:      p.Price,
		Confidence: confidence,
		Rationale:  rationale,
	}
}
