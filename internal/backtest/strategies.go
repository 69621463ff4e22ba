package backtest

import (
	"fmt"
	"math"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ta"
)

// Decision is a single strategy verdict for one tick.
type Decision struct {
	Action     domain.TradeAction
	Confidence float64
	Rationale  string
}

func hold() Decision {
	return Decision{Action: domain.ActionHold}
}

// Strategy is a stateless decision function. Evaluate sees the current and
// previous candle, the strategy's own account and the trailing history up to
// and including the current tick.
type Strategy interface {
	Name() string
	Evaluate(prev, cur domain.Candle, acct *Account, history []domain.Candle) Decision
}

// agentStrategies maps dashboard agent names to their strategy archetypes.
var agentStrategies = map[string]func() Strategy{
	"Atlas":    func() Strategy { return &momentumStrategy{} },
	"Vega":     func() Strategy { return &volAdaptiveStrategy{} },
	"Drift":    func() Strategy { return &trendStrategy{} },
	"Sentinel": func() Strategy { return &cautiousStrategy{} },
	"Zephyr":   func() Strategy { return &meanReversionStrategy{} },
}

// DefaultAgents lists the five archetype agents in roster order.
var DefaultAgents = []string{"Atlas", "Vega", "Drift", "Sentinel", "Zephyr"}

// StrategyForAgent resolves an agent name to its archetype. Unknown agents get
// the momentum archetype so a backtest never fails on roster drift.
func StrategyForAgent(agent string) Strategy {
	if mk, ok := agentStrategies[agent]; ok {
		return mk()
	}
	return &momentumStrategy{}
}

// momentumStrategy buys short-window momentum confirmed by a volume surge and
// exits on fixed take-profit/stop-loss or a mean-reversion pullback.
type momentumStrategy struct{}

func (s *momentumStrategy) Name() string { return "momentum" }

func (s *momentumStrategy) Evaluate(prev, cur domain.Candle, acct *Account, history []domain.Candle) Decision {
	closes := closePrices(history)
	volumes := tickVolumes(history)
	if len(closes) < 5 {
		return hold()
	}
	mom := ta.PctChange(closes[len(closes)-4], cur.Close)
	avgVol := ta.SMA(volumes, 10)

	if acct.Position == nil {
		if mom > 0.01 && !math.IsNaN(avgVol) && cur.Volume > 1.5*avgVol {
			conf := 0.6 + math.Min(mom*10, 0.3)
			return Decision{domain.ActionBuy, conf, fmt.Sprintf("momentum %.2f%% with volume surge", mom*100)}
		}
		return hold()
	}

	roi := ta.PctChange(acct.Position.EntryPrice, cur.Close)
	switch {
	case roi >= 0.03:
		return Decision{domain.ActionSell, 0.9, "take profit hit"}
	case roi <= -0.02:
		return Decision{domain.ActionSell, 0.9, "stop loss hit"}
	case mom < -0.02:
		return Decision{domain.ActionSell, 0.7, "momentum reversal"}
	}
	return hold()
}

// volAdaptiveStrategy scales its take-profit/stop-loss thresholds with a
// rolling-window volatility estimate.
type volAdaptiveStrategy struct{}

func (s *volAdaptiveStrategy) Name() string { return "volatility-adaptive" }

func (s *volAdaptiveStrategy) Evaluate(prev, cur domain.Candle, acct *Account, history []domain.Candle) Decision {
	closes := closePrices(history)
	vol := ta.RollingVolatility(closes, 12)
	if math.IsNaN(vol) {
		return hold()
	}
	takeProfit := math.Min(0.02*(1+vol*25), 0.08)
	stopLoss := math.Min(0.012*(1+vol*15), 0.05)

	if acct.Position == nil {
		mom := ta.PctChange(prev.Close, cur.Close)
		if mom > vol*0.5 && mom > 0.004 {
			return Decision{domain.ActionBuy, 0.55 + math.Min(vol*10, 0.3), fmt.Sprintf("momentum above %.3f vol band", vol)}
		}
		return hold()
	}

	roi := ta.PctChange(acct.Position.EntryPrice, cur.Close)
	if roi >= takeProfit {
		return Decision{domain.ActionSell, 0.85, fmt.Sprintf("adaptive take profit %.2f%%", takeProfit*100)}
	}
	if roi <= -stopLoss {
		return Decision{domain.ActionSell, 0.85, fmt.Sprintf("adaptive stop loss %.2f%%", stopLoss*100)}
	}
	return hold()
}

// trendStrategy trades a short/long moving-average crossover and exits on the
// opposite cross or a profit target.
type trendStrategy struct{}

func (s *trendStrategy) Name() string { return "trend-following" }

func (s *trendStrategy) Evaluate(prev, cur domain.Candle, acct *Account, history []domain.Candle) Decision {
	closes := closePrices(history)
	if len(closes) < 21 {
		return hold()
	}
	shortNow := ta.SMA(closes, 5)
	longNow := ta.SMA(closes, 20)
	shortPrev := ta.SMA(closes[:len(closes)-1], 5)
	longPrev := ta.SMA(closes[:len(closes)-1], 20)
	if anyNaN(shortNow, longNow, shortPrev, longPrev) {
		return hold()
	}

	crossedUp := shortPrev <= longPrev && shortNow > longNow
	crossedDown := shortPrev >= longPrev && shortNow < longNow

	if acct.Position == nil {
		if crossedUp {
			return Decision{domain.ActionBuy, 0.65, "short MA crossed above long MA"}
		}
		return hold()
	}

	roi := ta.PctChange(acct.Position.EntryPrice, cur.Close)
	if crossedDown {
		return Decision{domain.ActionSell, 0.75, "trend reversal"}
	}
	if roi >= 0.04 {
		return Decision{domain.ActionSell, 0.8, "trend profit target"}
	}
	return hold()
}

// cautiousStrategy only enters calm, volume-confirmed candles and abandons the
// position on any volatility or volume anomaly, even at a small profit.
type cautiousStrategy struct{}

func (s *cautiousStrategy) Name() string { return "risk-averse" }

func (s *cautiousStrategy) Evaluate(prev, cur domain.Candle, acct *Account, history []domain.Candle) Decision {
	closes := closePrices(history)
	volumes := tickVolumes(history)
	vol := ta.RollingVolatility(closes, 10)
	avgVol := ta.SMA(volumes, 10)
	if math.IsNaN(vol) || math.IsNaN(avgVol) || avgVol == 0 {
		return hold()
	}
	volumeRatio := cur.Volume / avgVol

	if acct.Position == nil {
		mom := ta.PctChange(prev.Close, cur.Close)
		if vol < 0.008 && volumeRatio >= 0.7 && volumeRatio <= 1.3 && mom > 0 {
			return Decision{domain.ActionBuy, 0.5, "calm market, volume confirmed"}
		}
		return hold()
	}

	roi := ta.PctChange(acct.Position.EntryPrice, cur.Close)
	if vol > 0.02 || volumeRatio > 2 {
		return Decision{domain.ActionSell, 0.95, "volatility anomaly, exiting"}
	}
	if roi >= 0.02 {
		return Decision{domain.ActionSell, 0.8, "take profit hit"}
	}
	if roi <= -0.01 {
		return Decision{domain.ActionSell, 0.9, "stop loss hit"}
	}
	return hold()
}

// meanReversionStrategy trades z-score extremes against a rolling mean.
type meanReversionStrategy struct{}

func (s *meanReversionStrategy) Name() string { return "mean-reversion" }

func (s *meanReversionStrategy) Evaluate(prev, cur domain.Candle, acct *Account, history []domain.Candle) Decision {
	closes := closePrices(history)
	z := ta.ZScore(closes, 20)
	if math.IsNaN(z) {
		return hold()
	}

	if acct.Position == nil {
		if z <= -2 {
			return Decision{domain.ActionBuy, 0.6 + math.Min(-z*0.1, 0.3), fmt.Sprintf("oversold z-score %.2f", z)}
		}
		return hold()
	}

	roi := ta.PctChange(acct.Position.EntryPrice, cur.Close)
	switch {
	case z >= 2:
		return Decision{domain.ActionSell, 0.8, fmt.Sprintf("overbought z-score %.2f", z)}
	case roi >= 0.05:
		return Decision{domain.ActionSell, 0.8, "take profit hit"}
	case roi <= -0.03:
		return Decision{domain.ActionSell, 0.9, "stop loss hit"}
	}
	return hold()
}

func closePrices(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func tickVolumes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Volume
	}
	return out
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
