package backtest

import (
	"math"
	"math/rand"
	"time"

	"quant-sandbox/internal/domain"
)

const (
	driftPerTick     = 0.0003
	volatilityFactor = 0.015
	wickFactor       = 0.006
	baseTickVolume   = 1_000_000
	priceFloorRatio  = 0.01
)

// Generator produces synthetic candle series from a stochastic drift/volatility
// walk. The random source is injected so callers can fix a seed and replay a
// series exactly.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Candles walks the price from the symbol's base value across [from, to) at the
// given interval. Timestamps are strictly increasing and every candle satisfies
// low <= min(open, close) <= max(open, close) <= high with positive volume.
func (g *Generator) Candles(symbol, interval string, from, to time.Time) []domain.Candle {
	step, ok := domain.IntervalDuration[interval]
	if !ok {
		step = time.Hour
	}
	base, ok := domain.BasePrice[symbol]
	if !ok {
		base = domain.DefaultBasePrice
	}
	floor := base * priceFloorRatio

	var out []domain.Candle
	price := base
	for ts := from.UTC(); ts.Before(to.UTC()); ts = ts.Add(step) {
		change := driftPerTick + volatilityFactor*g.rng.NormFloat64()
		open := price
		close := open * (1 + change)
		if close < floor {
			close = floor
		}

		hi := math.Max(open, close)
		lo := math.Min(open, close)
		high := hi * (1 + math.Abs(g.rng.NormFloat64())*wickFactor)
		low := lo * (1 - math.Abs(g.rng.NormFloat64())*wickFactor)
		if low < floor*0.5 {
			low = floor * 0.5
		}
		if low > lo {
			low = lo
		}
		if high < hi {
			high = hi
		}

		volume := baseTickVolume * (0.4 + 1.2*g.rng.Float64())

		out = append(out, domain.Candle{
			Symbol:   symbol,
			Interval: interval,
			OpenTime: ts,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
			Volume:   volume,
		})
		price = close
	}
	return out
}
