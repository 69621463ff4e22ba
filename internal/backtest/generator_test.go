package backtest

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestGeneratorCandleInvariants(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(7)))
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(72 * time.Hour)

	candles := gen.Candles("BTC-USD", "1h", from, to)
	if len(candles) != 72 {
		t.Fatalf("expected 72 candles, got %d", len(candles))
	}

	for i, c := range candles {
		lo := math.Min(c.Open, c.Close)
		hi := math.Max(c.Open, c.Close)
		if c.Low > lo || c.High < hi {
			t.Fatalf("candle %d violates low<=min(o,c)<=max(o,c)<=high: %+v", i, c)
		}
		if c.Low <= 0 || c.Close <= 0 {
			t.Fatalf("candle %d has non-positive price: %+v", i, c)
		}
		if c.Volume <= 0 {
			t.Fatalf("candle %d has non-positive volume: %+v", i, c)
		}
		if i > 0 {
			if !c.OpenTime.After(candles[i-1].OpenTime) {
				t.Fatalf("timestamps not strictly increasing at %d", i)
			}
			if c.Open != candles[i-1].Close {
				t.Fatalf("candle %d open %.4f != previous close %.4f", i, c.Open, candles[i-1].Close)
			}
		}
	}
}

func TestGeneratorSeededReplay(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	a := NewGenerator(rand.New(rand.NewSource(42))).Candles("ETH-USD", "1h", from, to)
	b := NewGenerator(rand.New(rand.NewSource(42))).Candles("ETH-USD", "1h", from, to)
	if len(a) != len(b) {
		t.Fatalf("seeded runs differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded runs diverge at candle %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGeneratorUnknownSymbolAndInterval(t *testing.T) {
	gen := NewGenerator(rand.New(rand.NewSource(1)))
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	candles := gen.Candles("WHAT-USD", "bogus", from, from.Add(5*time.Hour))
	if len(candles) != 5 {
		t.Fatalf("expected hourly fallback to yield 5 candles, got %d", len(candles))
	}
	if candles[0].Open != 10.0 {
		t.Fatalf("expected default base price walk, got open %.2f", candles[0].Open)
	}
}
