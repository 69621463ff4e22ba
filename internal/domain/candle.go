package domain

import "time"

// Candle represents a single OHLCV candle for an asset at a given interval.
// Generated candles always satisfy low <= min(open, close) <= max(open, close) <= high.
type Candle struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// BasePrice maps symbols to the starting price the synthetic generator walks from.
// Unknown symbols fall back to DefaultBasePrice.
var BasePrice = map[string]float64{
	"BTC-USD":  45000,
	"ETH-USD":  2500,
	"SOL-USD":  100,
	"AVAX-USD": 35,
	"LINK-USD": 15,
	"ARB-USD":  1.2,
	"OP-USD":   2.4,
}

const DefaultBasePrice = 10.0

// IntervalDuration maps candle intervals to their tick duration.
var IntervalDuration = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// SupportedIntervals lists the candle intervals the generator accepts.
var SupportedIntervals = []string{"5m", "15m", "1h", "4h", "1d"}
