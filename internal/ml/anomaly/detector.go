// Package anomaly flags unusual market states with an isolation forest. The
// output feeds the backtest insight narrative, not trading decisions.
package anomaly

import (
	"math"

	"github.com/narumiruna/go-iforest/pkg/iforest"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ta"
)

const (
	// minSamples below which a forest is not worth fitting.
	minSamples = 16
	// scoreThreshold marks a sample as anomalous.
	scoreThreshold = 0.6
)

type Detector struct {
	threshold float64
}

func NewDetector() *Detector {
	return &Detector{threshold: scoreThreshold}
}

// Share fits a forest on the samples and returns the fraction scoring as
// anomalous. Too-small inputs score zero rather than erroring.
func (d *Detector) Share(samples [][]float64) float64 {
	if len(samples) < minSamples {
		return 0
	}
	model := iforest.New()
	model.Fit(samples)

	anomalous := 0
	for _, score := range model.Score(samples) {
		if score > d.threshold {
			anomalous++
		}
	}
	return float64(anomalous) / float64(len(samples))
}

// CandleSamples projects candles onto the per-tick observation the forest
// scores: relative return, relative range and volume.
func CandleSamples(candles []domain.Candle) [][]float64 {
	if len(candles) < 2 {
		return nil
	}
	samples := make([][]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1]
		cur := candles[i]
		rangeRel := 0.0
		if cur.Close > 0 {
			rangeRel = (cur.High - cur.Low) / cur.Close
		}
		samples = append(samples, []float64{
			math.Abs(ta.PctChange(prev.Close, cur.Close)),
			rangeRel,
			cur.Volume,
		})
	}
	return samples
}
