package predictor

import (
	"math"

	"quant-sandbox/internal/domain"
)

// learningRate is the fixed nudge applied per adaptation step. Weights move by
// the sign of the success/failure mean difference, never its magnitude.
const learningRate = 0.02

// DefaultWeights is the starting model: volatility and gas cost hurt an
// opportunity, everything else helps. Absolute values sum to 1.
func DefaultWeights() domain.ModelWeights {
	return domain.ModelWeights{
		PriceVolatility:  -0.15,
		TVLChange:        0.20,
		GasPrice:         -0.10,
		AgentPerformance: 0.20,
		MarketSentiment:  0.15,
		LiquidityDepth:   0.10,
		VolumeChange:     0.05,
		ClusterBonus:     0.05,
	}
}

// normalize rescales so absolute values sum to 1. A degenerate all-zero weight
// value resets to the defaults.
func normalize(w domain.ModelWeights) domain.ModelWeights {
	values := w.Values()
	sum := 0.0
	for _, v := range values {
		sum += math.Abs(v)
	}
	if sum == 0 {
		return DefaultWeights()
	}
	for i := range values {
		values[i] /= sum
	}
	return domain.WeightsFromValues(values)
}

// adapt nudges each feature weight toward the dimensions that separate
// successful outcomes from failed ones, then renormalizes. The input value is
// never mutated.
func adapt(w domain.ModelWeights, successes, failures []domain.FeatureVector) domain.ModelWeights {
	if len(successes) == 0 || len(failures) == 0 {
		return w
	}
	successMean := dimensionMeans(successes)
	failureMean := dimensionMeans(failures)

	values := w.Values()
	for d := 0; d < domain.FeatureDims; d++ {
		diff := successMean[d] - failureMean[d]
		switch {
		case diff > 0:
			values[d] += learningRate
		case diff < 0:
			values[d] -= learningRate
		}
	}
	return normalize(domain.WeightsFromValues(values))
}

func dimensionMeans(vectors []domain.FeatureVector) []float64 {
	means := make([]float64, domain.FeatureDims)
	for _, fv := range vectors {
		for d, v := range fv.Values() {
			means[d] += v
		}
	}
	for d := range means {
		means[d] /= float64(len(vectors))
	}
	return means
}
