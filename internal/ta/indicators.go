package ta

import "math"

func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// SMA returns the simple moving average of the trailing window ending at the
// last element, or NaN when there is not enough data.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// ZScore returns how many standard deviations the last value sits from the
// mean of the trailing window, or NaN when the window is short or flat.
func ZScore(values []float64, period int) float64 {
	if period <= 1 || len(values) < period {
		return math.NaN()
	}
	window := values[len(values)-period:]
	mean, std := MeanStd(window)
	if std == 0 {
		return math.NaN()
	}
	return (window[len(window)-1] - mean) / std
}

// PctChange returns (current-previous)/previous, or 0 when previous is 0.
func PctChange(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous
}

// RollingVolatility is the standard deviation of tick-over-tick returns across
// the trailing window of closes, or NaN when the window is short.
func RollingVolatility(closes []float64, period int) float64 {
	if period <= 1 || len(closes) < period+1 {
		return math.NaN()
	}
	window := closes[len(closes)-period-1:]
	rets := make([]float64, 0, period)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			return math.NaN()
		}
		rets = append(rets, window[i]/window[i-1]-1)
	}
	_, std := MeanStd(rets)
	return std
}
