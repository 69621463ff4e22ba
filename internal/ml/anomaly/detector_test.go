package anomaly

import (
	"testing"
	"time"

	"quant-sandbox/internal/domain"
)

func TestShareTooFewSamples(t *testing.T) {
	d := NewDetector()
	if got := d.Share(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %f", got)
	}
	samples := [][]float64{{1, 2, 3}, {1, 2, 3}}
	if got := d.Share(samples); got != 0 {
		t.Fatalf("expected 0 below the minimum sample count, got %f", got)
	}
}

func TestShareFlagsOutliers(t *testing.T) {
	var samples [][]float64
	for i := 0; i < 200; i++ {
		samples = append(samples, []float64{0.01, 0.02, 1000 + float64(i%10)})
	}
	for i := 0; i < 5; i++ {
		samples = append(samples, []float64{0.9, 1.5, 100000})
	}

	share := NewDetector().Share(samples)
	if share < 0 || share > 1 {
		t.Fatalf("share out of range: %f", share)
	}
	if share > 0.5 {
		t.Fatalf("a mostly-uniform set should not be mostly anomalous: %f", share)
	}
}

func TestCandleSamples(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		{OpenTime: base, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000},
		{OpenTime: base.Add(time.Hour), Open: 100, High: 106, Low: 100, Close: 105, Volume: 2000},
	}

	samples := CandleSamples(candles)
	if len(samples) != 1 {
		t.Fatalf("expected one sample, got %d", len(samples))
	}
	if len(samples[0]) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(samples[0]))
	}
	if diff := samples[0][0] - 0.05; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected 5%% return, got %f", samples[0][0])
	}
	if samples[0][2] != 2000 {
		t.Fatalf("expected volume passthrough, got %f", samples[0][2])
	}
	if CandleSamples(candles[:1]) != nil {
		t.Fatal("expected nil for a single candle")
	}
}
