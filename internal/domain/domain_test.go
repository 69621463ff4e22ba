package domain

import (
	"testing"
	"time"
)

func TestFeatureVectorValuesRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fv := FeatureVector{
		PriceVolatility:  0.07,
		TVLChange:        -3.2,
		GasPrice:         41,
		AgentPerformance: 62,
		MarketSentiment:  55,
		LiquidityDepth:   80,
		VolumeChange:     12.5,
		Timestamp:        ts,
	}

	values := fv.Values()
	if len(values) != FeatureDims {
		t.Fatalf("expected %d dims, got %d", FeatureDims, len(values))
	}
	back := FeatureFromValues(values, ts)
	if back != fv {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, fv)
	}
}

func TestModelWeightsValuesOrder(t *testing.T) {
	w := ModelWeights{
		PriceVolatility:  -0.15,
		TVLChange:        0.20,
		GasPrice:         -0.10,
		AgentPerformance: 0.20,
		MarketSentiment:  0.15,
		LiquidityDepth:   0.10,
		VolumeChange:     0.05,
		ClusterBonus:     0.05,
	}
	values := w.Values()
	if len(values) != 8 {
		t.Fatalf("expected 8 weights, got %d", len(values))
	}
	if values[0] != -0.15 || values[7] != 0.05 {
		t.Fatalf("unexpected weight order: %v", values)
	}
	if WeightsFromValues(values) != w {
		t.Fatal("weights round trip mismatch")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusRunning.Terminal() {
		t.Fatal("pending/running must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed/failed must be terminal")
	}
}

func TestRiskToleranceIsValid(t *testing.T) {
	for _, r := range []RiskTolerance{RiskConservative, RiskModerate, RiskAggressive} {
		if !r.IsValid() {
			t.Fatalf("expected %s to be valid", r)
		}
	}
	if RiskTolerance("yolo").IsValid() {
		t.Fatal("unexpected valid risk tolerance")
	}
}
