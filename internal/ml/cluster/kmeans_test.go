package cluster

import (
	"fmt"
	"math/rand"
	"testing"

	"quant-sandbox/internal/domain"
)

func regimePoint(id string, vol, tvl, sentiment float64) Point {
	return Point{
		ID: id,
		Features: domain.FeatureVector{
			PriceVolatility:  vol,
			TVLChange:        tvl,
			GasPrice:         50,
			AgentPerformance: 50,
			MarketSentiment:  sentiment,
			LiquidityDepth:   50,
			VolumeChange:     tvl / 2,
		},
	}
}

// Two well-separated regimes plus noise around each.
func twoRegimes() []Point {
	var points []Point
	for i := 0; i < 10; i++ {
		points = append(points, regimePoint(fmt.Sprintf("bull-%d", i), 0.01, 8+0.1*float64(i), 80))
	}
	for i := 0; i < 10; i++ {
		points = append(points, regimePoint(fmt.Sprintf("bear-%d", i), 0.01, -8-0.1*float64(i), 20))
	}
	return points
}

func TestClusterPartitionsInputExactly(t *testing.T) {
	points := twoRegimes()
	clusters := NewClusterer(rand.New(rand.NewSource(7))).Cluster(points, Options{K: 2})

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	seen := map[string]int{}
	for _, cl := range clusters {
		for _, id := range cl.Members {
			seen[id]++
		}
	}
	if len(seen) != len(points) {
		t.Fatalf("membership covered %d of %d points", len(seen), len(points))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("point %s assigned %d times", id, n)
		}
	}
}

func TestClusterLabelsSeparatedRegimes(t *testing.T) {
	clusters := NewClusterer(rand.New(rand.NewSource(7))).Cluster(twoRegimes(), Options{K: 2})

	labels := map[domain.ClusterLabel]bool{}
	for _, cl := range clusters {
		labels[cl.Label] = true
		if cl.Confidence < 0 || cl.Confidence > 100 {
			t.Fatalf("confidence out of range: %f", cl.Confidence)
		}
	}
	if !labels[domain.LabelBullish] || !labels[domain.LabelBearish] {
		t.Fatalf("expected bullish and bearish clusters, got %v", labels)
	}
}

func TestClusterFallsBackOnSmallInput(t *testing.T) {
	identical := make([]Point, 5)
	for i := range identical {
		identical[i] = Point{ID: fmt.Sprintf("p-%d", i), Features: domain.NeutralFeatureVector()}
	}

	clusters := NewClusterer(rand.New(rand.NewSource(1))).Cluster(identical, Options{K: 5})
	if len(clusters) != 5 {
		t.Fatalf("expected 5 default clusters, got %d", len(clusters))
	}
	seenLabels := map[domain.ClusterLabel]bool{}
	for _, cl := range clusters {
		if cl.Confidence != 50 {
			t.Fatalf("default cluster confidence should be 50, got %f", cl.Confidence)
		}
		if len(cl.Members) != 0 {
			t.Fatalf("default clusters carry no members, got %v", cl.Members)
		}
		seenLabels[cl.Label] = true
	}
	if len(seenLabels) != len(domain.ClusterLabels) {
		t.Fatalf("expected one cluster per label, got %v", seenLabels)
	}
}

func TestClusterDeterministicWithSeed(t *testing.T) {
	points := twoRegimes()
	a := NewClusterer(rand.New(rand.NewSource(99))).Cluster(points, Options{K: 2})
	b := NewClusterer(rand.New(rand.NewSource(99))).Cluster(points, Options{K: 2})

	for i := range a {
		if a[i].Label != b[i].Label || a[i].Confidence != b[i].Confidence {
			t.Fatalf("seeded runs diverged at cluster %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNearest(t *testing.T) {
	clusters := []domain.MarketCluster{
		{ID: "a", Centroid: regimePoint("", 0.01, 8, 80).Features, Label: domain.LabelBullish},
		{ID: "b", Centroid: regimePoint("", 0.01, -8, 20).Features, Label: domain.LabelBearish},
	}
	got := Nearest(clusters, regimePoint("", 0.01, 7, 75).Features)
	if got == nil || got.ID != "a" {
		t.Fatalf("expected cluster a, got %+v", got)
	}
	if Nearest(nil, domain.NeutralFeatureVector()) != nil {
		t.Fatal("expected nil for empty registry")
	}
}

func TestLabelRules(t *testing.T) {
	cases := []struct {
		fv   domain.FeatureVector
		want domain.ClusterLabel
	}{
		{domain.FeatureVector{PriceVolatility: 0.09}, domain.LabelVolatile},
		{domain.FeatureVector{TVLChange: 5, MarketSentiment: 70}, domain.LabelBullish},
		{domain.FeatureVector{TVLChange: -5, MarketSentiment: 30}, domain.LabelBearish},
		{domain.FeatureVector{TVLChange: 0.1, VolumeChange: 0.1, MarketSentiment: 50}, domain.LabelStable},
		{domain.FeatureVector{TVLChange: 1, VolumeChange: 3, MarketSentiment: 50}, domain.LabelSideways},
	}
	for i, c := range cases {
		if got := labelFor(c.fv); got != c.want {
			t.Fatalf("case %d: expected %s, got %s", i, c.want, got)
		}
	}
}

func TestDistanceNormalization(t *testing.T) {
	a := domain.NeutralFeatureVector()

	b := a
	b.GasPrice += 100
	c := a
	c.PriceVolatility += 0.1

	if d1, d2 := Distance(a, b), Distance(a, c); d1 != d2 {
		t.Fatalf("one scale unit should cost the same in every dimension: %f vs %f", d1, d2)
	}
	if Distance(a, a) != 0 {
		t.Fatal("distance to self should be zero")
	}
}
