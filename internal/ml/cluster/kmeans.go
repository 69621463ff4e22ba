// Package cluster partitions feature vectors into labeled market-regime
// clusters with a plain k-means loop.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"quant-sandbox/internal/domain"
)

const (
	DefaultK             = 5
	DefaultMaxIterations = 50
	DefaultTolerance     = 1e-3

	volatileThreshold  = 0.05
	trendThreshold     = 2.0
	flatThreshold      = 0.5
	highSentiment      = 60.0
	lowSentiment       = 40.0
	confidenceDistMult = 50.0
)

// dimScales flattens the feature dimensions onto comparable ranges before the
// Euclidean distance is taken. Order matches domain.FeatureNames.
var dimScales = [domain.FeatureDims]float64{0.1, 20, 100, 100, 100, 100, 20}

// Point is one clusterable observation.
type Point struct {
	ID       string
	Features domain.FeatureVector
}

// Options tunes a clustering run. Zero values fall back to defaults.
type Options struct {
	K             int
	MaxIterations int
	Tolerance     float64
}

func (o Options) withDefaults() Options {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Clusterer owns the random source used for centroid initialization, the only
// non-deterministic step of a run.
type Clusterer struct {
	rng *rand.Rand
}

func NewClusterer(rng *rand.Rand) *Clusterer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Clusterer{rng: rng}
}

// Cluster partitions points into k labeled clusters. Member sets partition the
// input exactly. With k or fewer points it returns the default cluster set
// instead of degenerating.
func (c *Clusterer) Cluster(points []Point, opts Options) []domain.MarketCluster {
	opts = opts.withDefaults()
	if len(points) <= opts.K {
		return DefaultClusters(opts.K)
	}

	centroids := c.initCentroids(points, opts.K)
	assignments := make([]int, len(points))

	for iter := 0; iter < opts.MaxIterations; iter++ {
		for i, p := range points {
			assignments[i] = nearestCentroid(p.Features, centroids)
		}

		moved := 0.0
		for ci := range centroids {
			next := meanOf(points, assignments, ci)
			if d := Distance(centroids[ci], next); d > moved {
				moved = d
			}
			centroids[ci] = next
		}
		if moved < opts.Tolerance {
			break
		}
	}

	for i, p := range points {
		assignments[i] = nearestCentroid(p.Features, centroids)
	}

	clusters := make([]domain.MarketCluster, len(centroids))
	for ci, centroid := range centroids {
		var members []string
		distSum := 0.0
		for i, p := range points {
			if assignments[i] != ci {
				continue
			}
			members = append(members, p.ID)
			distSum += Distance(p.Features, centroid)
		}
		confidence := 50.0
		if len(members) > 0 {
			confidence = clamp(100-distSum/float64(len(members))*confidenceDistMult, 0, 100)
		}
		clusters[ci] = domain.MarketCluster{
			ID:         fmt.Sprintf("cluster-%d", ci),
			Centroid:   centroid,
			Members:    members,
			Label:      labelFor(centroid),
			Confidence: confidence,
		}
	}
	return clusters
}

// Nearest returns the registry cluster closest to fv under the same normalized
// distance clustering uses, or nil for an empty registry.
func Nearest(clusters []domain.MarketCluster, fv domain.FeatureVector) *domain.MarketCluster {
	var best *domain.MarketCluster
	bestDist := math.Inf(1)
	for i := range clusters {
		if d := Distance(fv, clusters[i].Centroid); d < bestDist {
			bestDist = d
			best = &clusters[i]
		}
	}
	return best
}

// DefaultClusters is the fallback registry used when the input is too small to
// cluster: one neutral cluster per label, cycling when k exceeds the label set.
func DefaultClusters(k int) []domain.MarketCluster {
	if k <= 0 {
		k = DefaultK
	}
	out := make([]domain.MarketCluster, k)
	for i := 0; i < k; i++ {
		label := domain.ClusterLabels[i%len(domain.ClusterLabels)]
		out[i] = domain.MarketCluster{
			ID:         fmt.Sprintf("default-%s-%d", label, i),
			Centroid:   domain.NeutralFeatureVector(),
			Label:      label,
			Confidence: 50,
		}
	}
	return out
}

// Distance is the normalized Euclidean distance between two feature vectors.
func Distance(a, b domain.FeatureVector) float64 {
	av := a.Values()
	bv := b.Values()
	sum := 0.0
	for i := 0; i < domain.FeatureDims; i++ {
		d := (av[i] - bv[i]) / dimScales[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// initCentroids samples k distinct points uniformly at random.
func (c *Clusterer) initCentroids(points []Point, k int) []domain.FeatureVector {
	perm := c.rng.Perm(len(points))
	centroids := make([]domain.FeatureVector, k)
	for i := 0; i < k; i++ {
		centroids[i] = points[perm[i]].Features
	}
	return centroids
}

func nearestCentroid(fv domain.FeatureVector, centroids []domain.FeatureVector) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := Distance(fv, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// meanOf recomputes centroid ci as the per-dimension mean of its members.
// Empty clusters reset to the neutral vector.
func meanOf(points []Point, assignments []int, ci int) domain.FeatureVector {
	sums := make([]float64, domain.FeatureDims)
	n := 0
	for i, p := range points {
		if assignments[i] != ci {
			continue
		}
		for d, v := range p.Features.Values() {
			sums[d] += v
		}
		n++
	}
	if n == 0 {
		return domain.NeutralFeatureVector()
	}
	for d := range sums {
		sums[d] /= float64(n)
	}
	return domain.FeatureFromValues(sums, time.Time{})
}

// labelFor classifies a centroid by simple threshold rules, checked in
// priority order.
func labelFor(c domain.FeatureVector) domain.ClusterLabel {
	switch {
	case c.PriceVolatility > volatileThreshold:
		return domain.LabelVolatile
	case c.TVLChange > trendThreshold && c.MarketSentiment > highSentiment:
		return domain.LabelBullish
	case c.TVLChange < -trendThreshold && c.MarketSentiment < lowSentiment:
		return domain.LabelBearish
	case math.Abs(c.TVLChange) < flatThreshold && math.Abs(c.VolumeChange) < flatThreshold:
		return domain.LabelStable
	default:
		return domain.LabelSideways
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
