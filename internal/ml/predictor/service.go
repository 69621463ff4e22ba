// Package predictor scores opportunities with a weighted linear model plus a
// cluster-membership bonus, and adapts its weights online from labeled
// outcomes.
package predictor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ml/cluster"
	"quant-sandbox/internal/ml/models/boost"
)

const (
	// minTrainingSize gates weight adaptation until enough outcomes exist.
	minTrainingSize = 10
	// metricsWindow bounds the replay used for accuracy metrics.
	metricsWindow = 100

	baseReturnPct       = 10.0
	volReturnCapPct     = 2.5
	liquidityHigh       = 60.0
	liquidityLow        = 40.0
	liquidityReturnAdj  = 1.0
	volPenaltyCap       = 30.0
	gasPenaltyThreshold = 100.0
	successThreshold    = 50.0
)

// clusterBonus maps a regime label onto a fixed signal in [-0.15, 0.15].
var clusterBonus = map[domain.ClusterLabel]float64{
	domain.LabelBullish:  0.15,
	domain.LabelStable:   0.05,
	domain.LabelSideways: 0,
	domain.LabelVolatile: -0.10,
	domain.LabelBearish:  -0.15,
}

// Observer is notified after every training batch that updates the model.
type Observer interface {
	ModelUpdated(weights domain.ModelWeights, metrics domain.ModelMetrics)
}

// Archiver persists emitted predictions outside the process. Best effort.
type Archiver interface {
	SavePrediction(ctx context.Context, p *domain.Prediction) error
}

// Service owns the model weights, the cluster registry and the accumulated
// training set. Weight values are immutable; adaptation swaps in a fresh one.
type Service struct {
	tracer      trace.Tracer
	clusterer   *cluster.Clusterer
	archiver    Archiver
	clusterOpts cluster.Options

	mu        sync.RWMutex
	weights   domain.ModelWeights
	clusters  []domain.MarketCluster
	training  []domain.LabeledDataPoint
	metrics   domain.ModelMetrics
	observers []Observer
}

// NewService builds a predictor. The cluster options steer retraining runs;
// zero values fall back to the cluster package defaults.
func NewService(tracer trace.Tracer, clusterer *cluster.Clusterer, archiver Archiver, clusterOpts cluster.Options) *Service {
	if clusterer == nil {
		clusterer = cluster.NewClusterer(nil)
	}
	k := clusterOpts.K
	if k <= 0 {
		k = cluster.DefaultK
	}
	return &Service{
		tracer:      tracer,
		clusterer:   clusterer,
		archiver:    archiver,
		clusterOpts: clusterOpts,
		weights:     DefaultWeights(),
		clusters:    cluster.DefaultClusters(k),
		metrics:     domain.ModelMetrics{Version: 1},
	}
}

// RegisterObserver subscribes to model updates. Not safe to call concurrently
// with Train.
func (s *Service) RegisterObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Clusterize replaces the whole cluster registry from the supplied vectors.
func (s *Service) Clusterize(ctx context.Context, points []cluster.Point, opts cluster.Options) []domain.MarketCluster {
	_, span := s.tracer.Start(ctx, "predictor.clusterize")
	defer span.End()

	clusters := s.clusterer.Cluster(points, opts)
	s.mu.Lock()
	s.clusters = clusters
	s.mu.Unlock()
	return clusters
}

// Predict scores one opportunity. The emitted prediction is immutable.
func (s *Service) Predict(ctx context.Context, opportunityID string, fv domain.FeatureVector) *domain.Prediction {
	ctx, span := s.tracer.Start(ctx, "predictor.predict")
	defer span.End()

	s.mu.RLock()
	weights := s.weights
	nearest := cluster.Nearest(s.clusters, fv)
	version := s.metrics.Version
	s.mu.RUnlock()

	label := domain.LabelSideways
	if nearest != nil {
		label = nearest.Label
	}

	prob := successProbability(weights, fv, label)
	p := &domain.Prediction{
		ID:                 uuid.NewString(),
		OpportunityID:      opportunityID,
		SuccessProbability: prob,
		ExpectedReturn:     expectedReturn(prob, fv),
		RiskAdjustedScore:  riskAdjustedScore(prob, fv),
		Features:           fv,
		ClusterLabel:       label,
		ModelVersion:       version,
		Timestamp:          time.Now().UTC(),
	}
	if s.archiver != nil {
		if err := s.archiver.SavePrediction(ctx, p); err != nil {
			log.Printf("prediction archive failed: %v", err)
		}
	}
	return p
}

// Train folds a batch of labeled outcomes into the model. Below the minimum
// training size the batch only accumulates; above it, weights are nudged,
// clusters retrained and metrics recomputed, and the model version advances.
func (s *Service) Train(ctx context.Context, batch []domain.LabeledDataPoint) {
	_, span := s.tracer.Start(ctx, "predictor.train")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.training = append(s.training, batch...)
	s.metrics.TrainingSetSize = len(s.training)
	if len(s.training) < minTrainingSize {
		return
	}

	var successes, failures []domain.FeatureVector
	for _, p := range s.training {
		if p.Success {
			successes = append(successes, p.Features)
		} else {
			failures = append(failures, p.Features)
		}
	}
	s.weights = adapt(s.weights, successes, failures)

	points := make([]cluster.Point, len(s.training))
	for i, p := range s.training {
		points[i] = cluster.Point{ID: p.ID, Features: p.Features}
	}
	s.clusters = s.clusterer.Cluster(points, s.clusterOpts)

	s.metrics = s.recomputeMetrics()

	for _, o := range s.observers {
		o.ModelUpdated(s.weights, s.metrics)
	}
}

// Metrics returns the current model metrics snapshot.
func (s *Service) Metrics(ctx context.Context) domain.ModelMetrics {
	_, span := s.tracer.Start(ctx, "predictor.metrics")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Weights returns the current weight value.
func (s *Service) Weights(ctx context.Context) domain.ModelWeights {
	_, span := s.tracer.Start(ctx, "predictor.weights")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// Clusters returns the current cluster registry.
func (s *Service) Clusters(ctx context.Context) []domain.MarketCluster {
	_, span := s.tracer.Start(ctx, "predictor.clusters")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusters
}

// recomputeMetrics replays the linear model over the most recent labeled
// points and benchmarks it against a boosted classifier trained on the full
// set. Called with the lock held.
func (s *Service) recomputeMetrics() domain.ModelMetrics {
	recent := s.training
	if len(recent) > metricsWindow {
		recent = recent[len(recent)-metricsWindow:]
	}

	var tp, fp, tn, fn int
	for _, p := range recent {
		label := domain.LabelSideways
		if nearest := cluster.Nearest(s.clusters, p.Features); nearest != nil {
			label = nearest.Label
		}
		predicted := successProbability(s.weights, p.Features, label) >= successThreshold
		switch {
		case predicted && p.Success:
			tp++
		case predicted && !p.Success:
			fp++
		case !predicted && !p.Success:
			tn++
		default:
			fn++
		}
	}

	m := domain.ModelMetrics{
		TotalPredictions:   len(recent),
		CorrectPredictions: tp + tn,
		TrainingSetSize:    len(s.training),
		LastTrained:        time.Now().UTC(),
		Version:            s.metrics.Version + 1,
	}
	if len(recent) > 0 {
		m.Accuracy = float64(tp+tn) / float64(len(recent))
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	if bench, err := boost.Train(s.training, boost.DefaultTrainOptions()); err == nil {
		m.BenchmarkAccuracy = bench.Accuracy(recent)
	} else {
		log.Printf("benchmark training skipped: %v", err)
	}
	return m
}

// successProbability is the weighted linear score centered at 50.
func successProbability(w domain.ModelWeights, fv domain.FeatureVector, label domain.ClusterLabel) float64 {
	raw := w.PriceVolatility*volSignal(fv.PriceVolatility) +
		w.TVLChange*deltaSignal(fv.TVLChange) +
		w.GasPrice*gasSignal(fv.GasPrice) +
		w.AgentPerformance*scoreSignal(fv.AgentPerformance) +
		w.MarketSentiment*scoreSignal(fv.MarketSentiment) +
		w.LiquidityDepth*scoreSignal(fv.LiquidityDepth) +
		w.VolumeChange*deltaSignal(fv.VolumeChange) +
		w.ClusterBonus*clusterBonus[label]
	return clamp(50+raw*50, 0, 100)
}

func expectedReturn(prob float64, fv domain.FeatureVector) float64 {
	ret := prob / 100 * baseReturnPct
	volAdj := fv.PriceVolatility * 50
	if volAdj > volReturnCapPct {
		volAdj = volReturnCapPct
	}
	ret += volAdj
	switch {
	case fv.LiquidityDepth > liquidityHigh:
		ret += liquidityReturnAdj
	case fv.LiquidityDepth < liquidityLow:
		ret -= liquidityReturnAdj
	}
	return ret
}

func riskAdjustedScore(prob float64, fv domain.FeatureVector) float64 {
	volPenalty := fv.PriceVolatility * 200
	if volPenalty > volPenaltyCap {
		volPenalty = volPenaltyCap
	}
	gasPenalty := 0.0
	if fv.GasPrice > gasPenaltyThreshold {
		gasPenalty = (fv.GasPrice - gasPenaltyThreshold) / 10
	}
	liquidityBonus := (fv.LiquidityDepth - 50) / 10
	return clamp(prob-volPenalty-gasPenalty+liquidityBonus, 0, 100)
}

// volSignal maps raw volatility onto [0,1]; it pairs with a negative weight.
func volSignal(v float64) float64 {
	return clamp(v/0.1, 0, 1)
}

// gasSignal maps gas price onto [0,1]; it pairs with a negative weight.
func gasSignal(v float64) float64 {
	return clamp(v/200, 0, 1)
}

// scoreSignal centers a 0-100 score onto [-1,1].
func scoreSignal(v float64) float64 {
	return clamp((v-50)/50, -1, 1)
}

// deltaSignal maps a signed percentage delta onto [-1,1].
func deltaSignal(v float64) float64 {
	return clamp(v/10, -1, 1)
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
