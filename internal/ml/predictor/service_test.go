package predictor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ml/cluster"
)

type recordingObserver struct {
	updates int
	weights domain.ModelWeights
	metrics domain.ModelMetrics
}

func (o *recordingObserver) ModelUpdated(w domain.ModelWeights, m domain.ModelMetrics) {
	o.updates++
	o.weights = w
	o.metrics = m
}

type recordingArchiver struct {
	predictions []*domain.Prediction
}

func (a *recordingArchiver) SavePrediction(_ context.Context, p *domain.Prediction) error {
	a.predictions = append(a.predictions, p)
	return nil
}

func newTestService(archiver Archiver) *Service {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewService(tracer, cluster.NewClusterer(rand.New(rand.NewSource(11))), archiver, cluster.Options{})
}

func favorable() domain.FeatureVector {
	return domain.FeatureVector{
		PriceVolatility: 0.01, TVLChange: 8, GasPrice: 25,
		AgentPerformance: 85, MarketSentiment: 75, LiquidityDepth: 85, VolumeChange: 5,
	}
}

func unfavorable() domain.FeatureVector {
	return domain.FeatureVector{
		PriceVolatility: 0.09, TVLChange: -8, GasPrice: 180,
		AgentPerformance: 20, MarketSentiment: 25, LiquidityDepth: 15, VolumeChange: -5,
	}
}

func trainingBatch(n int) []domain.LabeledDataPoint {
	var batch []domain.LabeledDataPoint
	for i := 0; i < n; i++ {
		fv := favorable()
		success := i%2 == 0
		if !success {
			fv = unfavorable()
		}
		fv.TVLChange += 0.1 * float64(i)
		batch = append(batch, domain.LabeledDataPoint{
			ID:       fmt.Sprintf("dp-%d", i),
			Features: fv,
			Success:  success,
		})
	}
	return batch
}

func TestPredictBounds(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	for _, fv := range []domain.FeatureVector{favorable(), unfavorable(), domain.NeutralFeatureVector()} {
		p := svc.Predict(ctx, "opp-1", fv)
		if p.SuccessProbability < 0 || p.SuccessProbability > 100 {
			t.Fatalf("probability out of range: %f", p.SuccessProbability)
		}
		if p.RiskAdjustedScore < 0 || p.RiskAdjustedScore > 100 {
			t.Fatalf("risk-adjusted score out of range: %f", p.RiskAdjustedScore)
		}
		if p.ID == "" || p.OpportunityID != "opp-1" {
			t.Fatalf("prediction identity wrong: %+v", p)
		}
		if p.ClusterLabel == "" {
			t.Fatal("expected a cluster label from the default registry")
		}
	}
}

func TestPredictOrdersOpportunities(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	good := svc.Predict(ctx, "good", favorable())
	bad := svc.Predict(ctx, "bad", unfavorable())
	if good.SuccessProbability <= bad.SuccessProbability {
		t.Fatalf("favorable features should score higher: %f <= %f",
			good.SuccessProbability, bad.SuccessProbability)
	}
	if good.RiskAdjustedScore <= bad.RiskAdjustedScore {
		t.Fatalf("favorable features should carry less risk: %f <= %f",
			good.RiskAdjustedScore, bad.RiskAdjustedScore)
	}
}

func TestPredictArchives(t *testing.T) {
	archiver := &recordingArchiver{}
	svc := newTestService(archiver)

	svc.Predict(context.Background(), "opp-1", favorable())
	if len(archiver.predictions) != 1 {
		t.Fatalf("expected one archived prediction, got %d", len(archiver.predictions))
	}
}

func TestTrainBelowMinimumOnlyAccumulates(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	before := svc.Weights(ctx)
	svc.Train(ctx, trainingBatch(minTrainingSize-1))

	if svc.Weights(ctx) != before {
		t.Fatal("weights should not move below the minimum training size")
	}
	m := svc.Metrics(ctx)
	if m.Version != 1 {
		t.Fatalf("version should not advance, got %d", m.Version)
	}
	if m.TrainingSetSize != minTrainingSize-1 {
		t.Fatalf("expected accumulated set size %d, got %d", minTrainingSize-1, m.TrainingSetSize)
	}
}

func TestTrainUpdatesModel(t *testing.T) {
	svc := newTestService(nil)
	observer := &recordingObserver{}
	svc.RegisterObserver(observer)
	ctx := context.Background()

	svc.Train(ctx, trainingBatch(40))

	w := svc.Weights(ctx)
	sum := 0.0
	for _, v := range w.Values() {
		sum += math.Abs(v)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights must stay normalized after training, got sum %f", sum)
	}

	m := svc.Metrics(ctx)
	if m.Version != 2 {
		t.Fatalf("expected version 2 after one update, got %d", m.Version)
	}
	if m.TrainingSetSize != 40 || m.TotalPredictions != 40 {
		t.Fatalf("unexpected metric counters: %+v", m)
	}
	if m.Accuracy < 0 || m.Accuracy > 1 || m.Precision < 0 || m.Precision > 1 {
		t.Fatalf("metric rates out of range: %+v", m)
	}
	if m.LastTrained.IsZero() {
		t.Fatal("expected last-trained timestamp")
	}
	if m.BenchmarkAccuracy <= 0 {
		t.Fatalf("expected benchmark accuracy on a separable set, got %f", m.BenchmarkAccuracy)
	}

	if observer.updates != 1 {
		t.Fatalf("expected one observer notification, got %d", observer.updates)
	}
	if observer.metrics.Version != m.Version {
		t.Fatalf("observer saw stale metrics: %+v", observer.metrics)
	}

	p := svc.Predict(ctx, "opp-1", favorable())
	if p.ModelVersion != 2 {
		t.Fatalf("predictions should carry the current model version, got %d", p.ModelVersion)
	}
}

func TestTrainSeparableSetIsAccurate(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	svc.Train(ctx, trainingBatch(60))

	m := svc.Metrics(ctx)
	if m.Accuracy < 0.6 {
		t.Fatalf("linear model should separate a clean set, accuracy %f", m.Accuracy)
	}
}

func TestConfiguredClusterOptionsSteerTraining(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	svc := NewService(tracer, cluster.NewClusterer(rand.New(rand.NewSource(11))), nil, cluster.Options{K: 3})
	ctx := context.Background()

	if got := svc.Clusters(ctx); len(got) != 3 {
		t.Fatalf("expected 3 seed clusters, got %d", len(got))
	}

	svc.Train(ctx, trainingBatch(40))

	if got := svc.Clusters(ctx); len(got) != 3 {
		t.Fatalf("expected retrain to keep configured k=3, got %d clusters", len(got))
	}
}

func TestClusterizeReplacesRegistry(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	var points []cluster.Point
	for i, p := range trainingBatch(30) {
		points = append(points, cluster.Point{ID: fmt.Sprintf("p-%d", i), Features: p.Features})
	}
	clusters := svc.Clusterize(ctx, points, cluster.Options{K: 2})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	got := svc.Clusters(ctx)
	if len(got) != 2 || got[0].ID != clusters[0].ID {
		t.Fatalf("registry not replaced: %+v", got)
	}
}
