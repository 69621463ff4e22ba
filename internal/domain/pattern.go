package domain

import "time"

// FeatureVector is the fixed 7-dimension numeric summary shared by clustering
// and prediction. Immutable once produced.
type FeatureVector struct {
	PriceVolatility  float64   `json:"price_volatility"`
	TVLChange        float64   `json:"tvl_change"`
	GasPrice         float64   `json:"gas_price"`
	AgentPerformance float64   `json:"agent_performance"`
	MarketSentiment  float64   `json:"market_sentiment"`
	LiquidityDepth   float64   `json:"liquidity_depth"`
	VolumeChange     float64   `json:"volume_change"`
	Timestamp        time.Time `json:"timestamp"`
}

// FeatureDims is the dimensionality of a FeatureVector.
const FeatureDims = 7

// FeatureNames lists the dimensions in Values() order.
var FeatureNames = []string{
	"price_volatility", "tvl_change", "gas_price", "agent_performance",
	"market_sentiment", "liquidity_depth", "volume_change",
}

// Values returns the vector's dimensions in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.PriceVolatility, f.TVLChange, f.GasPrice, f.AgentPerformance,
		f.MarketSentiment, f.LiquidityDepth, f.VolumeChange,
	}
}

// FeatureFromValues rebuilds a vector from Values() order. Short slices leave
// remaining dimensions zero.
func FeatureFromValues(v []float64, ts time.Time) FeatureVector {
	out := FeatureVector{Timestamp: ts}
	fields := []*float64{
		&out.PriceVolatility, &out.TVLChange, &out.GasPrice, &out.AgentPerformance,
		&out.MarketSentiment, &out.LiquidityDepth, &out.VolumeChange,
	}
	for i := range fields {
		if i < len(v) {
			*fields[i] = v[i]
		}
	}
	return out
}

// NeutralFeatureVector is the centroid default for empty or fallback clusters.
func NeutralFeatureVector() FeatureVector {
	return FeatureVector{
		PriceVolatility:  0.05,
		TVLChange:        0,
		GasPrice:         50,
		AgentPerformance: 50,
		MarketSentiment:  50,
		LiquidityDepth:   50,
		VolumeChange:     0,
	}
}

type ClusterLabel string

const (
	LabelBullish  ClusterLabel = "bullish"
	LabelBearish  ClusterLabel = "bearish"
	LabelSideways ClusterLabel = "sideways"
	LabelVolatile ClusterLabel = "volatile"
	LabelStable   ClusterLabel = "stable"
)

// ClusterLabels lists every label in fallback order.
var ClusterLabels = []ClusterLabel{
	LabelBullish, LabelBearish, LabelSideways, LabelVolatile, LabelStable,
}

// MarketCluster is one regime produced by a clustering run. A run replaces the
// whole cluster registry; member sets partition that run's input exactly.
type MarketCluster struct {
	ID         string        `json:"id"`
	Centroid   FeatureVector `json:"centroid"`
	Members    []string      `json:"members"`
	Label      ClusterLabel  `json:"label"`
	Confidence float64       `json:"confidence"`
}

// Prediction is an immutable scored opportunity.
type Prediction struct {
	ID                 string        `json:"id"`
	OpportunityID      string        `json:"opportunity_id"`
	SuccessProbability float64       `json:"success_probability"`
	ExpectedReturn     float64       `json:"expected_return"`
	RiskAdjustedScore  float64       `json:"risk_adjusted_score"`
	Features           FeatureVector `json:"features"`
	ClusterLabel       ClusterLabel  `json:"cluster_label"`
	ModelVersion       int           `json:"model_version"`
	Timestamp          time.Time     `json:"timestamp"`
}

// ModelWeights is an immutable weight value, replaced wholesale on every
// adaptation step. Invariant: sum of absolute values equals 1.
type ModelWeights struct {
	PriceVolatility  float64 `json:"price_volatility"`
	TVLChange        float64 `json:"tvl_change"`
	GasPrice         float64 `json:"gas_price"`
	AgentPerformance float64 `json:"agent_performance"`
	MarketSentiment  float64 `json:"market_sentiment"`
	LiquidityDepth   float64 `json:"liquidity_depth"`
	VolumeChange     float64 `json:"volume_change"`
	ClusterBonus     float64 `json:"cluster_bonus"`
}

// Values returns all 8 weights, feature dimensions first, cluster bonus last.
func (w ModelWeights) Values() []float64 {
	return []float64{
		w.PriceVolatility, w.TVLChange, w.GasPrice, w.AgentPerformance,
		w.MarketSentiment, w.LiquidityDepth, w.VolumeChange, w.ClusterBonus,
	}
}

// WeightsFromValues is the inverse of Values.
func WeightsFromValues(v []float64) ModelWeights {
	var out ModelWeights
	fields := []*float64{
		&out.PriceVolatility, &out.TVLChange, &out.GasPrice, &out.AgentPerformance,
		&out.MarketSentiment, &out.LiquidityDepth, &out.VolumeChange, &out.ClusterBonus,
	}
	for i := range fields {
		if i < len(v) {
			*fields[i] = v[i]
		}
	}
	return out
}

// ModelMetrics is recomputed wholesale after each training batch.
type ModelMetrics struct {
	Accuracy           float64   `json:"accuracy"`
	Precision          float64   `json:"precision"`
	Recall             float64   `json:"recall"`
	F1                 float64   `json:"f1"`
	TotalPredictions   int       `json:"total_predictions"`
	CorrectPredictions int       `json:"correct_predictions"`
	TrainingSetSize    int       `json:"training_set_size"`
	BenchmarkAccuracy  float64   `json:"benchmark_accuracy"`
	LastTrained        time.Time `json:"last_trained"`
	Version            int       `json:"version"`
}

// LabeledDataPoint is one training observation with its known outcome.
type LabeledDataPoint struct {
	ID       string        `json:"id"`
	Features FeatureVector `json:"features"`
	Success  bool          `json:"success"`
}

// MemoryEntry is raw agent telemetry consumed by feature extraction.
type MemoryEntry struct {
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditTransaction is one signed credit movement in an agent's history.
type CreditTransaction struct {
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketData is the optional market snapshot consumed by feature extraction.
type MarketData struct {
	Price          float64 `json:"price"`
	PreviousPrice  float64 `json:"previous_price"`
	TVL            float64 `json:"tvl"`
	PreviousTVL    float64 `json:"previous_tvl"`
	Volume         float64 `json:"volume"`
	PreviousVolume float64 `json:"previous_volume"`
	GasPrice       float64 `json:"gas_price"`
}
