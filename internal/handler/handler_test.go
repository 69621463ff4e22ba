package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/backtest"
	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/insight"
	"quant-sandbox/internal/ml/cluster"
	"quant-sandbox/internal/ml/features"
	"quant-sandbox/internal/ml/predictor"
	"quant-sandbox/internal/scenario"
	"quant-sandbox/internal/store"
)

type noopNarrator struct{}

func (noopNarrator) Insights(_ context.Context, _ insight.Stats) []string {
	return []string{"test insight"}
}

func newTestRouter(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")

	backtests := backtest.NewService(
		tracer,
		backtest.NewGenerator(rand.New(rand.NewSource(17))),
		noopNarrator{},
		nil,
		store.NewResultStore(),
		nil,
		nil,
		backtest.Defaults{},
	)
	scenarios := scenario.NewService(
		tracer,
		scenario.NewDataGenerator(rand.New(rand.NewSource(17))),
		store.NewScenarioStore(),
		store.NewRunStore(),
		nil,
	)
	pred := predictor.NewService(tracer, cluster.NewClusterer(rand.New(rand.NewSource(17))), nil, cluster.Options{})

	h := New(tracer, backtests, scenarios, features.NewExtractor(), pred, apiKey)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter("")
	w := doJSON(t, r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid health payload: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "quant-sandbox" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	r := newTestRouter("secret")

	if w := doJSON(t, r, http.MethodGet, "/api/backtests", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/backtests", nil, map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/backtests", nil, map[string]string{"X-API-Key": "secret"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("health should bypass auth, got %d", w.Code)
	}
}

func TestRunQuickBacktestEndpoint(t *testing.T) {
	r := newTestRouter("")

	w := doJSON(t, r, http.MethodPost, "/api/backtests/quick", map[string]any{
		"symbol":          "BTC-USD",
		"interval":        "1h",
		"from":            "2024-01-01",
		"to":              "2024-01-02",
		"agents":          []string{"Atlas", "Sentinel"},
		"initial_balance": 10000,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.BacktestResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if result.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.ErrorMessage)
	}
	if len(result.AgentPerformance) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(result.AgentPerformance))
	}

	got := doJSON(t, r, http.MethodGet, "/api/backtests/"+result.ID, nil, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("expected 200 on lookup, got %d", got.Code)
	}
}

func TestRunQuickBacktestBadDates(t *testing.T) {
	r := newTestRouter("")

	w := doJSON(t, r, http.MethodPost, "/api/backtests/quick", map[string]any{
		"from": "not-a-date",
		"to":   "2024-01-02",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetBacktestNotFound(t *testing.T) {
	r := newTestRouter("")
	if w := doJSON(t, r, http.MethodGet, "/api/backtests/missing", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestScenarioLifecycleEndpoints(t *testing.T) {
	r := newTestRouter("")

	w := doJSON(t, r, http.MethodPost, "/api/scenarios", map[string]any{
		"name":       "eth week",
		"chain":      "ethereum",
		"start_date": "2025-06-01",
		"end_date":   "2025-06-08",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sc domain.Scenario
	if err := json.Unmarshal(w.Body.Bytes(), &sc); err != nil {
		t.Fatalf("parse scenario: %v", err)
	}

	runBody := map[string]any{
		"strategy": map[string]any{
			"name":              "moderate-1",
			"risk_tolerance":    "moderate",
			"position_size_pct": 50,
			"stop_loss_pct":     5,
			"take_profit_pct":   10,
		},
		"initial_balance": 10000,
		"agent_id":        "a1",
	}
	runW := doJSON(t, r, http.MethodPost, "/api/scenarios/"+sc.ID+"/runs", runBody, nil)
	if runW.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", runW.Code, runW.Body.String())
	}
	var run domain.BacktestRun
	if err := json.Unmarshal(runW.Body.Bytes(), &run); err != nil {
		t.Fatalf("parse run: %v", err)
	}
	if run.Status != domain.StatusCompleted {
		t.Fatalf("expected completed run, got %s (%s)", run.Status, run.ErrorMessage)
	}

	if w := doJSON(t, r, http.MethodPost, "/api/scenarios/missing/runs", runBody, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown scenario, got %d", w.Code)
	}
}

func TestCompareRunsInsufficient(t *testing.T) {
	r := newTestRouter("")

	w := doJSON(t, r, http.MethodPost, "/api/runs/compare", map[string]any{
		"run_ids": []string{"ghost-1", "ghost-2"},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPatternEndpoints(t *testing.T) {
	r := newTestRouter("")

	w := doJSON(t, r, http.MethodPost, "/api/patterns/features", map[string]any{
		"market_data": map[string]any{
			"price": 105, "previous_price": 100,
			"tvl": 110000000, "previous_tvl": 100000000,
			"volume": 900000, "previous_volume": 1000000,
			"gas_price": 72,
		},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from features, got %d: %s", w.Code, w.Body.String())
	}
	var fv domain.FeatureVector
	if err := json.Unmarshal(w.Body.Bytes(), &fv); err != nil {
		t.Fatalf("parse features: %v", err)
	}
	if fv.GasPrice != 72 {
		t.Fatalf("unexpected feature vector: %+v", fv)
	}

	predW := doJSON(t, r, http.MethodPost, "/api/patterns/predict", map[string]any{
		"opportunity_id": "opp-1",
		"features":       fv,
	}, nil)
	if predW.Code != http.StatusOK {
		t.Fatalf("expected 200 from predict, got %d: %s", predW.Code, predW.Body.String())
	}
	var pred domain.Prediction
	if err := json.Unmarshal(predW.Body.Bytes(), &pred); err != nil {
		t.Fatalf("parse prediction: %v", err)
	}
	if pred.SuccessProbability < 0 || pred.SuccessProbability > 100 {
		t.Fatalf("probability out of range: %f", pred.SuccessProbability)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/patterns/weights", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 from weights, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/patterns/metrics", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/patterns/clusters", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 from clusters, got %d", w.Code)
	}
}

func TestClusterEndpointFallback(t *testing.T) {
	r := newTestRouter("")

	points := make([]map[string]any, 5)
	for i := range points {
		points[i] = map[string]any{"id": "p", "features": domain.NeutralFeatureVector()}
	}
	w := doJSON(t, r, http.MethodPost, "/api/patterns/cluster", map[string]any{
		"points": points,
		"k":      5,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Clusters []domain.MarketCluster `json:"clusters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse clusters: %v", err)
	}
	if len(body.Clusters) != 5 {
		t.Fatalf("expected 5 default clusters, got %d", len(body.Clusters))
	}
	for _, cl := range body.Clusters {
		if cl.Confidence != 50 {
			t.Fatalf("expected fallback confidence 50, got %f", cl.Confidence)
		}
	}
}

func TestTrainEndpoint(t *testing.T) {
	r := newTestRouter("")

	var dps []domain.LabeledDataPoint
	for i := 0; i < 20; i++ {
		fv := domain.NeutralFeatureVector()
		fv.TVLChange = float64(i)
		dps = append(dps, domain.LabeledDataPoint{ID: "dp", Features: fv, Success: i%2 == 0})
	}
	w := doJSON(t, r, http.MethodPost, "/api/patterns/train", map[string]any{"data_points": dps}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var m domain.ModelMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("parse metrics: %v", err)
	}
	if m.Version != 2 || m.TrainingSetSize != 20 {
		t.Fatalf("unexpected metrics after training: %+v", m)
	}
}
