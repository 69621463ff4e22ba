package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/backtest"
	"quant-sandbox/internal/ml/features"
	"quant-sandbox/internal/ml/predictor"
	"quant-sandbox/internal/scenario"
)

type Handler struct {
	tracer    trace.Tracer
	backtests *backtest.Service
	scenarios *scenario.Service
	extractor *features.Extractor
	predictor *predictor.Service
	apiKey    string
}

func New(
	tracer trace.Tracer,
	backtests *backtest.Service,
	scenarios *scenario.Service,
	extractor *features.Extractor,
	pred *predictor.Service,
	apiKey string,
) *Handler {
	return &Handler{
		tracer:    tracer,
		backtests: backtests,
		scenarios: scenarios,
		extractor: extractor,
		predictor: pred,
		apiKey:    apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(h.apiKey))

	api.POST("/backtests/quick", h.RunQuickBacktest)
	api.GET("/backtests", h.ListBacktests)
	api.GET("/backtests/:id", h.GetBacktest)

	api.POST("/scenarios", h.CreateScenario)
	api.GET("/scenarios", h.ListScenarios)
	api.GET("/scenarios/:id", h.GetScenario)
	api.POST("/scenarios/:id/runs", h.RunScenarioBacktest)
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:id", h.GetRun)
	api.POST("/runs/compare", h.CompareRuns)

	api.POST("/patterns/features", h.ExtractFeatures)
	api.POST("/patterns/cluster", h.PerformClustering)
	api.GET("/patterns/clusters", h.ListClusters)
	api.POST("/patterns/predict", h.Predict)
	api.POST("/patterns/train", h.Train)
	api.GET("/patterns/metrics", h.GetModelMetrics)
	api.GET("/patterns/weights", h.GetModelWeights)
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
