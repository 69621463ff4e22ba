package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"quant-sandbox/internal/domain"
	"quant-sandbox/internal/ml/cluster"
)

type extractFeaturesRequest struct {
	MemoryEntries      []domain.MemoryEntry       `json:"memory_entries"`
	CreditTransactions []domain.CreditTransaction `json:"credit_transactions"`
	MarketData         *domain.MarketData         `json:"market_data"`
}

// ExtractFeatures godoc
// @Summary      Extract a feature vector from raw agent telemetry
// @Tags         patterns
// @Accept       json
// @Produce      json
// @Param        request  body  extractFeaturesRequest  true  "Raw telemetry"
// @Success      200  {object}  domain.FeatureVector
// @Failure      400  {object}  map[string]string
// @Router       /api/patterns/features [post]
func (h *Handler) ExtractFeatures(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.extract-features")
	defer span.End()

	var req extractFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fv := h.extractor.Extract(req.MemoryEntries, req.CreditTransactions, req.MarketData)
	c.JSON(http.StatusOK, fv)
}

type clusterRequest struct {
	Points []struct {
		ID       string               `json:"id"`
		Features domain.FeatureVector `json:"features"`
	} `json:"points" binding:"required"`
	K             int     `json:"k"`
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
}

// PerformClustering godoc
// @Summary      Recluster feature vectors into market regimes
// @Description  Replaces the whole cluster registry used for prediction
// @Tags         patterns
// @Accept       json
// @Produce      json
// @Param        request  body  clusterRequest  true  "Feature vectors and k-means options"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/patterns/cluster [post]
func (h *Handler) PerformClustering(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.perform-clustering")
	defer span.End()

	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("points", len(req.Points)))

	points := make([]cluster.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = cluster.Point{ID: p.ID, Features: p.Features}
	}
	clusters := h.predictor.Clusterize(ctx, points, cluster.Options{
		K:             req.K,
		MaxIterations: req.MaxIterations,
		Tolerance:     req.Tolerance,
	})
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

// ListClusters godoc
// @Summary      List the current market-regime clusters
// @Tags         patterns
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/patterns/clusters [get]
func (h *Handler) ListClusters(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-clusters")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"clusters": h.predictor.Clusters(ctx)})
}

type predictRequest struct {
	OpportunityID string               `json:"opportunity_id" binding:"required"`
	Features      domain.FeatureVector `json:"features" binding:"required"`
}

// Predict godoc
// @Summary      Score an opportunity's success probability
// @Tags         patterns
// @Accept       json
// @Produce      json
// @Param        request  body  predictRequest  true  "Opportunity features"
// @Success      200  {object}  domain.Prediction
// @Failure      400  {object}  map[string]string
// @Router       /api/patterns/predict [post]
func (h *Handler) Predict(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.predict")
	defer span.End()

	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("opportunity_id", req.OpportunityID))

	c.JSON(http.StatusOK, h.predictor.Predict(ctx, req.OpportunityID, req.Features))
}

type trainRequest struct {
	DataPoints []domain.LabeledDataPoint `json:"data_points" binding:"required"`
}

// Train godoc
// @Summary      Fold labeled outcomes into the prediction model
// @Tags         patterns
// @Accept       json
// @Produce      json
// @Param        request  body  trainRequest  true  "Labeled outcomes"
// @Success      200  {object}  domain.ModelMetrics
// @Failure      400  {object}  map[string]string
// @Router       /api/patterns/train [post]
func (h *Handler) Train(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.train")
	defer span.End()

	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("batch_size", len(req.DataPoints)))

	h.predictor.Train(ctx, req.DataPoints)
	c.JSON(http.StatusOK, h.predictor.Metrics(ctx))
}

// GetModelMetrics godoc
// @Summary      Get current model metrics
// @Tags         patterns
// @Produce      json
// @Success      200  {object}  domain.ModelMetrics
// @Router       /api/patterns/metrics [get]
func (h *Handler) GetModelMetrics(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-model-metrics")
	defer span.End()

	c.JSON(http.StatusOK, h.predictor.Metrics(ctx))
}

// GetModelWeights godoc
// @Summary      Get current model weights
// @Tags         patterns
// @Produce      json
// @Success      200  {object}  domain.ModelWeights
// @Router       /api/patterns/weights [get]
func (h *Handler) GetModelWeights(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-model-weights")
	defer span.End()

	c.JSON(http.StatusOK, h.predictor.Weights(ctx))
}
