package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"quant-sandbox/internal/domain"
)

type createScenarioRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Chain       string `json:"chain" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
}

// CreateScenario godoc
// @Summary      Create a stored backtest scenario
// @Description  Generates the scenario's historical data series once; runs reuse it
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        request  body  createScenarioRequest  true  "Scenario parameters"
// @Success      201  {object}  domain.Scenario
// @Failure      400  {object}  map[string]string
// @Router       /api/scenarios [post]
func (h *Handler) CreateScenario(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.create-scenario")
	defer span.End()

	var req createScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date: " + req.StartDate})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date: " + req.EndDate})
		return
	}
	span.SetAttributes(attribute.String("chain", req.Chain))

	sc, err := h.scenarios.CreateScenario(ctx, req.Name, req.Description, req.Chain, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sc)
}

// GetScenario godoc
// @Summary      Get one scenario
// @Tags         scenarios
// @Produce      json
// @Param        id  path  string  true  "Scenario id"
// @Success      200  {object}  domain.Scenario
// @Failure      404  {object}  map[string]string
// @Router       /api/scenarios/{id} [get]
func (h *Handler) GetScenario(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-scenario")
	defer span.End()

	sc, err := h.scenarios.Scenario(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrScenarioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scenario not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sc)
}

// ListScenarios godoc
// @Summary      List scenarios, newest first
// @Tags         scenarios
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/scenarios [get]
func (h *Handler) ListScenarios(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-scenarios")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"scenarios": h.scenarios.Scenarios(ctx)})
}

type runBacktestRequest struct {
	Strategy       domain.StrategyConfig `json:"strategy" binding:"required"`
	InitialBalance float64               `json:"initial_balance"`
	AgentID        string                `json:"agent_id"`
}

// RunScenarioBacktest godoc
// @Summary      Run a parameterized strategy against a stored scenario
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        id       path  string              true  "Scenario id"
// @Param        request  body  runBacktestRequest  true  "Run parameters"
// @Success      200  {object}  domain.BacktestRun
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/scenarios/{id}/runs [post]
func (h *Handler) RunScenarioBacktest(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-scenario-backtest")
	defer span.End()

	var req runBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.scenarios.RunBacktest(ctx, c.Param("id"), req.Strategy, req.InitialBalance, req.AgentID)
	if err != nil {
		if errors.Is(err, domain.ErrScenarioNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scenario not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRun godoc
// @Summary      Get one backtest run
// @Tags         scenarios
// @Produce      json
// @Param        id  path  string  true  "Run id"
// @Success      200  {object}  domain.BacktestRun
// @Failure      404  {object}  map[string]string
// @Router       /api/runs/{id} [get]
func (h *Handler) GetRun(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-run")
	defer span.End()

	run, err := h.scenarios.Run(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListRuns godoc
// @Summary      List backtest runs, newest first
// @Tags         scenarios
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-runs")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"runs": h.scenarios.Runs(ctx)})
}

type compareRunsRequest struct {
	RunIDs []string `json:"run_ids" binding:"required"`
}

// CompareRuns godoc
// @Summary      Compare completed runs by Sharpe ratio
// @Tags         scenarios
// @Accept       json
// @Produce      json
// @Param        request  body  compareRunsRequest  true  "Run ids to compare"
// @Success      200  {object}  domain.BacktestComparison
// @Failure      400  {object}  map[string]string
// @Router       /api/runs/compare [post]
func (h *Handler) CompareRuns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.compare-runs")
	defer span.End()

	var req compareRunsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comparison, err := h.scenarios.CompareRuns(ctx, req.RunIDs)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientRuns) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least 2 resolvable completed runs are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, comparison)
}
