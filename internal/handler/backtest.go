package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"quant-sandbox/internal/domain"
)

type quickBacktestRequest struct {
	Symbol         string   `json:"symbol"`
	Interval       string   `json:"interval"`
	From           string   `json:"from" binding:"required"`
	To             string   `json:"to" binding:"required"`
	Agents         []string `json:"agents"`
	InitialBalance float64  `json:"initial_balance"`
}

// RunQuickBacktest godoc
// @Summary      Run a multi-agent quick backtest
// @Description  Generates a synthetic candle series and runs every requested agent strategy against it
// @Tags         backtests
// @Accept       json
// @Produce      json
// @Param        request  body  quickBacktestRequest  true  "Backtest parameters"
// @Success      200  {object}  domain.BacktestResult
// @Failure      400  {object}  map[string]string
// @Router       /api/backtests/quick [post]
func (h *Handler) RunQuickBacktest(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-quick-backtest")
	defer span.End()

	var req quickBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from, err := parseDate(req.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date: " + req.From})
		return
	}
	to, err := parseDate(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date: " + req.To})
		return
	}
	span.SetAttributes(attribute.String("symbol", req.Symbol))

	result := h.backtests.RunQuickBacktest(ctx, domain.QuickBacktestRequest{
		Symbol:         req.Symbol,
		Interval:       req.Interval,
		From:           from,
		To:             to,
		Agents:         req.Agents,
		InitialBalance: req.InitialBalance,
	})
	c.JSON(http.StatusOK, result)
}

// GetBacktest godoc
// @Summary      Get one backtest result
// @Tags         backtests
// @Produce      json
// @Param        id  path  string  true  "Result id"
// @Success      200  {object}  domain.BacktestResult
// @Failure      404  {object}  map[string]string
// @Router       /api/backtests/{id} [get]
func (h *Handler) GetBacktest(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-backtest")
	defer span.End()

	result, err := h.backtests.Result(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrResultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "backtest result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListBacktests godoc
// @Summary      List backtest results, newest first
// @Tags         backtests
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/backtests [get]
func (h *Handler) ListBacktests(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-backtests")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"results": h.backtests.Results(ctx)})
}
