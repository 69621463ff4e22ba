package domain

import "time"

// HistoricalDataPoint is one hourly observation in a scenario's generated series.
type HistoricalDataPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	TVL        float64   `json:"tvl"`
	GasPrice   float64   `json:"gas_price"`
	Volatility float64   `json:"volatility"`
}

// Scenario holds a pre-generated data series, created once and reusable across runs.
type Scenario struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Chain       string                `json:"chain"`
	StartDate   time.Time             `json:"start_date"`
	EndDate     time.Time             `json:"end_date"`
	DataPoints  []HistoricalDataPoint `json:"data_points"`
	CreatedAt   time.Time             `json:"created_at"`
}

type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

func (r RiskTolerance) IsValid() bool {
	switch r {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	}
	return false
}

// StrategyConfig parameterizes a single scenario run.
type StrategyConfig struct {
	Name            string        `json:"name"`
	RiskTolerance   RiskTolerance `json:"risk_tolerance"`
	PositionSizePct float64       `json:"position_size_pct"`
	StopLossPct     float64       `json:"stop_loss_pct"`
	TakeProfitPct   float64       `json:"take_profit_pct"`
}

// RunMetrics accumulates the same statistics as the quick backtest aggregator.
type RunMetrics struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalReturnPct float64 `json:"total_return_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
	FinalBalance   float64 `json:"final_balance"`
}

// BacktestRun references a scenario and carries its own lifecycle:
// pending -> running -> completed|failed, never revisiting a prior status.
type BacktestRun struct {
	ID             string          `json:"id"`
	ScenarioID     string          `json:"scenario_id"`
	AgentID        string          `json:"agent_id,omitempty"`
	Strategy       StrategyConfig  `json:"strategy"`
	InitialBalance float64         `json:"initial_balance"`
	Status         BacktestStatus  `json:"status"`
	Metrics        RunMetrics      `json:"metrics"`
	Decisions      []TradeDecision `json:"decisions"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// RunComparisonEntry is one run's summary inside a comparison.
type RunComparisonEntry struct {
	RunID          string  `json:"run_id"`
	StrategyName   string  `json:"strategy_name"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
}

// BacktestComparison ranks two or more completed runs by Sharpe ratio.
type BacktestComparison struct {
	Runs              []RunComparisonEntry `json:"runs"`
	BestPerformingRun string               `json:"best_performing_run"`
	BestSharpe        float64              `json:"best_sharpe"`
	ComparedAt        time.Time            `json:"compared_at"`
}
