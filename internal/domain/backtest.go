package domain

import "time"

type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
	ActionHold TradeAction = "hold"
)

type BacktestStatus string

const (
	StatusPending   BacktestStatus = "pending"
	StatusRunning   BacktestStatus = "running"
	StatusCompleted BacktestStatus = "completed"
	StatusFailed    BacktestStatus = "failed"
)

// Terminal reports whether a status can no longer transition.
func (s BacktestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TradeDecision is one entry in a run's append-only decision log.
type TradeDecision struct {
	Timestamp  time.Time   `json:"timestamp"`
	Agent      string      `json:"agent"`
	Action     TradeAction `json:"action"`
	Price      float64     `json:"price"`
	Confidence float64     `json:"confidence"`
	Rationale  string      `json:"rationale"`
}

// Position is the single open position an account may hold.
type Position struct {
	EntryPrice float64   `json:"entry_price"`
	Size       float64   `json:"size"`
	EntryTime  time.Time `json:"entry_time"`
}

// ClosedTrade records the outcome of one round trip.
type ClosedTrade struct {
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`
	ROI        float64   `json:"roi"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
}

// QuickBacktestRequest holds the parameters of a multi-agent quick backtest.
type QuickBacktestRequest struct {
	Symbol         string    `json:"symbol"`
	Interval       string    `json:"interval"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Agents         []string  `json:"agents"`
	InitialBalance float64   `json:"initial_balance"`
}

// AgentPerformance is the per-strategy breakdown of a quick backtest.
type AgentPerformance struct {
	Agent          string  `json:"agent"`
	Strategy       string  `json:"strategy"`
	Trades         int     `json:"trades"`
	WinRate        float64 `json:"win_rate"`
	TotalReturnPct float64 `json:"total_return_pct"`
	AvgTradeROIPct float64 `json:"avg_trade_roi_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	FinalBalance   float64 `json:"final_balance"`
}

// BacktestResult is created in running state and frozen once terminal.
type BacktestResult struct {
	ID               string               `json:"id"`
	Status           BacktestStatus       `json:"status"`
	Request          QuickBacktestRequest `json:"request"`
	AgentPerformance []AgentPerformance   `json:"agent_performance"`
	BestAgent        string               `json:"best_agent"`
	WorstAgent       string               `json:"worst_agent"`
	TotalTrades      int                  `json:"total_trades"`
	AvgReturnPct     float64              `json:"avg_return_pct"`
	Decisions        []TradeDecision      `json:"decisions"`
	Insights         []string             `json:"insights"`
	ErrorMessage     string               `json:"error_message,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
}
