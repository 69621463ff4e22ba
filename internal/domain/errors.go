package domain

import "errors"

var (
	// ErrScenarioNotFound is returned when a run references an unknown scenario id.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrRunNotFound is returned when a run id cannot be resolved.
	ErrRunNotFound = errors.New("backtest run not found")

	// ErrResultNotFound is returned when a backtest result id cannot be resolved.
	ErrResultNotFound = errors.New("backtest result not found")

	// ErrInsufficientRuns is returned when a comparison resolves fewer than two runs.
	ErrInsufficientRuns = errors.New("comparison requires at least two resolvable runs")
)
