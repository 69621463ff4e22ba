package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
)

const createBacktestResultsTable = `
CREATE TABLE IF NOT EXISTS backtest_results (
    id             TEXT        PRIMARY KEY,
    status         TEXT        NOT NULL,
    symbol         TEXT        NOT NULL,
    interval       TEXT        NOT NULL,
    best_agent     TEXT        NOT NULL DEFAULT '',
    worst_agent    TEXT        NOT NULL DEFAULT '',
    total_trades   INT         NOT NULL DEFAULT 0,
    avg_return_pct NUMERIC     NOT NULL DEFAULT 0,
    error_message  TEXT        NOT NULL DEFAULT '',
    payload        JSONB       NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_backtest_results_created
    ON backtest_results (created_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BacktestRepository archives terminal quick-backtest results.
type BacktestRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBacktestRepository(pool PgxPool, tracer trace.Tracer) *BacktestRepository {
	return &BacktestRepository{pool: pool, tracer: tracer}
}

func (r *BacktestRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "backtest-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createBacktestResultsTable)
	return err
}

func (r *BacktestRepository) SaveResult(ctx context.Context, result *domain.BacktestResult) error {
	_, span := r.tracer.Start(ctx, "backtest-repo.save-result")
	defer span.End()

	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO backtest_results (
    id, status, symbol, interval, best_agent, worst_agent,
    total_trades, avg_return_pct, error_message, payload, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    best_agent = EXCLUDED.best_agent,
    worst_agent = EXCLUDED.worst_agent,
    total_trades = EXCLUDED.total_trades,
    avg_return_pct = EXCLUDED.avg_return_pct,
    error_message = EXCLUDED.error_message,
    payload = EXCLUDED.payload,
    completed_at = EXCLUDED.completed_at`,
		result.ID, result.Status, result.Request.Symbol, result.Request.Interval,
		result.BestAgent, result.WorstAgent, result.TotalTrades, result.AvgReturnPct,
		result.ErrorMessage, payload, result.CreatedAt, result.CompletedAt,
	)
	return err
}

// ListResults returns archived results, newest first.
func (r *BacktestRepository) ListResults(ctx context.Context, limit int) ([]*domain.BacktestResult, error) {
	_, span := r.tracer.Start(ctx, "backtest-repo.list-results")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT payload FROM backtest_results ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.BacktestResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		result := &domain.BacktestResult{}
		if err := json.Unmarshal(payload, result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
