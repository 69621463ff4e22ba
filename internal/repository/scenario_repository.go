package repository

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
)

const createScenarioTables = `
CREATE TABLE IF NOT EXISTS scenarios (
    id          TEXT        PRIMARY KEY,
    name        TEXT        NOT NULL,
    chain       TEXT        NOT NULL,
    start_date  TIMESTAMPTZ NOT NULL,
    end_date    TIMESTAMPTZ NOT NULL,
    payload     JSONB       NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_runs (
    id              TEXT        PRIMARY KEY,
    scenario_id     TEXT        NOT NULL,
    agent_id        TEXT        NOT NULL DEFAULT '',
    status          TEXT        NOT NULL,
    sharpe_ratio    NUMERIC     NOT NULL DEFAULT 0,
    total_return    NUMERIC     NOT NULL DEFAULT 0,
    error_message   TEXT        NOT NULL DEFAULT '',
    payload         JSONB       NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    completed_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_backtest_runs_scenario
    ON backtest_runs (scenario_id, created_at DESC);
`

// ScenarioRepository archives scenarios and their runs.
type ScenarioRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewScenarioRepository(pool PgxPool, tracer trace.Tracer) *ScenarioRepository {
	return &ScenarioRepository{pool: pool, tracer: tracer}
}

func (r *ScenarioRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "scenario-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createScenarioTables)
	return err
}

func (r *ScenarioRepository) SaveScenario(ctx context.Context, sc *domain.Scenario) error {
	_, span := r.tracer.Start(ctx, "scenario-repo.save-scenario")
	defer span.End()

	payload, err := json.Marshal(sc)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO scenarios (id, name, chain, start_date, end_date, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		sc.ID, sc.Name, sc.Chain, sc.StartDate, sc.EndDate, payload, sc.CreatedAt,
	)
	return err
}

func (r *ScenarioRepository) SaveRun(ctx context.Context, run *domain.BacktestRun) error {
	_, span := r.tracer.Start(ctx, "scenario-repo.save-run")
	defer span.End()

	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO backtest_runs (
    id, scenario_id, agent_id, status, sharpe_ratio, total_return,
    error_message, payload, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    sharpe_ratio = EXCLUDED.sharpe_ratio,
    total_return = EXCLUDED.total_return,
    error_message = EXCLUDED.error_message,
    payload = EXCLUDED.payload,
    completed_at = EXCLUDED.completed_at`,
		run.ID, run.ScenarioID, run.AgentID, run.Status,
		run.Metrics.SharpeRatio, run.Metrics.TotalReturnPct,
		run.ErrorMessage, payload, run.CreatedAt, run.CompletedAt,
	)
	return err
}
