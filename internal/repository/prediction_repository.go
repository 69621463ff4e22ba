package repository

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/trace"

	"quant-sandbox/internal/domain"
)

const createPredictionsTable = `
CREATE TABLE IF NOT EXISTS predictions (
    id                  TEXT        PRIMARY KEY,
    opportunity_id      TEXT        NOT NULL,
    success_probability NUMERIC     NOT NULL,
    expected_return     NUMERIC     NOT NULL,
    risk_adjusted_score NUMERIC     NOT NULL,
    cluster_label       TEXT        NOT NULL,
    model_version       INT         NOT NULL,
    features            JSONB       NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_opportunity
    ON predictions (opportunity_id, created_at DESC);
`

// PredictionRepository archives emitted predictions for later outcome review.
type PredictionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPredictionRepository(pool PgxPool, tracer trace.Tracer) *PredictionRepository {
	return &PredictionRepository{pool: pool, tracer: tracer}
}

func (r *PredictionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "prediction-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPredictionsTable)
	return err
}

func (r *PredictionRepository) SavePrediction(ctx context.Context, p *domain.Prediction) error {
	_, span := r.tracer.Start(ctx, "prediction-repo.save-prediction")
	defer span.End()

	features, err := json.Marshal(p.Features)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO predictions (
    id, opportunity_id, success_probability, expected_return,
    risk_adjusted_score, cluster_label, model_version, features, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`,
		p.ID, p.OpportunityID, p.SuccessProbability, p.ExpectedReturn,
		p.RiskAdjustedScore, p.ClusterLabel, p.ModelVersion, features, p.Timestamp,
	)
	return err
}

// ListPredictions returns archived predictions newest first, filtered to one
// opportunity when opportunityID is non-empty.
func (r *PredictionRepository) ListPredictions(ctx context.Context, opportunityID string, limit int) ([]*domain.Prediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.list-predictions")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT id, opportunity_id, success_probability, expected_return,
       risk_adjusted_score, cluster_label, model_version, features, created_at
FROM predictions
WHERE ($1 = '' OR opportunity_id = $1)
ORDER BY created_at DESC
LIMIT $2`, opportunityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []*domain.Prediction
	for rows.Next() {
		p := &domain.Prediction{}
		var features []byte
		if err := rows.Scan(
			&p.ID, &p.OpportunityID, &p.SuccessProbability, &p.ExpectedReturn,
			&p.RiskAdjustedScore, &p.ClusterLabel, &p.ModelVersion, &features, &p.Timestamp,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}
