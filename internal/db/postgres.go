package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is nil when DATABASE_URL is not configured; callers treat a nil pool
// as archival disabled.
var Pool *pgxpool.Pool

var (
	newPool = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
		return pgxpool.New(ctx, dsn)
	}
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

func InitPostgres(ctx context.Context, dsn string) {
	if dsn == "" {
		log.Println("DATABASE_URL not set, skipping Postgres")
		return
	}

	pool, err := newPool(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to create Postgres pool: %v", err)
	}
	if err := pingPool(ctx, pool); err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	Pool = pool
	log.Println("Connected to Postgres")
}
