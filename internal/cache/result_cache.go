package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quant-sandbox/internal/domain"
)

// redisAPI is the slice of the redis client the result cache needs.
type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ResultCache keeps terminal backtest results hot for the read path.
type ResultCache struct {
	redis redisAPI
	ttl   time.Duration
}

func NewResultCache(client redisAPI, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{redis: client, ttl: ttl}
}

func (c *ResultCache) SetResult(ctx context.Context, result *domain.BacktestResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, "backtest:"+result.ID, data, c.ttl).Err()
}

// GetResult returns nil without error on a cache miss.
func (c *ResultCache) GetResult(ctx context.Context, id string) (*domain.BacktestResult, error) {
	data, err := c.redis.Get(ctx, "backtest:"+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result domain.BacktestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
