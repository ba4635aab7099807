package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

// Cache memoizes Places lookups in Redis so repeat sweeps skip queries for
// facilities already resolved. Misses are cached too: a facility the API
// could not find stays not-found until the entry expires.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(ctx context.Context, host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Get returns the cached result and whether the key was present. A present
// key with a nil result is a cached not-found.
func (c *Cache) Get(ctx context.Context, key string) (*PlaceResult, bool) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("place cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var result *PlaceResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logger.Warn("place cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return result, true
}

func (c *Cache) Set(ctx context.Context, key string, result *PlaceResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn("place cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
