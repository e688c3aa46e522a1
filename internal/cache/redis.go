package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/metrics"
	"github.com/doclens/doclens/internal/models"
)

const redisKeyPrefix = "doclens:answer:"

// RedisCache is a Redis-backed answer cache for multi-process deployments.
// Expiry is enforced server-side; capacity is left to Redis' own maxmemory
// policy. Any Redis failure degrades to a cache miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedisCache connects to Redis at the given URL and returns a RedisCache.
func NewRedisCache(url string, ttl time.Duration, log *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, log: log}, nil
}

// Get returns the cached answer for key, or ok=false on miss, decode failure,
// or Redis error.
func (c *RedisCache) Get(ctx context.Context, key string) (*models.Answer, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("redis cache read failed, treating as miss")
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}

	var answer models.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.log.WithError(err).Warn("corrupt cache entry, treating as miss")
		c.client.Del(ctx, redisKeyPrefix+key)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	metrics.CacheHits.Inc()

	return &answer, true
}

// Set stores an answer under key with the configured TTL. Failures are
// logged and otherwise ignored; the next request recomputes.
func (c *RedisCache) Set(ctx context.Context, key string, answer *models.Answer) {
	data, err := json.Marshal(answer)
	if err != nil {
		c.log.WithError(err).Warn("marshaling answer for cache")
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("redis cache write failed")
	}
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
