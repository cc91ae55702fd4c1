// Package ratelimit implements fixed-window request limiting on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbusworks/nimbus/internal/domain/service"
)

const keyPrefix = "ratelimit:"

// redisRateLimiter counts requests per key in a fixed window. The counter key
// carries the window TTL, so windows reset themselves without bookkeeping.
type redisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) service.RateLimiter {
	return &redisRateLimiter{client: client}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := keyPrefix + key

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	return count.Val() <= int64(limit), nil
}

// allowAll is used when rate limiting is disabled in configuration.
type allowAll struct{}

func NewAllowAll() service.RateLimiter { return allowAll{} }

func (allowAll) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}
