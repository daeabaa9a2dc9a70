package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by Redis, for deployments
// running more than one relay instance. Counters live under
// "ratelimit:<key>" with a TTL of one window.
type RedisLimiter struct {
	client *redis.Client
	burst  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing burst requests per window for
// each key, shared across all instances pointing at the same Redis.
func NewRedisLimiter(client *redis.Client, burst int, window time.Duration) *RedisLimiter {
	if burst < 1 {
		burst = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, burst: burst, window: window}
}

// Allow increments the window counter for key; the first hit in a window
// arms the TTL so the counter and the window expire together.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + key

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis incr: %w", err)
	}

	if incr.Val() <= int64(rl.burst) {
		return Result{OK: true}, nil
	}

	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = rl.window
	}
	retry := int(ttl.Seconds())
	if retry < 1 {
		retry = 1
	}
	return Result{OK: false, RetryAfter: retry}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
