package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter in Redis. A nil *Limiter allows
// everything, so deployments without Redis just skip rate limiting.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func New(rdb *redis.Client, prefix string, limit int64, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}

	redisKey := l.prefix + ":" + key
	n, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err // fail open: the limiter is protection, not a gate
	}
	if n == 1 {
		_ = l.rdb.Expire(ctx, redisKey, l.window).Err()
	}
	return n <= l.limit, nil
}
