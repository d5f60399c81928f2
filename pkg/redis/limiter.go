package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:attempts:"

// AttemptLimiter is a fixed-window counter: at most limit calls to Allow per
// key within each window.
type AttemptLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewAttemptLimiter(client *redis.Client, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit. The window starts at the first attempt.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := keyPrefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("count attempt for %s: %w", key, err)
	}

	return incr.Val() <= l.limit, nil
}
