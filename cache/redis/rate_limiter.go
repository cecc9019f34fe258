// Package redis implements the shared counters backing rate limiting and
// replay protection. Both survive horizontal scaling because the state lives
// in Redis, not in process memory.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter keyed by client identifier.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *RateLimiter) redisKey(clientID string) string {
	return fmt.Sprintf("%s:ratelimit:%s", l.prefix, clientID)
}

// Allow counts one request for clientID and reports whether it is within the
// window's budget. The first request of a window sets the key expiry, so
// counters clean themselves up.
func (l *RateLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	key := l.redisKey(clientID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter incr failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limiter expire failed: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}
