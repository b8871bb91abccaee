package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/payhuk02/emarzona/internal/config"
)

const (
	rateLimitPrefix = "ratelimit:"
	rateLimitWindow = time.Minute
)

// RateLimit is the outcome of one Allow call
type RateLimit struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts requests per key in fixed one-minute windows
type RateLimiter struct {
	client *Client
	limit  int
}

// NewRateLimiter creates a new rate limiter allowing
// requests_per_minute + burst requests per window.
func NewRateLimiter(client *Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  cfg.RequestsPerMinute + cfg.Burst,
	}
}

// Allow records one request for key and reports whether it is within the limit
func (r *RateLimiter) Allow(ctx context.Context, key string) (RateLimit, error) {
	now := time.Now()
	windowStart := now.Truncate(rateLimitWindow)
	fullKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowStart.Unix())

	pipe := r.client.rdb.TxPipeline()
	pipe.SetNX(ctx, fullKey, 0, rateLimitWindow)
	incr := pipe.Incr(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimit{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(incr.Val())
	return RateLimit{
		Allowed:   count <= r.limit,
		Limit:     r.limit,
		Remaining: max(r.limit-count, 0),
		ResetAt:   windowStart.Add(rateLimitWindow),
	}, nil
}
