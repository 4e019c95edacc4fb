package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Enabled     bool
	MaxFailures int
	Cooldown    time.Duration
}

// Limiter enforces a per-IP budget of failed verifications using Redis
// counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckVerify returns ErrRateLimited when ip has exhausted its failure budget.
// An empty ip is never throttled.
func (l *Limiter) CheckVerify(ctx context.Context, ip string) error {
	if l == nil || !l.config.Enabled || ip == "" {
		return nil
	}

	count, err := l.redis.Get(ctx, failureKey(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}

	return nil
}

// RecordFailure increments the failure counter for ip.
func (l *Limiter) RecordFailure(ctx context.Context, ip string) error {
	if l == nil || !l.config.Enabled || ip == "" {
		return nil
	}

	count, err := l.redis.Incr(ctx, failureKey(ip)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, failureKey(ip), l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxFailures) {
		return ErrRateLimited
	}
	return nil
}

// Failures returns the current failure count for ip.
func (l *Limiter) Failures(ctx context.Context, ip string) (int, error) {
	count, err := l.redis.Get(ctx, failureKey(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func failureKey(ip string) string {
	return "avf:" + ip
}
