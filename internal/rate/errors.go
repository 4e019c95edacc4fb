package rate

import "errors"

var (
	// ErrRateLimited is returned when a client IP has exhausted its failure budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures from the limiter.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
