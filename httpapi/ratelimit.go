package httpapi

import (
	"net/http"
	"sync"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterCapacity = 10_000
	limiterIdleTTL  = 10 * time.Minute
)

// IPRateLimiter applies a token bucket per client IP. Buckets idle for longer
// than ten minutes are evicted.
type IPRateLimiter struct {
	// mu makes lookup-or-create atomic so concurrent first requests from one
	// IP share a bucket.
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	logger   *zap.Logger
}

// NewIPRateLimiter returns a limiter allowing requestsPerSecond with the given
// burst per IP.
func NewIPRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger) *IPRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCapacity, nil, limiterIdleTTL),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *IPRateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
	}
	// Re-adding refreshes the idle TTL, rejected requests included.
	rl.limiters.Add(key, l)
	return l
}

// Allow reports whether a request from key may proceed.
func (rl *IPRateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Handler rejects requests over the limit with 429.
func (rl *IPRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			rl.logger.Info("rate limit exceeded",
				zap.String("client_ip", key),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Message: "Too many requests",
				Reason:  tgAuth.ReasonRateLimited,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
