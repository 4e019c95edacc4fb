package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis failures from RedisGuard.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Guard records hashes. MarkSeen returns true when hash had not been seen
// within ttl and is now recorded, false when it is a repeat.
type Guard interface {
	MarkSeen(ctx context.Context, hash string, ttl time.Duration) (bool, error)
}

// RedisGuard is a Redis-backed [Guard].
type RedisGuard struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisGuard creates a [RedisGuard]. An empty prefix defaults to "arh".
func NewRedisGuard(redisClient redis.UniversalClient, prefix string) *RedisGuard {
	if prefix == "" {
		prefix = "arh"
	}
	return &RedisGuard{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (g *RedisGuard) key(hash string) string {
	return g.prefix + ":" + hash
}

// MarkSeen implements [Guard] with a single SET NX PX.
func (g *RedisGuard) MarkSeen(ctx context.Context, hash string, ttl time.Duration) (bool, error) {
	ok, err := g.redis.SetNX(ctx, g.key(hash), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ok, nil
}

// MemoryGuard is an in-process [Guard] bounded by capacity.
type MemoryGuard struct {
	mu    sync.Mutex
	seen  *expirable.LRU[string, time.Time]
	nowFn func() time.Time
}

// NewMemoryGuard creates a [MemoryGuard] holding at most capacity hashes,
// none longer than maxTTL. Per-entry deadlines are judged against now, which
// defaults to time.Now.
func NewMemoryGuard(capacity int, maxTTL time.Duration, now func() time.Time) *MemoryGuard {
	if capacity <= 0 {
		capacity = 1
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{
		seen:  expirable.NewLRU[string, time.Time](capacity, nil, maxTTL),
		nowFn: now,
	}
}

// MarkSeen implements [Guard]. Each entry also carries its own deadline so
// that shorter per-call TTLs are honoured.
func (g *MemoryGuard) MarkSeen(_ context.Context, hash string, ttl time.Duration) (bool, error) {
	now := g.nowFn()

	g.mu.Lock()
	defer g.mu.Unlock()

	if deadline, ok := g.seen.Get(hash); ok && now.Before(deadline) {
		return false, nil
	}
	g.seen.Add(hash, now.Add(ttl))
	return true, nil
}

// Len returns the number of tracked hashes.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.Len()
}
