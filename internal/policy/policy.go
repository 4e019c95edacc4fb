package policy

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tgAuth/internal/replay"
)

var (
	// ErrStale is returned when the payload age is outside the freshness window.
	ErrStale = errors.New("payload outside freshness window")
	// ErrReplay is returned when the payload hash was already accepted.
	ErrReplay = errors.New("payload replay detected")
)

// DefaultWindow is the freshness window applied when none is configured.
const DefaultWindow = 300 * time.Second

// Result mirrors the security_info block reported to callers.
type Result struct {
	SignatureValid  bool  `json:"signature_valid"`
	TimestampValid  bool  `json:"timestamp_valid"`
	AgeSeconds      int64 `json:"age_seconds"`
	ReplayProtected bool  `json:"replay_protected"`
}

// Evaluate computes payload age and freshness. It is pure and does not touch
// replay state; ReplayProtected is always false in its result.
func Evaluate(authDateSeconds, nowMillis, freshnessWindowSeconds int64) Result {
	age := (nowMillis - authDateSeconds*1000) / 1000
	return Result{
		AgeSeconds:     age,
		TimestampValid: age >= 0 && age <= freshnessWindowSeconds,
	}
}

// Config holds policy tuning parameters.
type Config struct {
	Window       time.Duration
	StrictWindow time.Duration
}

// Engine combines the freshness check with an optional replay guard.
type Engine struct {
	config Config
	guard  replay.Guard
}

// New creates a policy [Engine]. guard may be nil, in which case replay
// protection is reported as absent.
func New(cfg Config, guard replay.Guard) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.StrictWindow <= 0 || cfg.StrictWindow > cfg.Window {
		cfg.StrictWindow = cfg.Window
	}
	return &Engine{config: cfg, guard: guard}
}

// Window returns the freshness window for the requested level.
func (e *Engine) Window(strict bool) time.Duration {
	if strict {
		return e.config.StrictWindow
	}
	return e.config.Window
}

// Freshness evaluates authDate against now. A payload dated in the future
// has a negative age and is never fresh; the age is reported unchanged.
func (e *Engine) Freshness(authDate int64, now time.Time, strict bool) Result {
	return Evaluate(authDate, now.UnixMilli(), int64(e.Window(strict)/time.Second))
}

// Claim records hash as used. It must run only after the signature and the
// freshness check succeeded. Returns ErrReplay when hash was seen before and
// wraps guard backend errors unchanged.
func (e *Engine) Claim(ctx context.Context, hash string) (bool, error) {
	if e.guard == nil {
		return false, nil
	}
	fresh, err := e.guard.MarkSeen(ctx, hash, e.ClaimTTL())
	if err != nil {
		return false, err
	}
	if !fresh {
		return false, ErrReplay
	}
	return true, nil
}

// ClaimTTL is how long an accepted hash is remembered. It covers the widest
// window, whatever level the claim was made at.
func (e *Engine) ClaimTTL() time.Duration {
	return e.config.Window + time.Second
}

// ReplayEnabled reports whether a guard is configured.
func (e *Engine) ReplayEnabled() bool {
	return e != nil && e.guard != nil
}
