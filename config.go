package tgAuth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tgAuth/internal/policy"
)

// Config holds every Engine setting. Start from [DefaultConfig].
type Config struct {
	Bot       BotConfig
	Freshness FreshnessConfig
	Replay    ReplayConfig
	Session   SessionConfig
	JWT       JWTConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
BOT CONFIG
====================================
*/

// BotConfig identifies the bot whose token signs launch payloads.
type BotConfig struct {
	Token string
}

/*
====================================
FRESHNESS CONFIG
====================================
*/

// FreshnessConfig bounds the accepted age of auth_date.
type FreshnessConfig struct {
	Window       time.Duration
	StrictWindow time.Duration
}

/*
====================================
REPLAY CONFIG
====================================
*/

// ReplayBackend selects where accepted payload hashes are remembered.
type ReplayBackend string

const (
	// ReplayRedis shares the seen-hash set across instances.
	ReplayRedis ReplayBackend = "redis"
	// ReplayMemory keeps the seen-hash set in process.
	ReplayMemory ReplayBackend = "memory"
)

// ReplayConfig controls the seen-hash set.
type ReplayConfig struct {
	Enabled   bool
	Backend   ReplayBackend
	Capacity  int
	KeyPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls issued sessions.
type SessionConfig struct {
	TTL       time.Duration
	KeyPrefix string
	// SingleActivePerUser revokes a user's earlier sessions on every issue.
	SingleActivePerUser bool
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects how session tokens are signed.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// KeyID labels minted tokens. With VerifyKeys it picks the active key.
	KeyID string
	// VerifyKeys maps kid to verification key (the shared secret for hs256,
	// the public key for ed25519). Keep retired keys here while their tokens
	// are still live.
	VerifyKeys map[string][]byte
}

/*
====================================
ADMIN CONFIG
====================================
*/

// AdminConfig lists Telegram user ids that receive [RoleAdmin] once verified.
type AdminConfig struct {
	UserIDs []int64
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig throttles clients that keep failing verification.
type RateLimitConfig struct {
	Enabled     bool
	MaxFailures int
	Cooldown    time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the recommended settings. Bot.Token and JWT keys must
// still be supplied.
func DefaultConfig() Config {
	return Config{
		Freshness: FreshnessConfig{
			Window:       policy.DefaultWindow,
			StrictWindow: 60 * time.Second,
		},
		Replay: ReplayConfig{
			Enabled:   true,
			Backend:   ReplayRedis,
			Capacity:  100_000,
			KeyPrefix: "arh",
		},
		Session: SessionConfig{
			TTL:       24 * time.Hour,
			KeyPrefix: "ts",
		},
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "tgauth",
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxFailures: 20,
			Cooldown:    10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.VerifyKeys = cloneKeys(cfg.JWT.VerifyKeys)
	if cfg.Admin.UserIDs != nil {
		out.Admin.UserIDs = append([]int64(nil), cfg.Admin.UserIDs...)
	}
	return out
}

func cloneKeys(keys map[string][]byte) map[string][]byte {
	if keys == nil {
		return nil
	}
	out := make(map[string][]byte, len(keys))
	for kid, key := range keys {
		out[kid] = cloneBytes(key)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Bot
	if strings.TrimSpace(c.Bot.Token) == "" {
		return errors.New("Bot Token is required")
	}

	// Freshness
	if c.Freshness.Window <= 0 {
		return errors.New("Freshness Window must be > 0")
	}
	if c.Freshness.StrictWindow < 0 || c.Freshness.StrictWindow > c.Freshness.Window {
		return errors.New("Freshness StrictWindow must be within [0, Window]")
	}

	// Replay
	if c.Replay.Enabled {
		switch c.Replay.Backend {
		case ReplayRedis:
			if strings.TrimSpace(c.Replay.KeyPrefix) == "" {
				return errors.New("Replay KeyPrefix must not be empty")
			}
		case ReplayMemory:
			if c.Replay.Capacity <= 0 {
				return errors.New("Replay Capacity must be > 0 for the memory backend")
			}
		default:
			return errors.New("Replay Backend must be 'redis' or 'memory'")
		}
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if strings.TrimSpace(c.Session.KeyPrefix) == "" {
		return errors.New("Session KeyPrefix must not be empty")
	}

	// JWT
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}
	if len(c.JWT.VerifyKeys) > 0 {
		if c.JWT.KeyID == "" {
			return errors.New("JWT KeyID is required with VerifyKeys")
		}
		if _, ok := c.JWT.VerifyKeys[c.JWT.KeyID]; !ok {
			return errors.New("JWT KeyID must be present in VerifyKeys")
		}
	}

	// Admin
	for _, id := range c.Admin.UserIDs {
		if id <= 0 {
			return errors.New("Admin UserIDs must be positive")
		}
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxFailures <= 0 {
			return errors.New("RateLimit MaxFailures must be > 0")
		}
		if c.RateLimit.Cooldown <= 0 {
			return errors.New("RateLimit Cooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
