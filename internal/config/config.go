// Package config loads the tgauth-server settings from an optional file and
// TGAUTH_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/spf13/viper"
)

// Config captures the server runtime parameters.
type Config struct {
	HTTPAddress         string        `mapstructure:"http_address"`
	LogLevel            string        `mapstructure:"log_level"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
	// TrustProxyHeaders takes client IPs from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`

	Redis     RedisConfig     `mapstructure:"redis"`
	Bot       BotConfig       `mapstructure:"bot"`
	Freshness FreshnessConfig `mapstructure:"freshness"`
	Replay    ReplayConfig    `mapstructure:"replay"`
	Session   SessionConfig   `mapstructure:"session"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BotConfig struct {
	Token string `mapstructure:"token"`
}

type FreshnessConfig struct {
	Window       time.Duration `mapstructure:"window"`
	StrictWindow time.Duration `mapstructure:"strict_window"`
}

type ReplayConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Backend  string `mapstructure:"backend"`
	Capacity int    `mapstructure:"capacity"`
}

type SessionConfig struct {
	TTL                 time.Duration `mapstructure:"ttl"`
	SingleActivePerUser bool          `mapstructure:"single_active_per_user"`
}

type JWTConfig struct {
	// Secret is the hex encoded HS256 key.
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
	// KeyID labels tokens signed with Secret. Required with RetiredSecrets.
	KeyID string `mapstructure:"key_id"`
	// RetiredSecrets lists "kid:hex" pairs, comma separated, whose tokens
	// are still accepted.
	RetiredSecrets string `mapstructure:"retired_secrets"`
}

type AdminConfig struct {
	// UserIDs is a comma separated list of Telegram user ids.
	UserIDs string `mapstructure:"user_ids"`
}

type RateLimitConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	// RequestsPerSecond and Burst bound the verify endpoint per client IP.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var defaults = map[string]interface{}{
	"http_address":                   ":8080",
	"log_level":                      "info",
	"shutdown_grace_period":          "10s",
	"redis.addr":                     "127.0.0.1:6379",
	"redis.password":                 "",
	"redis.db":                       0,
	"bot.token":                      "",
	"freshness.window":               "300s",
	"freshness.strict_window":        "60s",
	"replay.enabled":                 true,
	"replay.backend":                 string(tgAuth.ReplayRedis),
	"replay.capacity":                100000,
	"session.ttl":                    "24h",
	"session.single_active_per_user": false,
	"jwt.secret":                     "",
	"jwt.issuer":                     "tgauth",
	"jwt.audience":                   "",
	"jwt.key_id":                     "",
	"jwt.retired_secrets":            "",
	"admin.user_ids":                 "",
	"rate_limit.max_failures":        20,
	"rate_limit.cooldown":            "10m",
	"rate_limit.requests_per_second": 5.0,
	"rate_limit.burst":               10,
	"audit.enabled":                  true,
}

// Load reads configuration from path (optional) and the environment.
// Environment variables are prefixed with TGAUTH_ and override file values,
// e.g. TGAUTH_BOT_TOKEN or TGAUTH_REDIS_ADDR.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TGAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// AdminUserIDs parses Admin.UserIDs.
func (c Config) AdminUserIDs() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.Admin.UserIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid admin user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// VerifyKeys returns the kid-keyed HS256 secrets: the active Secret under
// KeyID plus every retired one. It returns nil when KeyID is empty and no
// secret is retired.
func (c Config) VerifyKeys(active []byte) (map[string][]byte, error) {
	kid := strings.TrimSpace(c.JWT.KeyID)
	retired := strings.TrimSpace(c.JWT.RetiredSecrets)
	if kid == "" {
		if retired != "" {
			return nil, errors.New("jwt key_id is required with retired_secrets")
		}
		return nil, nil
	}

	keys := map[string][]byte{kid: active}
	for _, pair := range strings.Split(retired, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, errors.New("retired secret entries must be kid:hex")
		}
		if _, dup := keys[id]; dup {
			return nil, fmt.Errorf("duplicate jwt kid %q", id)
		}
		key, err := hex.DecodeString(strings.TrimSpace(secret))
		if err != nil {
			return nil, fmt.Errorf("retired secret %q must be hex: %w", id, err)
		}
		keys[id] = key
	}
	return keys, nil
}

// EngineConfig maps the server settings onto a validated [tgAuth.Config].
func (c Config) EngineConfig() (tgAuth.Config, error) {
	key, err := hex.DecodeString(strings.TrimSpace(c.JWT.Secret))
	if err != nil {
		return tgAuth.Config{}, fmt.Errorf("jwt secret must be hex: %w", err)
	}
	admins, err := c.AdminUserIDs()
	if err != nil {
		return tgAuth.Config{}, err
	}
	verifyKeys, err := c.VerifyKeys(key)
	if err != nil {
		return tgAuth.Config{}, err
	}

	cfg := tgAuth.DefaultConfig()
	cfg.Bot.Token = strings.TrimSpace(c.Bot.Token)
	cfg.Freshness = tgAuth.FreshnessConfig{
		Window:       c.Freshness.Window,
		StrictWindow: c.Freshness.StrictWindow,
	}
	cfg.Replay.Enabled = c.Replay.Enabled
	cfg.Replay.Backend = tgAuth.ReplayBackend(c.Replay.Backend)
	cfg.Replay.Capacity = c.Replay.Capacity
	cfg.Session.TTL = c.Session.TTL
	cfg.Session.SingleActivePerUser = c.Session.SingleActivePerUser
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = key
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audience = c.JWT.Audience
	cfg.JWT.KeyID = strings.TrimSpace(c.JWT.KeyID)
	cfg.JWT.VerifyKeys = verifyKeys
	cfg.Admin.UserIDs = admins
	cfg.RateLimit.MaxFailures = c.RateLimit.MaxFailures
	cfg.RateLimit.Cooldown = c.RateLimit.Cooldown
	cfg.Audit.Enabled = c.Audit.Enabled

	if err := cfg.Validate(); err != nil {
		return tgAuth.Config{}, err
	}
	return cfg, nil
}
