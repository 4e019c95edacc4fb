package tgAuth

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/tgAuth/internal/audit"
	"github.com/MrEthical07/tgAuth/internal/policy"
	"github.com/MrEthical07/tgAuth/internal/rate"
	"github.com/MrEthical07/tgAuth/internal/replay"
	"github.com/MrEthical07/tgAuth/jwt"
	"github.com/MrEthical07/tgAuth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBotToken sets the token whose derived key signs launch payloads.
func (b *Builder) WithBotToken(token string) *Builder {
	b.config.Bot.Token = token
	return b
}

// WithRedis sets the client used for sessions, replay state and throttling.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled. Without
// a sink, events are written to the logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for freshness checks and token timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- REPLAY GUARD --------
	var guard replay.Guard
	if cfg.Replay.Enabled {
		switch cfg.Replay.Backend {
		case ReplayMemory:
			guard = replay.NewMemoryGuard(cfg.Replay.Capacity, cfg.Freshness.Window+time.Second, now)
		default:
			guard = replay.NewRedisGuard(b.redis, cfg.Replay.KeyPrefix)
		}
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Session.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cloneKeys(cfg.JWT.VerifyKeys),
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		logger:     logger.Named("tgauth"),
		now:        now,
		jwtManager: jm,
		policy: policy.New(policy.Config{
			Window:       cfg.Freshness.Window,
			StrictWindow: cfg.Freshness.StrictWindow,
		}, guard),
		sessionStore: session.NewStore(b.redis, cfg.Session.KeyPrefix).WithClock(now),
		rateLimiter: rate.New(b.redis, rate.Config{
			Enabled:     cfg.RateLimit.Enabled,
			MaxFailures: cfg.RateLimit.MaxFailures,
			Cooldown:    cfg.RateLimit.Cooldown,
		}),
		metrics: NewMetrics(cfg.Metrics),
		admins:  make(map[int64]struct{}, len(cfg.Admin.UserIDs)),
	}
	for _, id := range cfg.Admin.UserIDs {
		engine.admins[id] = struct{}{}
	}

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewZapSink(engine.logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true

	return engine, nil
}
