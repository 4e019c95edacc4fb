package tgAuth

import (
	"time"

	internalaudit "github.com/MrEthical07/tgAuth/internal/audit"
	"github.com/MrEthical07/tgAuth/internal/policy"
	"github.com/MrEthical07/tgAuth/internal/rate"
	"github.com/MrEthical07/tgAuth/jwt"
	"github.com/MrEthical07/tgAuth/session"
	"go.uber.org/zap"
)

// Engine verifies launch payloads and manages the sessions issued for them.
type Engine struct {
	config       Config
	logger       *zap.Logger
	now          func() time.Time
	policy       *policy.Engine
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	jwtManager   *jwt.Manager
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	admins       map[int64]struct{}
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the engine's current metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ReplayProtected reports whether accepted payload hashes are remembered.
func (e *Engine) ReplayProtected() bool {
	return e != nil && e.policy.ReplayEnabled()
}

// FreshnessWindow returns the window applied at the given security level.
func (e *Engine) FreshnessWindow(securityLevel string) time.Duration {
	return e.policy.Window(securityLevel == SecurityLevelStrict)
}

// SessionTTL returns the lifetime of issued sessions.
func (e *Engine) SessionTTL() time.Duration {
	return e.config.Session.TTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) roleFor(userID int64) string {
	if _, ok := e.admins[userID]; ok {
		return RoleAdmin
	}
	return RoleUser
}
