package tgAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tgAuth/session"
	"go.uber.org/zap"
)

// ValidateSession accepts token only if its signature and expiry hold, its
// session record still exists, and the record belongs to the same user the
// token names.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res, err := e.validateSession(ctx, token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}
	e.metricInc(MetricValidateSuccess)
	return res, nil
}

func (e *Engine) validateSession(ctx context.Context, token string) (*AuthResult, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := e.jwtManager.ParseSession(token)
	if err != nil {
		e.logger.Debug("session token rejected", zap.Error(err))
		return nil, ErrTokenInvalid
	}

	record, err := e.sessionStore.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, e.upstream(ctx, "session store", err)
		}
		return nil, ErrSessionNotFound
	}

	if record.UserID != claims.UID {
		e.logger.Warn("session token bound to another user", zap.String("session_id", claims.SID))
		return nil, ErrTokenInvalid
	}
	if !e.now().Before(time.Unix(record.ExpiresAt, 0)) {
		return nil, ErrSessionNotFound
	}

	return &AuthResult{
		UserID:    record.UserID,
		SessionID: record.SessionID,
		Role:      record.Role,
		IssuedAt:  time.Unix(record.CreatedAt, 0),
		ExpiresAt: time.Unix(record.ExpiresAt, 0),
	}, nil
}
