package tgAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tgAuth/session"
)

// SessionInfo is the safe introspection view for a session. It never carries
// token material or the payload hash.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	AuthDate  time.Time `json:"auth_date"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// ActiveSessionCount returns the number of live sessions of userID.
func (e *Engine) ActiveSessionCount(ctx context.Context, userID int64) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.sessionStore.ActiveSessionCount(ctx, userID)
	if err != nil {
		return 0, e.upstream(ctx, "session store", err)
	}
	return n, nil
}

// ListActiveSessions returns the live sessions of userID. Sessions that
// expire between listing and loading are skipped.
func (e *Engine) ListActiveSessions(ctx context.Context, userID int64) ([]SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}

	ids, err := e.sessionStore.ActiveSessionIDs(ctx, userID)
	if err != nil {
		return nil, e.upstream(ctx, "session store", err)
	}

	out := make([]SessionInfo, 0, len(ids))
	for _, sid := range ids {
		sess, err := e.sessionStore.Get(ctx, sid)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				continue
			}
			return nil, e.upstream(ctx, "session store", err)
		}
		out = append(out, toSessionInfo(sess))
	}
	return out, nil
}

// GetSessionInfo loads one session by id.
func (e *Engine) GetSessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := e.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, e.upstream(ctx, "session store", err)
	}

	info := toSessionInfo(sess)
	return &info, nil
}

// ActiveSessionEstimate returns the number of records written and not yet
// revoked. Records that expired on their own are still counted.
func (e *Engine) ActiveSessionEstimate(ctx context.Context) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.sessionStore.TotalCount(ctx)
	if err != nil {
		return 0, e.upstream(ctx, "session store", err)
	}
	return n, nil
}

// FailedVerifications returns the failure count held against ip by the
// verification throttle.
func (e *Engine) FailedVerifications(ctx context.Context, ip string) (int, error) {
	if e == nil || e.rateLimiter == nil {
		return 0, ErrEngineNotReady
	}
	if ip == "" {
		return 0, nil
	}

	n, err := e.rateLimiter.Failures(ctx, ip)
	if err != nil {
		return 0, e.upstream(ctx, "rate limiter", err)
	}
	return n, nil
}

// Health pings the backend and reports its latency.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessionStore == nil {
		return HealthStatus{}
	}

	latency, err := e.sessionStore.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// Ping checks that the session backend is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if _, err := e.sessionStore.Ping(ctx); err != nil {
		return e.upstream(ctx, "session store", err)
	}
	return nil
}

func toSessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		SessionID: sess.SessionID,
		UserID:    sess.UserID,
		Role:      sess.Role,
		AuthDate:  time.Unix(sess.AuthDate, 0).UTC(),
		CreatedAt: time.Unix(sess.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	}
}
