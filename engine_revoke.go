package tgAuth

import (
	"context"
	"strconv"
)

// RevokeSession deletes one session. Revoking an unknown session is not an
// error and is neither counted nor audited.
func (e *Engine) RevokeSession(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrSessionNotFound
	}

	existed, err := e.sessionStore.Delete(ctx, sessionID)
	if err != nil {
		return e.upstream(ctx, "session store", err)
	}
	if !existed {
		return nil
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, 0, sessionID, nil, nil)
	return nil
}

// Logout validates token and revokes its session.
func (e *Engine) Logout(ctx context.Context, token string) error {
	res, err := e.ValidateSession(ctx, token)
	if err != nil {
		return err
	}
	return e.RevokeSession(ctx, res.SessionID)
}

// RevokeAllForUser deletes every session of userID and returns how many
// existed.
func (e *Engine) RevokeAllForUser(ctx context.Context, userID int64) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.sessionStore.DeleteAllForUser(ctx, userID)
	if err != nil {
		return removed, e.upstream(ctx, "session store", err)
	}

	for i := 0; i < removed; i++ {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventRevokeAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"removed": strconv.Itoa(removed)}
	})
	return removed, nil
}
