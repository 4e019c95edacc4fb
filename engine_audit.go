package tgAuth

import (
	"context"
	"strconv"
)

const (
	auditEventVerifySuccess      = "verify_success"
	auditEventVerifyFailure      = "verify_failure"
	auditEventReplayDetected     = "replay_detected"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventSessionIssued      = "session_issued"
	auditEventSessionReplaced    = "session_replaced"
	auditEventSessionRevoked     = "session_revoked"
	auditEventRevokeAll          = "revoke_all"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if userID > 0 {
		event.UserID = strconv.FormatInt(userID, 10)
	}
	if err != nil {
		event.Reason = ReasonCode(err)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, 0, "", ErrIssueRateLimited, nil)
}
