package tgAuth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/MrEthical07/tgAuth/internal/policy"
	"github.com/MrEthical07/tgAuth/internal/rate"
	"github.com/MrEthical07/tgAuth/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerifyInitData runs the stateless checks on raw: parse, signature against
// botToken, freshness against window at now, and identity extraction. It has
// no side effects. The returned result is filled in as far as the checks got,
// also on failure.
func VerifyInitData(raw, botToken string, window time.Duration, now time.Time) (*VerifiedIdentity, SecurityCheckResult, error) {
	pol := policy.New(policy.Config{Window: window}, nil)
	v, err := verifyPayload(pol, raw, botToken, now, false)
	if err != nil {
		return nil, v.Security, err
	}
	return v.Identity, v.Security, nil
}

func verifyPayload(pol *policy.Engine, raw, botToken string, now time.Time, strict bool) (Verification, error) {
	v := Verification{Security: SecurityCheckResult{AgeSeconds: -1}}

	if raw == "" {
		return v, ErrMissingPayload
	}

	payload, err := initdata.Parse(raw)
	if err != nil {
		return v, err
	}

	if err := initdata.Verify(payload.Fields, payload.Hash, botToken); err != nil {
		return v, err
	}
	v.Security.SignatureValid = true
	v.Hash = payload.Hash

	if !payload.HasAuthDate() {
		return v, fmt.Errorf("%w: auth_date missing", ErrStalePayload)
	}
	v.AuthDate = time.Unix(payload.AuthDate, 0)
	fresh := pol.Freshness(payload.AuthDate, now, strict)
	v.Security.AgeSeconds = fresh.AgeSeconds
	v.Security.TimestampValid = fresh.TimestampValid
	if !fresh.TimestampValid {
		return v, ErrStalePayload
	}

	if payload.User == nil {
		return v, ErrMalformedUser
	}
	identity := *payload.User
	v.Identity = &identity

	return v, nil
}

// Verify checks raw against the configured bot token and freshness window
// without claiming it in the replay guard or creating a session. The returned
// Verification is never nil; on failure it reports how far the checks got.
func (e *Engine) Verify(ctx context.Context, raw string, opts VerifyOptions) (*Verification, error) {
	if e == nil {
		return &Verification{Security: SecurityCheckResult{AgeSeconds: -1}}, ErrEngineNotReady
	}
	v, err := verifyPayload(e.policy, raw, e.config.Bot.Token, e.now(), opts.strict())
	return &v, err
}

// IssueSession verifies raw and, on success, claims its hash in the replay
// guard and returns a new session token bound to the verified user.
//
// Checks run in order and stop at the first failure: throttle, parse,
// signature, freshness, identity, replay. Failures of the payload checks
// count against the caller's IP (see [WithClientIP]).
func (e *Engine) IssueSession(ctx context.Context, raw string, opts VerifyOptions) (*IssueResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricIssueLatency, time.Since(start)) }()
	}
	return e.issueSession(ctx, raw, opts)
}

func (e *Engine) issueSession(ctx context.Context, raw string, opts VerifyOptions) (*IssueResult, error) {
	ip := clientIPFromContext(ctx)

	if err := e.rateLimiter.CheckVerify(ctx, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.emitRateLimit(ctx)
			e.logger.Debug("verification throttled", zap.String("ip", ip))
			return nil, ErrIssueRateLimited
		}
		return nil, e.upstream(ctx, "rate limiter", err)
	}

	v, err := e.Verify(ctx, raw, opts)
	if err != nil {
		e.recordVerifyFailure(ctx, ip, v, opts, err)
		return nil, err
	}

	protected, err := e.policy.Claim(ctx, v.Hash)
	if err != nil {
		if errors.Is(err, policy.ErrReplay) {
			e.metricInc(MetricReplayDetected)
			e.recordVerifyFailure(ctx, ip, v, opts, ErrReplayDetected)
			return nil, ErrReplayDetected
		}
		return nil, e.upstream(ctx, "replay guard", err)
	}
	v.Security.ReplayProtected = protected

	identity := *v.Identity
	role := e.roleFor(identity.ID)
	sid := uuid.NewString()

	minted, err := e.jwtManager.CreateSession(identity.ID, sid, role)
	if err != nil {
		e.logger.Error("session token signing failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	record := &session.Session{
		SessionID:   sid,
		UserID:      identity.ID,
		Role:        role,
		AuthDate:    v.AuthDate.Unix(),
		PayloadHash: sha256.Sum256([]byte(v.Hash)),
		CreatedAt:   minted.IssuedAt.Unix(),
		ExpiresAt:   minted.ExpiresAt.Unix(),
	}

	replaced := 0
	if e.config.Session.SingleActivePerUser {
		replaced, err = e.sessionStore.Replace(ctx, record, e.config.Session.TTL)
	} else {
		err = e.sessionStore.Save(ctx, record, e.config.Session.TTL)
	}
	if err != nil {
		return nil, e.upstream(ctx, "session store", err)
	}

	e.metricInc(MetricVerifySuccess)
	e.metricInc(MetricSessionIssued)
	if replaced > 0 {
		for i := 0; i < replaced; i++ {
			e.metricInc(MetricSessionReplaced)
		}
		e.emitAudit(ctx, auditEventSessionReplaced, true, identity.ID, sid, nil, func() map[string]string {
			return map[string]string{"replaced": strconv.Itoa(replaced)}
		})
	}
	e.emitAudit(ctx, auditEventSessionIssued, true, identity.ID, sid, nil, func() map[string]string {
		return map[string]string{
			"role":        role,
			"age_seconds": strconv.FormatInt(v.Security.AgeSeconds, 10),
			"level":       securityLevelLabel(opts),
		}
	})
	e.logger.Info("session issued",
		zap.Int64("user_id", identity.ID),
		zap.String("session_id", sid),
		zap.String("role", role),
	)

	return &IssueResult{
		Identity: identity,
		Session: SessionToken{
			Token:     minted.Token,
			UserID:    identity.ID,
			SessionID: sid,
			Role:      role,
			IssuedAt:  minted.IssuedAt,
			ExpiresAt: minted.ExpiresAt,
		},
		Security: v.Security,
		Replaced: replaced,
	}, nil
}

func (e *Engine) recordVerifyFailure(ctx context.Context, ip string, v *Verification, opts VerifyOptions, err error) {
	kind := KindOf(err)

	e.metricInc(MetricVerifyFailure)
	switch kind {
	case KindMissingHash:
		e.metricInc(MetricMissingHash)
	case KindSignatureInvalid:
		e.metricInc(MetricSignatureInvalid)
	case KindStalePayload:
		e.metricInc(MetricStalePayload)
	case KindMalformedUser:
		e.metricInc(MetricMalformedUser)
	}

	if rlErr := e.rateLimiter.RecordFailure(ctx, ip); rlErr != nil {
		e.logger.Warn("recording verification failure", zap.Error(rlErr))
	}

	eventType := auditEventVerifyFailure
	if kind == KindReplayDetected {
		eventType = auditEventReplayDetected
	}
	var userID int64
	if v != nil && v.Identity != nil {
		userID = v.Identity.ID
	}
	e.emitAudit(ctx, eventType, false, userID, "", err, func() map[string]string {
		meta := map[string]string{"level": securityLevelLabel(opts)}
		if v != nil && v.Security.AgeSeconds >= 0 {
			meta["age_seconds"] = strconv.FormatInt(v.Security.AgeSeconds, 10)
		}
		if opts.ClientTimestamp > 0 {
			skew := e.now().UnixMilli() - opts.ClientTimestamp
			meta["client_skew_ms"] = strconv.FormatInt(skew, 10)
		}
		return meta
	})

	e.logger.Debug("verification rejected", zap.String("reason", kind.Code()), zap.String("ip", ip))
}

func (e *Engine) upstream(ctx context.Context, component string, err error) error {
	e.metricInc(MetricUpstreamError)
	e.logger.Warn("backend failure", zap.String("component", component), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrUpstream, component, err)
}

func securityLevelLabel(opts VerifyOptions) string {
	if opts.strict() {
		return SecurityLevelStrict
	}
	return "standard"
}
