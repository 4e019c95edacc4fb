package tgAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestIssueSessionSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := engine.IssueSession(ctx, signedPayload(123, time.Now()), VerifyOptions{})
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if res.Identity.ID != 123 || res.Identity.FirstName != "Ann" || res.Identity.Username != "ann" {
		t.Fatalf("unexpected identity: %+v", res.Identity)
	}
	sec := res.Security
	if !sec.SignatureValid || !sec.TimestampValid || !sec.ReplayProtected || sec.AgeSeconds < 0 || sec.AgeSeconds > 1 {
		t.Fatalf("unexpected security result: %+v", sec)
	}
	if res.Session.UserID != 123 || res.Session.Role != RoleUser || res.Session.SessionID == "" {
		t.Fatalf("unexpected session: %+v", res.Session)
	}
	if !res.Session.Valid(time.Now()) {
		t.Fatal("fresh session must be valid")
	}
	if got := res.Session.ExpiresAt.Sub(res.Session.IssuedAt); got != engine.SessionTTL() {
		t.Fatalf("expected ttl %s, got %s", engine.SessionTTL(), got)
	}

	auth, err := engine.ValidateSession(ctx, res.Session.Token)
	if err != nil {
		t.Fatalf("validate session: %v", err)
	}
	if auth.UserID != 123 || auth.SessionID != res.Session.SessionID || auth.IsAdmin() {
		t.Fatalf("unexpected auth result: %+v", auth)
	}
}

func TestIssueSessionRejectsReplay(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	raw := signedPayload(123, time.Now())

	if _, err := engine.IssueSession(ctx, raw, VerifyOptions{}); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	_, err := engine.IssueSession(ctx, raw, VerifyOptions{})
	if !errors.Is(err, ErrReplayDetected) {
		t.Fatalf("expected ErrReplayDetected, got %v", err)
	}
	if KindOf(err) != KindReplayDetected || KindOf(err).Retryable() {
		t.Fatalf("replay must be a terminal ReplayDetected, got %s", KindOf(err))
	}
	if got := engine.MetricsSnapshot().Counters[MetricReplayDetected]; got != 1 {
		t.Fatalf("expected 1 replay metric, got %d", got)
	}
}

func TestIssueSessionMemoryReplayBackend(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) {
		c.Replay.Backend = ReplayMemory
		c.Replay.Capacity = 8
	})
	ctx := context.Background()
	raw := signedPayload(5, time.Now())

	if _, err := engine.IssueSession(ctx, raw, VerifyOptions{}); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if _, err := engine.IssueSession(ctx, raw, VerifyOptions{}); !errors.Is(err, ErrReplayDetected) {
		t.Fatalf("expected ErrReplayDetected, got %v", err)
	}
}

func TestIssueSessionReplayDisabledReportsUnprotected(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Replay.Enabled = false })
	raw := signedPayload(5, time.Now())

	for i := 0; i < 2; i++ {
		res, err := engine.IssueSession(context.Background(), raw, VerifyOptions{})
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if res.Security.ReplayProtected {
			t.Fatal("replay_protected must be false without a guard")
		}
	}
	if engine.ReplayProtected() {
		t.Fatal("engine must report replay protection off")
	}
}

func TestIssueSessionStaleWindowBoundary(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	window := engine.FreshnessWindow("")

	v, err := engine.Verify(context.Background(), signedPayload(1, time.Now().Add(-window-time.Second)), VerifyOptions{})
	if !errors.Is(err, ErrStalePayload) {
		t.Fatalf("expected ErrStalePayload, got %v", err)
	}
	if !v.Security.SignatureValid || v.Security.TimestampValid {
		t.Fatalf("expected valid signature and invalid timestamp, got %+v", v.Security)
	}
	if v.Security.AgeSeconds != int64(window/time.Second)+1 {
		t.Fatalf("expected age %d, got %d", int64(window/time.Second)+1, v.Security.AgeSeconds)
	}

	_, err = engine.IssueSession(context.Background(), signedPayload(1, time.Now().Add(-window-time.Second)), VerifyOptions{})
	if KindOf(err) != KindStalePayload {
		t.Fatalf("expected StalePayload, got %v", err)
	}
}

func TestIssueSessionStrictSecurityLevel(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	raw := signedPayload(77, time.Now().Add(-2*time.Minute))

	if _, err := engine.IssueSession(ctx, raw, VerifyOptions{SecurityLevel: SecurityLevelStrict}); !errors.Is(err, ErrStalePayload) {
		t.Fatalf("expected strict level to reject a 2 minute old payload, got %v", err)
	}
	// The failed strict attempt must not have consumed the hash.
	if _, err := engine.IssueSession(ctx, raw, VerifyOptions{}); err != nil {
		t.Fatalf("standard level should accept the same payload: %v", err)
	}
}

func TestIssueSessionRejectsFuturePayload(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	for i, ahead := range []time.Duration{20 * time.Second, 10 * time.Minute} {
		_, err := engine.IssueSession(context.Background(), signedPayload(int64(i+1), time.Now().Add(ahead)), VerifyOptions{})
		if !errors.Is(err, ErrStalePayload) {
			t.Fatalf("expected ErrStalePayload for payload %s ahead, got %v", ahead, err)
		}
	}
	v, err := engine.Verify(context.Background(), signedPayload(3, time.Now().Add(20*time.Second)), VerifyOptions{})
	if !errors.Is(err, ErrStalePayload) {
		t.Fatalf("expected ErrStalePayload from Verify, got %v", err)
	}
	if v.Security.TimestampValid || v.Security.AgeSeconds >= 0 {
		t.Fatalf("expected negative age reported as invalid, got %+v", v.Security)
	}
}

func TestIssueSessionPayloadFailures(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	now := time.Now()

	noUser := initdata.Encode([]initdata.Field{
		{Key: "auth_date", Value: "0"},
	}, testBotToken)

	badUser := initdata.Encode([]initdata.Field{
		{Key: "auth_date", Value: itoa(now.Unix())},
		{Key: "user", Value: `{"id":"x"}`},
	}, testBotToken)

	valid := signedPayload(9, now)
	tampered := strings.Replace(valid, "first_name%22%3A%22Ann", "first_name%22%3A%22Bob", 1)
	if tampered == valid {
		t.Fatal("tamper replacement did not apply")
	}

	tests := []struct {
		name string
		raw  string
		want error
		kind ErrorKind
	}{
		{name: "empty", raw: "", want: ErrMissingPayload, kind: KindMissingPayload},
		{name: "missing hash", raw: "auth_date=1&user=%7B%7D", want: ErrMissingHash, kind: KindMissingHash},
		{name: "tampered", raw: tampered, want: ErrSignatureInvalid, kind: KindSignatureInvalid},
		{name: "wrong token", raw: initdata.Encode([]initdata.Field{{Key: "auth_date", Value: itoa(now.Unix())}}, "other"), want: ErrSignatureInvalid, kind: KindSignatureInvalid},
		{name: "bad escape", raw: "user=%zz&hash=00", want: ErrMalformedPayload, kind: KindSignatureInvalid},
		{name: "stale epoch", raw: noUser, want: ErrStalePayload, kind: KindStalePayload},
		{name: "malformed user", raw: badUser, want: ErrMalformedUser, kind: KindMalformedUser},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.IssueSession(context.Background(), tc.raw, VerifyOptions{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if KindOf(err) != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, KindOf(err))
			}
			if KindOf(err).Retryable() {
				t.Fatal("payload failures must not be retryable")
			}
			if strings.Contains(err.Error(), testBotToken) {
				t.Fatal("error leaks the bot token")
			}
		})
	}

	if got := engine.MetricsSnapshot().Counters[MetricVerifyFailure]; got != uint64(len(tests)) {
		t.Fatalf("expected %d verify failures, got %d", len(tests), got)
	}
}

func TestIssueSessionAdminAllowList(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Admin.UserIDs = []int64{42} })
	ctx := context.Background()

	admin, err := engine.IssueSession(ctx, signedPayload(42, time.Now()), VerifyOptions{})
	if err != nil {
		t.Fatalf("issue admin: %v", err)
	}
	if admin.Session.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %q", admin.Session.Role)
	}
	user, err := engine.IssueSession(ctx, signedPayload(43, time.Now()), VerifyOptions{})
	if err != nil {
		t.Fatalf("issue user: %v", err)
	}
	if user.Session.Role != RoleUser {
		t.Fatalf("expected user role, got %q", user.Session.Role)
	}

	auth, err := engine.ValidateSession(ctx, admin.Session.Token)
	if err != nil || !auth.IsAdmin() {
		t.Fatalf("expected admin auth result, got %+v err=%v", auth, err)
	}
}

func TestIssueSessionSingleActivePerUser(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Session.SingleActivePerUser = true })
	ctx := context.Background()

	first, err := engine.IssueSession(ctx, signedPayload(7, time.Now(), initdata.Field{Key: "chat_instance", Value: "1"}), VerifyOptions{})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := engine.IssueSession(ctx, signedPayload(7, time.Now(), initdata.Field{Key: "chat_instance", Value: "2"}), VerifyOptions{})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if second.Replaced != 1 {
		t.Fatalf("expected 1 replaced session, got %d", second.Replaced)
	}

	if _, err := engine.ValidateSession(ctx, first.Session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected earlier session revoked, got %v", err)
	}
	if _, err := engine.ValidateSession(ctx, second.Session.Token); err != nil {
		t.Fatalf("latest session must stay valid: %v", err)
	}
}

func TestIssueSessionThrottlesFailingClient(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.RateLimit.MaxFailures = 2 })
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	for i := 0; i < 2; i++ {
		if _, err := engine.IssueSession(ctx, "auth_date=1&hash=00", VerifyOptions{}); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("attempt %d: expected ErrSignatureInvalid, got %v", i, err)
		}
	}

	_, err := engine.IssueSession(ctx, signedPayload(1, time.Now()), VerifyOptions{})
	if !errors.Is(err, ErrIssueRateLimited) {
		t.Fatalf("expected ErrIssueRateLimited, got %v", err)
	}
	if ReasonCode(err) != ReasonRateLimited {
		t.Fatalf("expected rate_limited reason, got %s", ReasonCode(err))
	}

	other := WithClientIP(context.Background(), "203.0.113.10")
	if _, err := engine.IssueSession(other, signedPayload(1, time.Now()), VerifyOptions{}); err != nil {
		t.Fatalf("other client must not be throttled: %v", err)
	}
}

func TestIssueSessionRedisDownIsRetryable(t *testing.T) {
	engine, mr := newTestEngine(t, nil)
	mr.Close()

	_, err := engine.IssueSession(context.Background(), signedPayload(1, time.Now()), VerifyOptions{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !KindOf(err).Retryable() {
		t.Fatal("upstream failures must be retryable")
	}
}

func TestIssueSessionAuditOmitsSecrets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(16)
	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.1"), "TelegramBot-Test")
	raw := signedPayload(55, time.Now())
	if _, err := engine.IssueSession(ctx, raw, VerifyOptions{}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	var ev AuditEvent
	select {
	case ev = <-sink.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}

	if ev.EventType != auditEventSessionIssued || !ev.Success || ev.UserID != "55" || ev.SessionID == "" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.IP != "198.51.100.1" || ev.Metadata["user_agent"] != "TelegramBot-Test" {
		t.Fatalf("expected request context in event, got %+v", ev)
	}
	hash := raw[strings.LastIndex(raw, "hash=")+len("hash="):]
	for _, v := range ev.Metadata {
		if strings.Contains(v, testBotToken) || strings.Contains(v, hash) {
			t.Fatalf("audit metadata leaks secrets: %v", ev.Metadata)
		}
	}
}

func TestVerifyInitDataScenarioA(t *testing.T) {
	raw := initdata.Encode([]initdata.Field{
		{Key: "auth_date", Value: "1700000000"},
		{Key: "user", Value: `{"id":123,"first_name":"A"}`},
	}, "TESTTOKEN")

	identity, sec, err := VerifyInitData(raw, "TESTTOKEN", 300*time.Second, time.Unix(1700000010, 0))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.ID != 123 || identity.FirstName != "A" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if !sec.SignatureValid || !sec.TimestampValid || sec.AgeSeconds != 10 || sec.ReplayProtected {
		t.Fatalf("unexpected security result: %+v", sec)
	}

	_, sec, err = VerifyInitData(raw, "TESTTOKEN", 300*time.Second, time.Unix(1700000301, 0))
	if !errors.Is(err, ErrStalePayload) || !sec.SignatureValid || sec.TimestampValid {
		t.Fatalf("expected stale with valid signature, got %+v err=%v", sec, err)
	}
}
