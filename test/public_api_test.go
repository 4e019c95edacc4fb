package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/client"
	"github.com/MrEthical07/tgAuth/httpapi"
	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/MrEthical07/tgAuth/middleware"
)

// This test guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = tgAuth.New
	_ = tgAuth.DefaultConfig
	_ = tgAuth.VerifyInitData
	_ = tgAuth.KindOf
	_ = tgAuth.ReasonCode
	_ = tgAuth.ErrorForCode

	var _ *tgAuth.Engine
	var _ tgAuth.Config
	var _ tgAuth.AuthResult
	var _ tgAuth.IssueResult
	var _ tgAuth.SessionToken
	var _ tgAuth.VerifiedIdentity
	var _ tgAuth.SecurityCheckResult
	var _ tgAuth.AuditSink

	var _ error = tgAuth.ErrMissingHash
	var _ error = tgAuth.ErrSignatureInvalid
	var _ error = tgAuth.ErrStalePayload
	var _ error = tgAuth.ErrMalformedUser
	var _ error = tgAuth.ErrMissingEnvironment
	var _ error = tgAuth.ErrMissingPayload
	var _ error = tgAuth.ErrUpstream
	var _ error = tgAuth.ErrTimeout
	var _ error = tgAuth.ErrReplayDetected
	var _ error = tgAuth.ErrTokenInvalid
	var _ error = tgAuth.ErrSessionNotFound

	var _ func(middleware.Validator) func(http.Handler) http.Handler = middleware.Guard
	var _ func(string) func(http.Handler) http.Handler = middleware.RequireRole
	var _ middleware.Validator = (*tgAuth.Engine)(nil)
	var _ httpapi.Service = (*tgAuth.Engine)(nil)
	var _ client.SessionIssuer = (*tgAuth.Engine)(nil)
	var _ client.Issuer = (*client.HTTPIssuer)(nil)
	var _ client.Issuer = client.EngineIssuer{}
	var _ client.Storage = (*client.MemoryStorage)(nil)
	var _ client.Storage = (*client.FileStorage)(nil)
	var _ client.Environment = client.StaticEnvironment{}

	var _ func(*tgAuth.Engine, context.Context, string, tgAuth.VerifyOptions) (*tgAuth.IssueResult, error) = (*tgAuth.Engine).IssueSession
	var _ func(*tgAuth.Engine, context.Context, string, tgAuth.VerifyOptions) (*tgAuth.Verification, error) = (*tgAuth.Engine).Verify
	var _ func(*tgAuth.Engine, context.Context, string) (*tgAuth.AuthResult, error) = (*tgAuth.Engine).ValidateSession
	var _ func(*tgAuth.Engine, context.Context, string) error = (*tgAuth.Engine).Logout
	var _ func(*tgAuth.Engine, context.Context, int64) (int, error) = (*tgAuth.Engine).RevokeAllForUser
}

// Scenarios A to C of the launch payload contract, through the public API.
func TestLaunchPayloadScenarios(t *testing.T) {
	const token = "TESTTOKEN"
	now := time.UnixMilli(1_700_000_000_000 + 1_000)
	fields := []initdata.Field{
		{Key: "auth_date", Value: "1700000000"},
		{Key: "user", Value: `{"id":123,"first_name":"A"}`},
	}
	hash := initdata.Sign(fields, token)
	raw := "auth_date=1700000000&user=%7B%22id%22%3A123%2C%22first_name%22%3A%22A%22%7D&hash=" + hash

	identity, sec, err := tgAuth.VerifyInitData(raw, token, 300*time.Second, now)
	if err != nil {
		t.Fatalf("scenario A: %v", err)
	}
	if identity.ID != 123 || !sec.SignatureValid || !sec.TimestampValid || sec.AgeSeconds != 1 {
		t.Fatalf("scenario A: identity=%+v security=%+v", identity, sec)
	}

	truncated := raw[:len(raw)-1]
	if _, _, err := tgAuth.VerifyInitData(truncated, token, 300*time.Second, now); tgAuth.KindOf(err) != tgAuth.KindSignatureInvalid {
		t.Fatalf("scenario B: expected SignatureInvalid, got %v", err)
	}

	noHash := "auth_date=1700000000&user=%7B%22id%22%3A123%7D"
	if _, _, err := tgAuth.VerifyInitData(noHash, token, 300*time.Second, now); tgAuth.KindOf(err) != tgAuth.KindMissingHash {
		t.Fatalf("scenario C: expected MissingHash, got %v", err)
	}
}

// Scenario D: no host environment means a terminal failure with no retries
// and no network calls.
func TestOrchestratorWithoutHostEnvironment(t *testing.T) {
	calls := 0
	issuer := issuerFunc(func(context.Context, string, tgAuth.VerifyOptions) (*tgAuth.IssueResult, error) {
		calls++
		return nil, tgAuth.ErrUpstream
	})

	o := client.NewOrchestrator(client.StaticEnvironment{}, issuer, client.NewSessionStore(nil, 0, nil))
	defer o.Close()

	st := o.Run(context.Background())
	if st.IsAuthenticated || st.IsLoading || st.User != nil {
		t.Fatalf("expected unauthenticated terminal state, got %+v", st)
	}
	if st.AccessDeniedReason != tgAuth.KindMissingEnvironment {
		t.Fatalf("expected MissingEnvironment, got %q", st.AccessDeniedReason)
	}
	if o.Phase() != client.PhaseTerminalFailed {
		t.Fatalf("expected terminal phase, got %s", o.Phase())
	}
	if calls != 0 {
		t.Fatalf("expected no issuer calls, got %d", calls)
	}
}

type issuerFunc func(context.Context, string, tgAuth.VerifyOptions) (*tgAuth.IssueResult, error)

func (f issuerFunc) Issue(ctx context.Context, raw string, opts tgAuth.VerifyOptions) (*tgAuth.IssueResult, error) {
	return f(ctx, raw, opts)
}
