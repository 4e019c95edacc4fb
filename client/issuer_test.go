package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/httpapi"
	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const issuerBotToken = "123456:CLIENT-TEST-TOKEN"

func newEngine(t *testing.T, now time.Time) (*tgAuth.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := tgAuth.DefaultConfig()
	cfg.Bot.Token = issuerBotToken
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	engine, err := tgAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(func() time.Time { return now }).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, mr
}

func signed(userID int64, authDate time.Time) string {
	return initdata.Encode([]initdata.Field{
		{Key: "user", Value: `{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Ann"}`},
		{Key: "auth_date", Value: strconv.FormatInt(authDate.Unix(), 10)},
	}, issuerBotToken)
}

func TestHTTPIssuerAgainstService(t *testing.T) {
	engine, _ := newEngine(t, t0)
	srv := httptest.NewServer(httpapi.NewRouter(engine, httpapi.Options{}))
	t.Cleanup(srv.Close)

	issuer := NewHTTPIssuer(srv.URL+"/", srv.Client())
	raw := signed(42, t0.Add(-5*time.Second))

	res, err := issuer.Issue(context.Background(), raw, tgAuth.VerifyOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(42), res.Identity.ID)
	require.Equal(t, int64(42), res.Session.UserID)
	require.NotEmpty(t, res.Session.Token)
	require.True(t, res.Security.SignatureValid)
	require.Equal(t, int64(5), res.Security.AgeSeconds)

	auth, err := engine.ValidateSession(context.Background(), res.Session.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), auth.UserID)

	_, err = issuer.Issue(context.Background(), raw, tgAuth.VerifyOptions{})
	require.ErrorIs(t, err, tgAuth.ErrReplayDetected)

	_, err = issuer.Issue(context.Background(), signed(42, t0.Add(-time.Hour)), tgAuth.VerifyOptions{})
	require.ErrorIs(t, err, tgAuth.ErrStalePayload)

	_, err = issuer.Issue(context.Background(), "auth_date=1", tgAuth.VerifyOptions{})
	require.ErrorIs(t, err, tgAuth.ErrMissingHash)
}

func TestHTTPIssuerStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
		kind   tgAuth.ErrorKind
	}{
		{"server error", http.StatusBadGateway, ``, tgAuth.ErrUpstream, tgAuth.KindUpstream},
		{"rate limited", http.StatusTooManyRequests, `{"success":false,"reason":"rate_limited"}`, tgAuth.ErrIssueRateLimited, tgAuth.KindUpstream},
		{"signature", http.StatusUnauthorized, `{"success":false,"reason":"signature_invalid"}`, tgAuth.ErrSignatureInvalid, tgAuth.KindSignatureInvalid},
		{"unknown reason", http.StatusUnauthorized, `{"success":false,"reason":"???"}`, tgAuth.ErrSignatureInvalid, tgAuth.KindSignatureInvalid},
		{"garbled ok", http.StatusOK, `not json`, tgAuth.ErrUpstream, tgAuth.KindUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			_, err := NewHTTPIssuer(srv.URL, srv.Client()).Issue(context.Background(), "x", tgAuth.VerifyOptions{})
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, tc.kind, tgAuth.KindOf(err))
		})
	}
}

func TestHTTPIssuerNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPIssuer(url, nil).Issue(context.Background(), "x", tgAuth.VerifyOptions{})
	require.ErrorIs(t, err, tgAuth.ErrUpstream)
	require.True(t, tgAuth.KindOf(err).Retryable())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewHTTPIssuer(url, nil).Issue(ctx, "x", tgAuth.VerifyOptions{})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestOrchestratorEndToEnd(t *testing.T) {
	engine, mr := newEngine(t, t0)
	srv := httptest.NewServer(httpapi.NewRouter(engine, httpapi.Options{}))
	t.Cleanup(srv.Close)

	clock := newFakeClock(t0)
	store := NewSessionStore(NewMemoryStorage(), time.Hour, clock)
	o := NewOrchestrator(NewStaticEnvironment(signed(42, t0)), NewHTTPIssuer(srv.URL, srv.Client()), store, WithClock(clock))
	t.Cleanup(o.Close)

	st := o.Run(context.Background())
	require.True(t, st.IsAuthenticated)
	require.Equal(t, int64(42), st.User.ID)

	tok, ok := store.Token()
	require.True(t, ok)
	n, err := engine.ActiveSessionCount(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotEmpty(t, tok.SessionID)
	require.True(t, mr.Exists("ts:"+tok.SessionID))

	// A fresh orchestrator sharing the cache authenticates offline.
	srv.Close()
	again := NewOrchestrator(StaticEnvironment{}, NewHTTPIssuer(srv.URL, nil), store, WithClock(clock))
	t.Cleanup(again.Close)
	require.True(t, again.Run(context.Background()).IsAuthenticated)
}

func TestEngineIssuer(t *testing.T) {
	engine, _ := newEngine(t, t0)

	res, err := EngineIssuer{Engine: engine}.Issue(context.Background(), signed(5, t0), tgAuth.VerifyOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Identity.ID)

	_, err = EngineIssuer{}.Issue(context.Background(), "x", tgAuth.VerifyOptions{})
	require.ErrorIs(t, err, tgAuth.ErrEngineNotReady)
}
