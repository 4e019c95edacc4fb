package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/httpapi"
)

// Issuer exchanges a launch payload for a session.
type Issuer interface {
	Issue(ctx context.Context, raw string, opts tgAuth.VerifyOptions) (*tgAuth.IssueResult, error)
}

// SessionIssuer is the server-side issuing surface. *tgAuth.Engine
// implements it.
type SessionIssuer interface {
	IssueSession(ctx context.Context, raw string, opts tgAuth.VerifyOptions) (*tgAuth.IssueResult, error)
}

// EngineIssuer issues sessions in process.
type EngineIssuer struct {
	Engine SessionIssuer
}

// Issue implements [Issuer] through the wrapped engine.
func (i EngineIssuer) Issue(ctx context.Context, raw string, opts tgAuth.VerifyOptions) (*tgAuth.IssueResult, error) {
	if i.Engine == nil {
		return nil, tgAuth.ErrEngineNotReady
	}
	return i.Engine.IssueSession(ctx, raw, opts)
}

// HTTPIssuer calls POST /api/auth/verify on a verification service.
type HTTPIssuer struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewHTTPIssuer returns an issuer for the service at baseURL. A nil client
// selects one with a 5s timeout.
func NewHTTPIssuer(baseURL string, client *http.Client) *HTTPIssuer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPIssuer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		now:     time.Now,
	}
}

// Issue maps transport failures, 429 and 5xx answers to tgAuth.ErrUpstream
// and 401 reason codes back to their sentinel errors.
func (i *HTTPIssuer) Issue(ctx context.Context, raw string, opts tgAuth.VerifyOptions) (*tgAuth.IssueResult, error) {
	clientTS := opts.ClientTimestamp
	if clientTS == 0 {
		clientTS = i.now().UnixMilli()
	}
	body, err := json.Marshal(httpapi.VerifyRequest{
		InitData:        raw,
		ClientTimestamp: clientTS,
		SecurityLevel:   opts.SecurityLevel,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/api/auth/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", tgAuth.ErrUpstream, err)
	}
	defer resp.Body.Close()

	var out httpapi.VerifyResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, tgAuth.ErrIssueRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", tgAuth.ErrUpstream, resp.StatusCode)
	case resp.StatusCode == http.StatusOK && decodeErr == nil && out.Success:
		return issueResult(out)
	case decodeErr != nil && resp.StatusCode == http.StatusOK:
		return nil, fmt.Errorf("%w: undecodable response", tgAuth.ErrUpstream)
	}

	if err := tgAuth.ErrorForCode(out.Reason); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: status %d", tgAuth.ErrSignatureInvalid, resp.StatusCode)
}

func issueResult(out httpapi.VerifyResponse) (*tgAuth.IssueResult, error) {
	if out.UserData == nil || out.UserData.ID <= 0 || out.UserData.ID != out.UserID || out.Token == "" || out.ExpiresAt == nil {
		return nil, errors.New("client: incomplete verification response")
	}
	return &tgAuth.IssueResult{
		Identity: *out.UserData,
		Session: tgAuth.SessionToken{
			Token:     out.Token,
			UserID:    out.UserID,
			SessionID: out.SessionID,
			Role:      out.Role,
			ExpiresAt: *out.ExpiresAt,
		},
		Security: tgAuth.SecurityCheckResult{
			SignatureValid:  out.SecurityInfo.SignatureValid,
			TimestampValid:  out.SecurityInfo.TimestampValid,
			AgeSeconds:      out.SecurityInfo.AgeSeconds,
			ReplayProtected: out.SecurityInfo.ReplayProtected,
		},
	}, nil
}
