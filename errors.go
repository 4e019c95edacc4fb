package tgAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/MrEthical07/tgAuth/internal/policy"
	"github.com/MrEthical07/tgAuth/internal/rate"
)

var (
	// ErrMissingHash is returned when the payload has no hash field.
	ErrMissingHash = initdata.ErrMissingHash
	// ErrMalformedPayload is returned when the payload is not a valid query string.
	ErrMalformedPayload = initdata.ErrMalformedPayload
	// ErrSignatureInvalid is returned when the recomputed signature differs from the received one.
	ErrSignatureInvalid = initdata.ErrSignatureInvalid
	// ErrMalformedUser is returned when a verified payload carries no usable user object.
	ErrMalformedUser = initdata.ErrMalformedUser
	// ErrStalePayload is returned when auth_date is outside the freshness window.
	ErrStalePayload = policy.ErrStale
	// ErrReplayDetected is returned when the payload hash was already accepted once.
	ErrReplayDetected = policy.ErrReplay
	// ErrIssueRateLimited is returned when the caller exceeded the failed verification budget.
	ErrIssueRateLimited = rate.ErrRateLimited

	// ErrMissingEnvironment is returned by clients that run outside a Telegram host.
	ErrMissingEnvironment = errors.New("telegram environment unavailable")
	// ErrMissingPayload is returned when the host supplied no launch payload.
	ErrMissingPayload = errors.New("launch payload missing")
	// ErrUpstream wraps transient backend and transport failures.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrTimeout is returned when authentication did not finish in time.
	ErrTimeout = errors.New("authentication timed out")

	// ErrTokenInvalid is returned for session tokens that fail parsing or binding checks.
	ErrTokenInvalid = errors.New("session token invalid")
	// ErrSessionNotFound is returned when the token's session was revoked or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCreationFailed is returned when a session token could not be minted.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrPermissionDenied is returned when a valid session lacks the required role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// ErrorKind classifies authentication failures. Only [KindUpstream] is
// retryable.
type ErrorKind string

const (
	KindMissingHash        ErrorKind = "MissingHash"
	KindSignatureInvalid   ErrorKind = "SignatureInvalid"
	KindStalePayload       ErrorKind = "StalePayload"
	KindMalformedUser      ErrorKind = "MalformedUser"
	KindReplayDetected     ErrorKind = "ReplayDetected"
	KindMissingEnvironment ErrorKind = "MissingEnvironment"
	KindMissingPayload     ErrorKind = "MissingPayload"
	KindUpstream           ErrorKind = "UpstreamError"
	KindTimeout            ErrorKind = "Timeout"
	KindUnauthorized       ErrorKind = "Unauthorized"
	KindInternal           ErrorKind = "Internal"
)

// Retryable reports whether a failure of this kind may succeed on retry.
func (k ErrorKind) Retryable() bool {
	return k == KindUpstream
}

// Code is the snake_case reason code sent over the wire for this kind.
func (k ErrorKind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "internal_error"
}

var kindCodes = map[ErrorKind]string{
	KindMissingHash:        "missing_hash",
	KindSignatureInvalid:   "signature_invalid",
	KindStalePayload:       "stale_payload",
	KindMalformedUser:      "malformed_user",
	KindReplayDetected:     "replay_detected",
	KindMissingEnvironment: "missing_environment",
	KindMissingPayload:     "missing_payload",
	KindUpstream:           "upstream_error",
	KindTimeout:            "timeout",
	KindUnauthorized:       "unauthorized",
	KindInternal:           "internal_error",
}

// ReasonRateLimited is the wire reason for [ErrIssueRateLimited].
const ReasonRateLimited = "rate_limited"

var codeErrors = map[string]error{
	"missing_hash":        ErrMissingHash,
	"signature_invalid":   ErrSignatureInvalid,
	"stale_payload":       ErrStalePayload,
	"malformed_user":      ErrMalformedUser,
	"replay_detected":     ErrReplayDetected,
	"missing_environment": ErrMissingEnvironment,
	"missing_payload":     ErrMissingPayload,
	"upstream_error":      ErrUpstream,
	"timeout":             ErrTimeout,
	"unauthorized":        ErrTokenInvalid,
	ReasonRateLimited:     ErrIssueRateLimited,
}

// ReasonCode returns the wire reason for err.
func ReasonCode(err error) string {
	if errors.Is(err, ErrIssueRateLimited) {
		return ReasonRateLimited
	}
	return KindOf(err).Code()
}

// KindOf classifies err. It returns "" for nil.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingHash):
		return KindMissingHash
	case errors.Is(err, ErrSignatureInvalid), errors.Is(err, ErrMalformedPayload):
		return KindSignatureInvalid
	case errors.Is(err, ErrStalePayload):
		return KindStalePayload
	case errors.Is(err, ErrMalformedUser):
		return KindMalformedUser
	case errors.Is(err, ErrReplayDetected):
		return KindReplayDetected
	case errors.Is(err, ErrMissingEnvironment):
		return KindMissingEnvironment
	case errors.Is(err, ErrMissingPayload):
		return KindMissingPayload
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrIssueRateLimited):
		return KindUpstream
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrPermissionDenied):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// ErrorForCode maps a wire reason code back to its sentinel error. Unknown
// codes and internal_error map to nil.
func ErrorForCode(code string) error {
	return codeErrors[code]
}
