package tgAuth

import (
	"time"

	"github.com/MrEthical07/tgAuth/initdata"
	internalaudit "github.com/MrEthical07/tgAuth/internal/audit"
	"github.com/MrEthical07/tgAuth/internal/policy"
)

// VerifiedIdentity is the Telegram user taken from a payload whose signature
// and freshness were verified.
type VerifiedIdentity = initdata.User

// SecurityCheckResult reports which checks a payload passed.
type SecurityCheckResult = policy.Result

const (
	// RoleUser is granted to every verified identity.
	RoleUser = "user"
	// RoleAdmin is granted to verified identities on the admin allow list.
	RoleAdmin = "admin"
)

// SecurityLevelStrict selects the strict freshness window.
const SecurityLevelStrict = "strict"

// VerifyOptions tunes a single verification.
type VerifyOptions struct {
	// SecurityLevel "strict" applies Freshness.StrictWindow.
	SecurityLevel string
	// ClientTimestamp is the client's clock in unix milliseconds. It is only
	// recorded; freshness is judged against the server clock.
	ClientTimestamp int64
}

func (o VerifyOptions) strict() bool {
	return o.SecurityLevel == SecurityLevelStrict
}

// Verification is the outcome of [Engine.Verify].
type Verification struct {
	Identity *VerifiedIdentity
	Security SecurityCheckResult
	AuthDate time.Time
	// Hash is the verified signature. It must not be logged.
	Hash string
}

// SessionToken is a signed credential bound to one verified user.
type SessionToken struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether t is bound to a user and unexpired at now.
func (t SessionToken) Valid(now time.Time) bool {
	return t.Token != "" && t.UserID > 0 && now.Before(t.ExpiresAt)
}

// IssueResult is returned by [Engine.IssueSession].
type IssueResult struct {
	Identity VerifiedIdentity
	Session  SessionToken
	Security SecurityCheckResult
	// Replaced counts earlier sessions revoked by the single-session policy.
	Replaced int
}

// AuthResult describes a validated session token.
type AuthResult struct {
	UserID    int64
	SessionID string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAdmin reports whether the session carries the admin role.
func (r *AuthResult) IsAdmin() bool {
	return r != nil && r.Role == RoleAdmin
}

// AuditEvent is one audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapAuditSink writes audit events to a zap logger.
type ZapAuditSink = internalaudit.ZapSink

var (
	// NewChannelSink returns a [ChannelSink] with the given buffer.
	NewChannelSink = internalaudit.NewChannelSink
	// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	// NewZapAuditSink returns a [ZapAuditSink].
	NewZapAuditSink = internalaudit.NewZapSink
)
