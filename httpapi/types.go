package httpapi

import (
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
)

// VerifyRequest is the body of POST /api/auth/verify.
type VerifyRequest struct {
	InitData        string `json:"init_data"`
	ClientTimestamp int64  `json:"client_timestamp,omitempty"`
	SecurityLevel   string `json:"security_level,omitempty"`
}

// SecurityInfo reports which checks the payload passed.
type SecurityInfo struct {
	TimestampValid  bool  `json:"timestamp_valid"`
	AgeSeconds      int64 `json:"age_seconds"`
	ReplayProtected bool  `json:"replay_protected"`
	SignatureValid  bool  `json:"signature_valid"`
}

// failedSecurityInfo is reported on every failure so that a partial pass is
// never echoed back to the caller.
var failedSecurityInfo = SecurityInfo{AgeSeconds: -1}

// VerifyResponse is the body returned by POST /api/auth/verify.
type VerifyResponse struct {
	Success      bool                     `json:"success"`
	UserID       int64                    `json:"user_id,omitempty"`
	UserData     *tgAuth.VerifiedIdentity `json:"user_data,omitempty"`
	Message      string                   `json:"message"`
	Reason       string                   `json:"reason,omitempty"`
	SecurityInfo SecurityInfo             `json:"security_info"`
	Token        string                   `json:"token,omitempty"`
	SessionID    string                   `json:"session_id,omitempty"`
	Role         string                   `json:"role,omitempty"`
	ExpiresAt    *time.Time               `json:"expires_at,omitempty"`
}

// MeResponse is the body returned by GET /api/auth/me.
type MeResponse struct {
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionsResponse is the body returned by the admin session routes.
type SessionsResponse struct {
	UserID   int64                `json:"user_id"`
	Active   int                  `json:"active,omitempty"`
	Sessions []tgAuth.SessionInfo `json:"sessions,omitempty"`
	Revoked  int                  `json:"revoked,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func securityInfo(r tgAuth.SecurityCheckResult) SecurityInfo {
	return SecurityInfo{
		TimestampValid:  r.TimestampValid,
		AgeSeconds:      r.AgeSeconds,
		ReplayProtected: r.ReplayProtected,
		SignatureValid:  r.SignatureValid,
	}
}
