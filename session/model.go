package session

// Session is the server-side record behind an issued session token.
type Session struct {
	SessionID string
	UserID    int64
	Role      string

	// AuthDate is the launch payload's auth_date, kept for audit.
	AuthDate int64
	// PayloadHash is the SHA-256 of the launch payload's hash field.
	PayloadHash [32]byte

	CreatedAt int64
	ExpiresAt int64

	SchemaVersion uint8
}

// Expired reports whether the record has passed its expiry at unix time now.
func (s *Session) Expired(now int64) bool {
	return s.ExpiresAt <= now
}
