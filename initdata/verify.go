package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// webAppDataKey is the fixed HMAC key Telegram uses to derive the signing
// secret from the bot token.
const webAppDataKey = "WebAppData"

// ErrSignatureInvalid is returned when the recomputed signature differs from
// the received one.
var ErrSignatureInvalid = errors.New("initdata: signature invalid")

// DataCheckString renders fields as sorted "key=value" lines joined by "\n".
// Any hash field is skipped.
func DataCheckString(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Key == FieldHash {
			continue
		}
		lines = append(lines, f.Key+"="+f.Value)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// SecretKey derives HMAC_SHA256(key="WebAppData", msg=botToken).
func SecretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// Sign returns the lowercase hex signature Telegram would attach to fields.
func Sign(fields []Field, botToken string) string {
	mac := hmac.New(sha256.New, SecretKey(botToken))
	mac.Write([]byte(DataCheckString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over fields and compares it to
// receivedHash in constant time. It is a pure function of its inputs.
func Verify(fields []Field, receivedHash, botToken string) error {
	if receivedHash == "" {
		return ErrMissingHash
	}
	expected := Sign(fields, botToken)
	if !hmac.Equal([]byte(expected), []byte(receivedHash)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Encode renders fields plus their signature as a query string, the way the
// host client delivers it. It is meant for tests and local tooling.
func Encode(fields []Field, botToken string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(url.QueryEscape(f.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
		b.WriteByte('&')
	}
	b.WriteString(FieldHash)
	b.WriteByte('=')
	b.WriteString(Sign(fields, botToken))
	return b.String()
}
