package initdata

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

const (
	// FieldHash carries the lowercase hex HMAC over the remaining fields.
	FieldHash = "hash"
	// FieldAuthDate carries the unix-seconds issue time of the payload.
	FieldAuthDate = "auth_date"
	// FieldUser carries the JSON-encoded launching user.
	FieldUser = "user"
)

var (
	// ErrMissingHash is returned by Parse when the payload has no hash field.
	ErrMissingHash = errors.New("initdata: missing hash")
	// ErrMalformedPayload is returned when the raw string is not a valid query string.
	ErrMalformedPayload = errors.New("initdata: malformed payload")
)

// Field is one decoded key/value pair, kept in delivery order.
type Field struct {
	Key   string
	Value string
}

// Payload is a parsed launch payload. Fields excludes the hash.
type Payload struct {
	Fields   []Field
	Hash     string
	AuthDate int64
	// User is nil when the user field is absent or not valid JSON.
	User *User
}

// Get returns the first value for key.
func (p *Payload) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// HasAuthDate reports whether auth_date was present and numeric.
func (p *Payload) HasAuthDate() bool {
	if p == nil {
		return false
	}
	v, ok := p.Get(FieldAuthDate)
	if !ok {
		return false
	}
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

// Parse splits raw into ordered decoded fields and extracts the hash, the
// auth date and the embedded user. A missing hash fails before anything
// else is inspected. A malformed user is not an error here: the payload
// still verifies, it just yields no identity.
func Parse(raw string) (*Payload, error) {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil, ErrMissingHash
	}

	p := &Payload{Fields: make([]Field, 0, 8)}
	hashSeen := false

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, ErrMalformedPayload
		}
		if k == FieldHash {
			if !hashSeen {
				p.Hash = v
				hashSeen = true
			}
			continue
		}
		p.Fields = append(p.Fields, Field{Key: k, Value: v})
	}

	if !hashSeen || p.Hash == "" {
		return nil, ErrMissingHash
	}

	if v, ok := p.Get(FieldAuthDate); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.AuthDate = n
		}
	}
	if v, ok := p.Get(FieldUser); ok {
		if u, err := ParseUser(v); err == nil {
			p.User = u
		}
	}

	return p, nil
}
