package initdata

import (
	"encoding/json"
	"errors"
)

// ErrMalformedUser is returned when the user field is not a usable identity.
var ErrMalformedUser = errors.New("initdata: malformed user")

// User is the identity embedded in a launch payload. It is only trusted once
// the surrounding payload has been verified.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// ParseUser decodes the user JSON. An id <= 0 is rejected.
func ParseUser(raw string) (*User, error) {
	if raw == "" {
		return nil, ErrMalformedUser
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, ErrMalformedUser
	}
	if u.ID <= 0 {
		return nil, ErrMalformedUser
	}
	return &u, nil
}
