// Package jwt mints and verifies the session tokens handed to a Mini App after
// its launch payload has been verified. A token is bound to exactly one
// Telegram user id and one server-side session id.
package jwt
