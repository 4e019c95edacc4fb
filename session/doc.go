// Package session provides Redis-backed persistence for Mini App sessions and
// the compact binary record format they are stored in.
//
// A session is created once per successful launch-payload verification and is
// indexed by the Telegram user id so that all sessions of a user can be
// counted or revoked together.
//
// This package does not interpret tokens or launch payloads. It must not
// import the root package, jwt or initdata.
package session
