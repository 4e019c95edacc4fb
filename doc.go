// Package tgAuth verifies Telegram Mini App launch payloads and issues
// sessions bound to the verified Telegram user.
//
// The server side is an [Engine] built through [Builder]. [Engine.IssueSession]
// parses the payload, checks its HMAC signature against the bot token,
// enforces the freshness window, claims the payload hash in the replay guard
// and finally mints a signed session token backed by a Redis record.
// [Engine.ValidateSession] checks such a token on later requests.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// Signature math lives in initdata, freshness and replay policy in
// internal/policy and internal/replay, token minting in jwt, and session
// persistence in session. This package wires them together and owns the
// error taxonomy ([ErrorKind]) that clients use to decide whether a failure
// may be retried.
//
// # What this package must NOT do
//
//   - Log or return the bot token, a received or computed hash, or raw
//     payload contents.
//   - Authenticate anyone whose payload did not verify. There is no fallback
//     identity.
package tgAuth
