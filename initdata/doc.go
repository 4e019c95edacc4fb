// Package initdata parses and verifies Telegram Mini App launch payloads
// ("initData").
//
// # Architecture boundaries
//
// The package is pure: [Parse] and [Verify] perform no I/O, read no clock and
// hold no state. Freshness and replay checks live in internal/policy; session
// issuance lives in the root package.
//
// # What this package must NOT do
//
//   - Re-encode or re-escape field values. The signature covers the values as
//     produced by standard query-string decoding.
//   - Include the bot token, the received hash, or computed MACs in errors.
//   - Compare signatures with anything other than a constant-time compare.
package initdata
