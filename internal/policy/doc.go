// Package policy evaluates launch-payload freshness and replay protection.
//
// # Window semantics
//
// age = (nowMillis - authDate*1000) / 1000, truncated toward zero. A payload is
// fresh when 0 <= age <= window. A payload dated in the future has a
// negative age and is rejected.
//
// # What this package must NOT do
//
//   - Mark a hash as seen before the signature has been verified by the caller.
//   - Be imported outside the tgAuth module.
package policy
