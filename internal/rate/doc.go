// Package rate provides the Redis-backed fixed-window limiter that throttles
// clients repeatedly presenting launch payloads that fail verification.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - avf:<ip>  failed verifications per client IP
//
// # What this package must NOT do
//
//   - Count successful verifications.
//   - Be imported outside the tgAuth module.
package rate
