// Package internal holds the building blocks of the tgAuth engine that are
// not part of its public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: tgauth-server settings (viper, TGAUTH_* environment)
//   - logging: zap logger construction for the binaries
//   - policy: freshness evaluation and replay claims
//   - rate: Redis-backed failed-verification throttle
//   - replay: seen-hash guards (Redis and in-memory)
package internal
