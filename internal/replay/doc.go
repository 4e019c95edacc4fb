// Package replay provides seen-hash sets used to reject a verified launch
// payload that is presented a second time.
//
// # Backends
//
//   - RedisGuard: SET NX PX under the "arh:" prefix, shared by every
//     instance that talks to the same Redis.
//   - MemoryGuard: a bounded, TTL-expiring LRU local to the process. When the
//     capacity is exceeded the oldest hashes are evicted early, so capacity
//     should be at least the expected accept rate times the freshness window.
//
// # What this package must NOT do
//
//   - Store anything but the hash itself.
//   - Be imported outside the tgAuth module.
package replay
