// Package audit implements async event dispatching for verification and
// session operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, user, session, IP, reason.
//
// # What this package must NOT do
//
//   - Decide which events to emit. That belongs to the Engine.
//   - Import tgAuth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
