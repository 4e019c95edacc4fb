// Package client authenticates a Mini App against the verification service.
//
// [Orchestrator] drives the launch flow as an explicit state machine:
//
//	Init -> CacheCheck -> Authenticated | NeedsAuth
//	NeedsAuth -> Validating -> Authenticated | Failed
//	Failed -> BackoffWait -> Validating   (upstream errors, bounded)
//	Failed -> TerminalFailed              (everything else)
//
// A valid cached session ([SessionStore]) authenticates without any network
// call. Only upstream failures are retried, with exponential backoff, and a
// watchdog bounds the whole run. The only output the rest of an application
// should consume is [AuthState].
package client
