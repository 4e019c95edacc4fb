package client

// Phase is an orchestrator state.
type Phase string

const (
	// PhaseInit is the phase before a run starts, and after a reset.
	PhaseInit Phase = "init"
	// PhaseCacheCheck consults the local session cache.
	PhaseCacheCheck Phase = "cache_check"
	// PhaseNeedsAuth means the cache missed and the payload must be verified.
	PhaseNeedsAuth Phase = "needs_auth"
	// PhaseValidating has an issuer call in flight.
	PhaseValidating Phase = "validating"
	// PhaseAuthenticated ends a run with a trusted identity.
	PhaseAuthenticated Phase = "authenticated"
	// PhaseFailed follows a failed issuer call, before the retry decision.
	PhaseFailed Phase = "failed"
	// PhaseBackoffWait sleeps before the next issuer call.
	PhaseBackoffWait Phase = "backoff_wait"
	// PhaseTerminalFailed ends a run without an identity.
	PhaseTerminalFailed Phase = "terminal_failed"
)

// transitions lists the phases reachable from each phase. Authenticated and
// TerminalFailed only leave through a reset.
var transitions = map[Phase][]Phase{
	PhaseInit:           {PhaseCacheCheck},
	PhaseCacheCheck:     {PhaseAuthenticated, PhaseNeedsAuth},
	PhaseNeedsAuth:      {PhaseValidating},
	PhaseValidating:     {PhaseAuthenticated, PhaseFailed, PhaseTerminalFailed},
	PhaseFailed:         {PhaseBackoffWait, PhaseTerminalFailed},
	PhaseBackoffWait:    {PhaseValidating, PhaseTerminalFailed},
	PhaseAuthenticated:  {PhaseInit},
	PhaseTerminalFailed: {PhaseInit},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a run ends in p.
func (p Phase) Terminal() bool {
	return p == PhaseAuthenticated || p == PhaseTerminalFailed
}

// Loading reports whether an AuthState in p is still loading.
func (p Phase) Loading() bool {
	return !p.Terminal()
}
