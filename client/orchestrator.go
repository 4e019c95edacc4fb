package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"go.uber.org/zap"
)

// FailureMessage is the single user-visible failure text.
const FailureMessage = "Authentication failed. Please retry."

// AuthState is what the rest of the application may depend on. Without
// IsAuthenticated there is no trusted identity.
type AuthState struct {
	User               *tgAuth.VerifiedIdentity `json:"user"`
	IsAuthenticated    bool                     `json:"is_authenticated"`
	IsLoading          bool                     `json:"is_loading"`
	Error              string                   `json:"error,omitempty"`
	AccessDeniedReason tgAuth.ErrorKind         `json:"access_denied_reason,omitempty"`
}

// Config tunes retries and the watchdog. Zero durations take the
// [DefaultConfig] values; MaxRetries 0 disables retries.
type Config struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
	// Watchdog bounds a whole run, measured from Init.
	Watchdog      time.Duration
	SecurityLevel string
}

// DefaultConfig returns 1s base delay, 5s cap, 3 retries and a 10s watchdog.
func DefaultConfig() Config {
	return Config{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		MaxRetries: 3,
		Watchdog:   10 * time.Second,
	}
}

// withDefaults fills unset or negative fields from [DefaultConfig] and keeps
// MaxDelay at or above BaseDelay.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Watchdog <= 0 {
		c.Watchdog = def.Watchdog
	}
	return c
}

// Backoff returns min(base*2^attempt, max).
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		if d >= max {
			return max
		}
		d *= 2
	}
	if d > max {
		return max
	}
	return d
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithConfig replaces the retry and watchdog settings. Zero durations fall
// back to [DefaultConfig].
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg.withDefaults() }
}

// WithClock injects the clock driving the cache TTL, backoff and watchdog.
// A nil clock is ignored.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator runs at most one authentication attempt at a time.
type Orchestrator struct {
	env    Environment
	issuer Issuer
	store  *SessionStore
	clock  Clock
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	phase    Phase
	state    AuthState
	running  bool
	closed   bool
	cancel   context.CancelFunc
	attempt  int
	listener []func(Phase, AuthState)
}

// NewOrchestrator wires env, issuer and store.
func NewOrchestrator(env Environment, issuer Issuer, store *SessionStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		env:    env,
		issuer: issuer,
		store:  store,
		clock:  SystemClock{},
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
		phase:  PhaseInit,
		state:  AuthState{IsLoading: true},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = NewSessionStore(nil, 0, o.clock)
	}
	return o
}

// OnChange registers fn to observe every transition. fn runs on the
// orchestrator goroutine and must not call back into it.
func (o *Orchestrator) OnChange(fn func(Phase, AuthState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listener = append(o.listener, fn)
}

// State returns the current output.
func (o *Orchestrator) State() AuthState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Start runs the flow in the background.
func (o *Orchestrator) Start(ctx context.Context) {
	go o.Run(ctx)
}

// Run drives the flow to Authenticated or TerminalFailed and returns the
// final state. A call while a run is in flight, or after a run finished,
// returns the current state without starting anything.
func (o *Orchestrator) Run(ctx context.Context) AuthState {
	o.mu.Lock()
	if o.running || o.closed || o.phase != PhaseInit {
		st := o.state
		o.mu.Unlock()
		return st
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.running = true
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
	}()

	o.run(runCtx)
	return o.State()
}

// Retry resets a finished or abandoned run and starts over from the cache check with the
// attempt counter cleared.
func (o *Orchestrator) Retry(ctx context.Context) AuthState {
	o.mu.Lock()
	if o.running || o.closed {
		st := o.state
		o.mu.Unlock()
		return st
	}
	o.phase = PhaseInit
	o.state = AuthState{IsLoading: true}
	o.attempt = 0
	o.mu.Unlock()
	return o.Run(ctx)
}

// Close cancels pending timers and discards any in-flight result. The
// orchestrator cannot be reused.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	watchdog := o.clock.After(o.cfg.Watchdog)

	if !o.transition(PhaseCacheCheck, nil, nil) {
		return
	}
	if cached, ok := o.store.Valid(); ok {
		identity := cached.Identity
		o.logger.Debug("restored cached session", zap.Int64("user_id", identity.ID))
		o.transition(PhaseAuthenticated, &identity, nil)
		return
	}
	if !o.transition(PhaseNeedsAuth, nil, nil) {
		return
	}

	for {
		if !o.transition(PhaseValidating, nil, nil) {
			return
		}

		res, err := o.validate(ctx, watchdog)
		if ctx.Err() != nil {
			o.abandon(ctx)
			return
		}
		if err == nil {
			identity := res.Identity
			o.commit(PhaseAuthenticated, &identity, nil, func() {
				if cacheErr := o.store.CacheAuthState(res.Identity, res.Session); cacheErr != nil {
					o.logger.Warn("caching session failed", zap.Error(cacheErr))
				}
			})
			return
		}

		if errors.Is(err, tgAuth.ErrTimeout) {
			o.fail(err)
			return
		}
		if !o.commit(PhaseFailed, nil, err, o.clearCache) {
			return
		}

		kind := tgAuth.KindOf(err)
		attempt := o.nextAttempt()
		if !kind.Retryable() || attempt >= o.cfg.MaxRetries {
			o.logger.Info("authentication failed",
				zap.String("reason", tgAuth.ReasonCode(err)),
				zap.Int("attempt", attempt),
			)
			o.fail(err)
			return
		}

		delay := Backoff(attempt, o.cfg.BaseDelay, o.cfg.MaxDelay)
		o.logger.Debug("retrying authentication",
			zap.String("reason", tgAuth.ReasonCode(err)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		o.bumpAttempt()
		if !o.transition(PhaseBackoffWait, nil, err) {
			return
		}

		select {
		case <-o.clock.After(delay):
		case <-watchdog:
			o.fail(tgAuth.ErrTimeout)
			return
		case <-ctx.Done():
			o.abandon(ctx)
			return
		}
	}
}

// abandon ends a run whose context was cancelled. After Close the result is
// discarded; otherwise the run fails with a timeout so that dependants never
// stay loading.
func (o *Orchestrator) abandon(ctx context.Context) {
	o.fail(fmt.Errorf("%w: %v", tgAuth.ErrTimeout, ctx.Err()))
}

// validate reads the launch payload and calls the issuer. The watchdog wins
// over an in-flight call, whose result is then dropped.
func (o *Orchestrator) validate(ctx context.Context, watchdog <-chan time.Time) (*tgAuth.IssueResult, error) {
	if o.env == nil {
		return nil, tgAuth.ErrMissingEnvironment
	}
	raw, err := o.env.LaunchPayload()
	if err != nil {
		return nil, err
	}
	if o.issuer == nil {
		return nil, tgAuth.ErrEngineNotReady
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res *tgAuth.IssueResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := o.issuer.Issue(callCtx, raw, tgAuth.VerifyOptions{
			SecurityLevel:   o.cfg.SecurityLevel,
			ClientTimestamp: o.clock.Now().UnixMilli(),
		})
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if out.err == nil && (out.res == nil || out.res.Identity.ID <= 0) {
			return nil, tgAuth.ErrMalformedUser
		}
		return out.res, out.err
	case <-watchdog:
		return nil, tgAuth.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) nextAttempt() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempt
}

func (o *Orchestrator) bumpAttempt() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempt++
}

// fail clears the cache and parks the run in TerminalFailed.
func (o *Orchestrator) fail(err error) {
	o.commit(PhaseTerminalFailed, nil, err, o.clearCache)
}

func (o *Orchestrator) clearCache() {
	if err := o.store.Clear(); err != nil {
		o.logger.Warn("clearing session cache failed", zap.Error(err))
	}
}

// transition moves to phase and publishes the derived state. It returns
// false, without mutating anything, once the orchestrator is closed.
func (o *Orchestrator) transition(to Phase, user *tgAuth.VerifiedIdentity, err error) bool {
	return o.commit(to, user, err, nil)
}

// commit is transition with a side effect on the session cache. effect runs
// under the same lock as the closed check, so nothing reaches the cache after
// Close returns.
func (o *Orchestrator) commit(to Phase, user *tgAuth.VerifiedIdentity, err error, effect func()) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	if !CanTransition(o.phase, to) {
		o.logger.Error("illegal auth transition", zap.String("from", string(o.phase)), zap.String("to", string(to)))
		o.mu.Unlock()
		return false
	}
	if effect != nil {
		effect()
	}

	o.phase = to
	o.state = deriveState(to, user, err)
	st := o.state
	listeners := append([]func(Phase, AuthState){}, o.listener...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(to, st)
	}
	return true
}

func deriveState(p Phase, user *tgAuth.VerifiedIdentity, err error) AuthState {
	switch p {
	case PhaseAuthenticated:
		return AuthState{User: user, IsAuthenticated: user != nil}
	case PhaseTerminalFailed:
		return AuthState{Error: FailureMessage, AccessDeniedReason: tgAuth.KindOf(err)}
	default:
		return AuthState{IsLoading: true}
	}
}
