package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
)

// DefaultCacheTTL bounds how long a cached authentication is trusted.
const DefaultCacheTTL = time.Hour

// CachedAuthState is the last verified identity and its session token.
type CachedAuthState struct {
	Identity tgAuth.VerifiedIdentity `json:"identity"`
	Token    tgAuth.SessionToken     `json:"token"`
	CachedAt time.Time               `json:"cached_at"`
}

// SessionStore is the single writer of the local auth cache. A corrupt,
// stale, or mismatched cache reads as absent.
type SessionStore struct {
	mu      sync.Mutex
	storage Storage
	ttl     time.Duration
	clock   Clock
}

// NewSessionStore returns a store over storage. A ttl <= 0 selects
// [DefaultCacheTTL]; a nil clock selects the wall clock.
func NewSessionStore(storage Storage, ttl time.Duration, clock Clock) *SessionStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &SessionStore{storage: storage, ttl: ttl, clock: clock}
}

// GetCachedAuthState returns the stored state. Read or decode failures are
// reported as a miss.
func (s *SessionStore) GetCachedAuthState() (*CachedAuthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SessionStore) load() (*CachedAuthState, bool) {
	data, err := s.storage.Load()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var state CachedAuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false
	}
	return &state, true
}

// IsValid reports whether a cached state exists, is younger than the TTL,
// carries an unexpired token, and the token belongs to the cached identity.
func (s *SessionStore) IsValid() bool {
	_, ok := s.Valid()
	return ok
}

// Valid returns the cached state when [SessionStore.IsValid] holds.
func (s *SessionStore) Valid() (*CachedAuthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.load()
	if !ok {
		return nil, false
	}
	now := s.clock.Now()
	if state.CachedAt.IsZero() || !now.Before(state.CachedAt.Add(s.ttl)) {
		return nil, false
	}
	if state.Identity.ID <= 0 || state.Token.UserID != state.Identity.ID || !state.Token.Valid(now) {
		return nil, false
	}
	return state, true
}

// SetToken overwrites the whole cache with token. Nothing of the previous
// state survives: the cached identity is reduced to token.UserID, so callers
// holding the full profile should use [SessionStore.CacheAuthState].
func (s *SessionStore) SetToken(token tgAuth.SessionToken) error {
	if token.Token == "" || token.UserID <= 0 {
		return errors.New("client: token is not bound to a user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(CachedAuthState{
		Identity: tgAuth.VerifiedIdentity{ID: token.UserID},
		Token:    token,
		CachedAt: s.clock.Now(),
	})
}

// CacheAuthState overwrites the cache with identity and token.
func (s *SessionStore) CacheAuthState(identity tgAuth.VerifiedIdentity, token tgAuth.SessionToken) error {
	if identity.ID <= 0 || token.UserID != identity.ID {
		return errors.New("client: token does not belong to identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(CachedAuthState{
		Identity: identity,
		Token:    token,
		CachedAt: s.clock.Now(),
	})
}

func (s *SessionStore) save(state CachedAuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.storage.Save(data)
}

// Token returns the cached session token while the cache is valid.
func (s *SessionStore) Token() (tgAuth.SessionToken, bool) {
	state, ok := s.Valid()
	if !ok {
		return tgAuth.SessionToken{}, false
	}
	return state.Token, true
}

// Clear removes the whole cached state.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Clear()
}
