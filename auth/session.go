package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/querysync/observe"
)

// Session holds the client's bearer token and the identity it describes.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Headers never refreshes a token; an expired session yields ErrTokenExpired.
type Session struct {
	mu       sync.RWMutex
	token    string
	identity *Identity

	keys   KeyProvider
	parser *TokenParser
	store  TokenStore
	now    func() time.Time
	logger observe.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithKeyProvider verifies token signatures on login.
func WithKeyProvider(kp KeyProvider) Option {
	return func(s *Session) {
		s.keys = kp
	}
}

// WithTokenStore persists the token across sessions.
// Default: an in-memory store.
func WithTokenStore(store TokenStore) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a logged out session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		store:  NewMemoryTokenStore(),
		now:    time.Now,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = NewTokenParser(s.keys, s.now)
	return s
}

// Restore logs in with the stored token, if any. An expired stored token is
// cleared and reported as ErrTokenExpired.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	id, err := s.parser.Parse(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			_ = s.store.Clear(ctx)
		}
		return err
	}
	s.set(token, id)
	return nil
}

// Login adopts token as the session credential.
func (s *Session) Login(ctx context.Context, token string) error {
	id, err := s.parser.Parse(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, token); err != nil {
		return err
	}
	s.set(token, id)

	s.logger.Info(ctx, "logged in",
		observe.Field{Key: "user_id", Value: id.UserID},
		observe.Field{Key: "role", Value: id.Role.String()},
	)
	return nil
}

// Logout forgets the token and clears the store.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	id := s.identity
	s.token = ""
	s.identity = nil
	s.mu.Unlock()

	if id != nil {
		s.logger.Info(ctx, "logged out", observe.Field{Key: "user_id", Value: id.UserID})
	}
	return s.store.Clear(ctx)
}

func (s *Session) set(token string, id *Identity) {
	s.mu.Lock()
	s.token = token
	s.identity = id
	s.mu.Unlock()
}

// IsLoggedIn reports whether the session holds an unexpired token.
func (s *Session) IsLoggedIn() bool {
	return s.Identity() != nil
}

// Identity returns a copy of the current identity, or nil when logged out
// or expired.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil || s.identity.IsExpired(s.now()) {
		return nil
	}
	return s.identity.clone()
}

// Token returns the raw bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasPermission reports whether the session's identity ranks at least one
// of the required roles.
func (s *Session) HasPermission(required ...Role) bool {
	return s.Identity().HasPermission(required...)
}

// Headers returns the Authorization header for the session. A logged out
// session yields no headers so public endpoints keep working.
func (s *Session) Headers(context.Context) (map[string]string, error) {
	s.mu.RLock()
	token, id := s.token, s.identity
	s.mu.RUnlock()

	if token == "" {
		return map[string]string{}, nil
	}
	if id.IsExpired(s.now()) {
		return nil, ErrTokenExpired
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// Authorize asks authz whether the session may perform action on resource.
func (s *Session) Authorize(ctx context.Context, authz Authorizer, resource, action string) error {
	if authz == nil {
		return nil
	}
	return authz.Authorize(ctx, &AuthzRequest{
		Subject:  s.Identity(),
		Resource: resource,
		Action:   action,
	})
}
