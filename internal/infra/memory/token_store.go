package memory

import (
	"context"
	"sync"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
)

// TokenStore is an in-memory implementation of app.TokenStore.
type TokenStore struct {
	mu     sync.RWMutex
	clock  func() time.Time
	tokens map[string]tokenEntry
}

type tokenEntry struct {
	identity  app.Identity
	expiresAt time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{clock: time.Now, tokens: make(map[string]tokenEntry)}
}

// WithClock is test-only for deterministic expiry.
func (s *TokenStore) WithClock(clock func() time.Time) *TokenStore {
	s.clock = clock
	return s
}

func (s *TokenStore) Save(_ context.Context, token string, identity app.Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = tokenEntry{identity: identity, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *TokenStore) Lookup(_ context.Context, token string) (app.Identity, error) {
	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok || entry.expiresAt.Before(s.clock()) {
		return app.Identity{}, domain.ErrTokenNotFound
	}
	return entry.identity, nil
}

func (s *TokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return domain.ErrTokenNotFound
	}
	delete(s.tokens, token)
	return nil
}
