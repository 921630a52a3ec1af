package memory

import (
	"context"
	"sync"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"
)

// TokenStore keeps join tokens in memory with per-token expiry.
type TokenStore struct {
	clock func() time.Time

	mu     sync.RWMutex
	tokens map[string]tokenEntry
}

type tokenEntry struct {
	data      app.TokenData
	expiresAt time.Time
}

func NewTokenStore() *TokenStore {
	return NewTokenStoreWithClock(time.Now)
}

// NewTokenStoreWithClock allows deterministic expiry in tests.
func NewTokenStoreWithClock(now func() time.Time) *TokenStore {
	return &TokenStore{clock: now, tokens: make(map[string]tokenEntry)}
}

func (s *TokenStore) Issue(_ context.Context, token string, data app.TokenData, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = tokenEntry{data: data, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *TokenStore) Resolve(_ context.Context, token string) (app.TokenData, error) {
	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return app.TokenData{}, domain.ErrUnauthorized
	}
	if s.clock().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return app.TokenData{}, domain.ErrUnauthorized
	}
	return entry.data, nil
}

func (s *TokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
