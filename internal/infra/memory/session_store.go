package memory

import (
	"context"
	"sync"
	"time"

	"globalquiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *SessionStore) GetByID(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// GetByPIN prefers a live session; when only completed sessions carry the
// PIN the most recent one is returned so callers can report SessionEnded.
func (s *SessionStore) GetByPIN(_ context.Context, pin string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found     bool
		candidate domain.Session
	)
	for _, session := range s.sessions {
		if session.PIN != pin {
			continue
		}
		if session.Status != domain.StatusCompleted {
			return session, nil
		}
		if !found || session.CreatedAt.After(candidate.CreatedAt) {
			candidate = session
			found = true
		}
	}
	if !found {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return candidate, nil
}

func (s *SessionStore) Start(_ context.Context, id string, snapshot domain.Quiz, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = domain.StatusActive
	session.Snapshot = &snapshot
	session.StartedAt = &startedAt
	s.sessions[id] = session
	return nil
}

func (s *SessionStore) Complete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = domain.StatusCompleted
	s.sessions[id] = session
	return nil
}
