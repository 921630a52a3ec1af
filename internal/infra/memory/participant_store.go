package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"globalquiz-service/internal/domain"
)

// ParticipantStore is an in-memory implementation of app.ParticipantRepository.
// Rows are keyed by lowercased nickname, matching the case-insensitive
// uniqueness rule.
type ParticipantStore struct {
	mu   sync.RWMutex
	rows map[string]map[string]domain.Participant
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{rows: make(map[string]map[string]domain.Participant)}
}

func (s *ParticipantStore) List(_ context.Context, sessionID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make([]domain.Participant, 0, len(s.rows[sessionID]))
	for _, p := range s.rows[sessionID] {
		participants = append(participants, p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	return participants, nil
}

func (s *ParticipantStore) Get(_ context.Context, sessionID, nickname string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[sessionID][strings.ToLower(nickname)]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *ParticipantStore) Upsert(_ context.Context, participant domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.rows[participant.SessionID]
	if !ok {
		session = make(map[string]domain.Participant)
		s.rows[participant.SessionID] = session
	}
	session[strings.ToLower(participant.Nickname)] = participant
	return nil
}

func (s *ParticipantStore) SaveAnswers(_ context.Context, sessionID, nickname string, answers []domain.AnswerRecord, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(nickname)
	p, ok := s.rows[sessionID][key]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.Answers = answers
	p.Score = score
	s.rows[sessionID][key] = p
	return nil
}

func (s *ParticipantStore) Delete(_ context.Context, sessionID, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows[sessionID], strings.ToLower(nickname))
	return nil
}
