package memory

import (
	"context"
	"fmt"
	"sync"

	"globalquiz-service/internal/domain"
)

// PracticeStore is an in-memory implementation of app.PracticeRepository.
// It mimics the relational constraints of the postgres store: duplicate
// attempt ids and missing parent quiz rows both fail the insert, which is
// what drives the practice save fallback tiers.
type PracticeStore struct {
	mu       sync.Mutex
	quizzes  map[string]domain.Quiz
	attempts map[string]domain.PracticeAttempt
}

func NewPracticeStore() *PracticeStore {
	return &PracticeStore{
		quizzes:  make(map[string]domain.Quiz),
		attempts: make(map[string]domain.PracticeAttempt),
	}
}

func (s *PracticeStore) InsertAttempt(_ context.Context, attempt domain.PracticeAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.attempts[attempt.ID]; dup {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	if _, ok := s.quizzes[attempt.QuizID]; !ok {
		return fmt.Errorf("quiz %s missing for attempt %s", attempt.QuizID, attempt.ID)
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *PracticeStore) EnsureQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		s.quizzes[quiz.ID] = quiz
	}
	return nil
}

// Attempt returns a stored attempt, for tests.
func (s *PracticeStore) Attempt(id string) (domain.PracticeAttempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	return attempt, ok
}
