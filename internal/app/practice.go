package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"globalquiz-service/internal/domain"

	"github.com/google/uuid"
)

// PracticeRepository persists finished practice attempts. EnsureQuiz creates
// the parent quiz row when the attempt insert fails on a missing reference.
type PracticeRepository interface {
	InsertAttempt(ctx context.Context, attempt domain.PracticeAttempt) error
	EnsureQuiz(ctx context.Context, quiz domain.Quiz) error
}

// PracticeFeedback is the immediate per-question feedback of practice mode.
type PracticeFeedback struct {
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
	Score         int    `json:"score"`
	Done          bool   `json:"done"`
}

// PracticeStart describes a freshly started attempt.
type PracticeStart struct {
	AttemptID string         `json:"attemptId"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

type practiceRun struct {
	attempt domain.PracticeAttempt
	quiz    domain.Quiz
}

// PracticeService runs the non-live linear flow: load, answer with immediate
// feedback, finish, persist.
type PracticeService struct {
	quizzes  QuizRepository
	attempts PracticeRepository
	clock    func() time.Time

	mu     sync.Mutex
	active map[string]*practiceRun
}

func NewPracticeService(quizzes QuizRepository, attempts PracticeRepository) *PracticeService {
	return NewPracticeServiceWithClock(quizzes, attempts, time.Now)
}

// NewPracticeServiceWithClock allows deterministic timestamps in tests.
func NewPracticeServiceWithClock(quizzes QuizRepository, attempts PracticeRepository, now func() time.Time) *PracticeService {
	return &PracticeService{
		quizzes:  quizzes,
		attempts: attempts,
		clock:    now,
		active:   make(map[string]*practiceRun),
	}
}

// StartAttempt loads the quiz and opens a new in-memory attempt.
func (s *PracticeService) StartAttempt(ctx context.Context, quizID, email string) (PracticeStart, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return PracticeStart{}, err
	}

	attempt := domain.PracticeAttempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		Email:     email,
		Answers:   []domain.AnswerRecord{},
		StartedAt: s.clock(),
	}
	s.mu.Lock()
	s.active[attempt.ID] = &practiceRun{attempt: attempt, quiz: quiz}
	s.mu.Unlock()

	views := make([]QuestionView, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		views = append(views, QuestionView{
			Index:    i,
			Total:    len(quiz.Questions),
			Prompt:   q.Prompt,
			Options:  q.Options,
			ImageURL: q.ImageURL,
		})
	}
	return PracticeStart{AttemptID: attempt.ID, Title: quiz.Title, Questions: views}, nil
}

// Answer records the next answer and returns immediate feedback including
// the correct option and explanation. First answer wins.
func (s *PracticeService) Answer(ctx context.Context, attemptID string, questionIdx, answer int, elapsed time.Duration) (PracticeFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.active[attemptID]
	if !ok {
		return PracticeFeedback{}, domain.ErrAttemptNotFound
	}
	total := len(run.quiz.Questions)
	if questionIdx < 0 || questionIdx >= total {
		return PracticeFeedback{}, domain.ErrQuestionNotFound
	}
	if questionIdx < len(run.attempt.Answers) {
		record := run.attempt.Answers[questionIdx]
		q := run.quiz.Questions[questionIdx]
		return PracticeFeedback{
			Correct:       record.Correct,
			CorrectOption: q.Correct,
			Explanation:   q.Explanation,
			Score:         run.attempt.Score,
			Done:          len(run.attempt.Answers) == total,
		}, nil
	}
	if questionIdx > len(run.attempt.Answers) {
		return PracticeFeedback{}, domain.ErrAnswerOutOfOrder
	}

	q := run.quiz.Questions[questionIdx]
	correct := answer == q.Correct && answer != domain.NoAnswer
	run.attempt.Answers = append(run.attempt.Answers, domain.AnswerRecord{
		Answer:    answer,
		ElapsedMs: elapsed.Milliseconds(),
		Correct:   correct,
	})
	run.attempt.Score = domain.PercentScore(correctCount(run.attempt.Answers), total)

	return PracticeFeedback{
		Correct:       correct,
		CorrectOption: q.Correct,
		Explanation:   q.Explanation,
		Score:         run.attempt.Score,
		Done:          len(run.attempt.Answers) == total,
	}, nil
}

// Finish persists the attempt with three escalating recovery tiers: a direct
// insert, a retry with a fresh id, and finally synthesizing the missing
// parent quiz row before one last insert. Each tier runs only after the
// previous one failed.
func (s *PracticeService) Finish(ctx context.Context, attemptID string) (domain.PracticeAttempt, error) {
	s.mu.Lock()
	run, ok := s.active[attemptID]
	if !ok {
		s.mu.Unlock()
		return domain.PracticeAttempt{}, domain.ErrAttemptNotFound
	}
	attempt := run.attempt
	quiz := run.quiz
	s.mu.Unlock()

	attempt.FinishedAt = s.clock()

	err := s.attempts.InsertAttempt(ctx, attempt)
	if err != nil {
		log.Printf("practice save failed, retrying with fresh id: %v", err)
		attempt.ID = uuid.NewString()
		err = s.attempts.InsertAttempt(ctx, attempt)
	}
	if err != nil {
		log.Printf("practice save failed again, ensuring quiz row: %v", err)
		if ensureErr := s.attempts.EnsureQuiz(ctx, quiz); ensureErr != nil {
			return domain.PracticeAttempt{}, fmt.Errorf("save practice attempt: %w", err)
		}
		err = s.attempts.InsertAttempt(ctx, attempt)
	}
	if err != nil {
		return domain.PracticeAttempt{}, fmt.Errorf("save practice attempt: %w", err)
	}

	s.mu.Lock()
	delete(s.active, attemptID)
	s.mu.Unlock()
	return attempt, nil
}
