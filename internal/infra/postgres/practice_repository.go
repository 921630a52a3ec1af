package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"globalquiz-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PracticeRepository persists finished practice attempts in Postgres.
type PracticeRepository struct {
	pool *pgxpool.Pool
}

func NewPracticeRepository(pool *pgxpool.Pool) *PracticeRepository {
	return &PracticeRepository{pool: pool}
}

func (r *PracticeRepository) InsertAttempt(ctx context.Context, attempt domain.PracticeAttempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO practice_attempts (id, quiz_id, email, score, answers, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attempt.ID, attempt.QuizID, attempt.Email, attempt.Score, answers, attempt.StartedAt, attempt.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// EnsureQuiz creates the parent quiz row when the attempt insert failed on
// the foreign key.
func (r *PracticeRepository) EnsureQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		quiz.ID, data,
	)
	if err != nil {
		return fmt.Errorf("ensure quiz: %w", err)
	}
	return nil
}
