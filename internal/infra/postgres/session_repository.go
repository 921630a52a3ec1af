package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"globalquiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionRepository persists session rows in Postgres.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, pin, host_id, quiz_id, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.PIN, session.HostID, session.QuizID, string(session.Status), session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, pin, host_id, quiz_id, status, snapshot, started_at, created_at FROM sessions WHERE id=$1`, id))
}

// GetByPIN prefers live sessions over completed ones carrying the same PIN.
func (r *SessionRepository) GetByPIN(ctx context.Context, pin string) (domain.Session, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, pin, host_id, quiz_id, status, snapshot, started_at, created_at
		 FROM sessions WHERE pin=$1
		 ORDER BY (status = 'completed') ASC, created_at DESC
		 LIMIT 1`, pin))
}

func (r *SessionRepository) Start(ctx context.Context, id string, snapshot domain.Quiz, startedAt time.Time) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET status='active', snapshot=$2, started_at=$3 WHERE id=$1`,
		id, raw, startedAt,
	)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Complete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET status='completed' WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) scanOne(row pgx.Row) (domain.Session, error) {
	var (
		session   domain.Session
		status    string
		snapshot  []byte
		startedAt *time.Time
	)
	err := row.Scan(&session.ID, &session.PIN, &session.HostID, &session.QuizID, &status, &snapshot, &startedAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.Status = domain.SessionStatus(status)
	session.StartedAt = startedAt
	if len(snapshot) > 0 {
		var quiz domain.Quiz
		if err := json.Unmarshal(snapshot, &quiz); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		session.Snapshot = &quiz
	}
	return session, nil
}
