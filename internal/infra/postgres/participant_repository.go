package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"globalquiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ParticipantRepository persists participant rows in Postgres. Uniqueness
// per session is case-insensitive, enforced by a unique index on
// (session_id, lower(nickname)).
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

func (r *ParticipantRepository) List(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, nickname, email, score, answers, joined_at
		 FROM participants WHERE session_id=$1 ORDER BY joined_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *ParticipantRepository) Get(ctx context.Context, sessionID, nickname string) (domain.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT session_id, nickname, email, score, answers, joined_at
		 FROM participants WHERE session_id=$1 AND lower(nickname)=lower($2)`, sessionID, nickname)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, err
}

func (r *ParticipantRepository) Upsert(ctx context.Context, participant domain.Participant) error {
	answers, err := json.Marshal(participant.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO participants (session_id, nickname, email, score, answers, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, lower(nickname))
		 DO UPDATE SET email=EXCLUDED.email`,
		participant.SessionID, participant.Nickname, participant.Email,
		participant.Score, answers, participant.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) SaveAnswers(ctx context.Context, sessionID, nickname string, records []domain.AnswerRecord, score int) error {
	answers, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET answers=$3, score=$4
		 WHERE session_id=$1 AND lower(nickname)=lower($2)`,
		sessionID, nickname, answers, score,
	)
	if err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (r *ParticipantRepository) Delete(ctx context.Context, sessionID, nickname string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM participants WHERE session_id=$1 AND lower(nickname)=lower($2)`, sessionID, nickname)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var (
		p   domain.Participant
		raw []byte
	)
	if err := row.Scan(&p.SessionID, &p.Nickname, &p.Email, &p.Score, &raw, &p.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Participant{}, err
		}
		return domain.Participant{}, fmt.Errorf("scan participant: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Answers); err != nil {
			return domain.Participant{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return p, nil
}
