package app

import (
	"context"
	"time"

	"globalquiz-service/internal/domain"
)

// The hosted store behind the original client throttled bursts of requests,
// so every mutating call is preceded by a small configurable delay. This is
// a backpressure shim, not a correctness mechanism.

func pace(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

type pacedSessions struct {
	SessionRepository
	delay time.Duration
}

// PaceSessions wraps a session repository so each mutating call waits for
// the configured delay first. A non-positive delay disables the shim.
func PaceSessions(repo SessionRepository, delay time.Duration) SessionRepository {
	if delay <= 0 {
		return repo
	}
	return &pacedSessions{SessionRepository: repo, delay: delay}
}

func (p *pacedSessions) Create(ctx context.Context, session domain.Session) error {
	pace(ctx, p.delay)
	return p.SessionRepository.Create(ctx, session)
}

func (p *pacedSessions) Start(ctx context.Context, id string, snapshot domain.Quiz, startedAt time.Time) error {
	pace(ctx, p.delay)
	return p.SessionRepository.Start(ctx, id, snapshot, startedAt)
}

func (p *pacedSessions) Complete(ctx context.Context, id string) error {
	pace(ctx, p.delay)
	return p.SessionRepository.Complete(ctx, id)
}

type pacedParticipants struct {
	ParticipantRepository
	delay time.Duration
}

// PaceParticipants is the participant-side counterpart of PaceSessions.
func PaceParticipants(repo ParticipantRepository, delay time.Duration) ParticipantRepository {
	if delay <= 0 {
		return repo
	}
	return &pacedParticipants{ParticipantRepository: repo, delay: delay}
}

func (p *pacedParticipants) Upsert(ctx context.Context, participant domain.Participant) error {
	pace(ctx, p.delay)
	return p.ParticipantRepository.Upsert(ctx, participant)
}

func (p *pacedParticipants) SaveAnswers(ctx context.Context, sessionID, nickname string, answers []domain.AnswerRecord, score int) error {
	pace(ctx, p.delay)
	return p.ParticipantRepository.SaveAnswers(ctx, sessionID, nickname, answers, score)
}

func (p *pacedParticipants) Delete(ctx context.Context, sessionID, nickname string) error {
	pace(ctx, p.delay)
	return p.ParticipantRepository.Delete(ctx, sessionID, nickname)
}
