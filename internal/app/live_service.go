package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
	"sync"
	"time"

	"globalquiz-service/internal/domain"

	"github.com/google/uuid"
)

// SessionRepository persists live session rows.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id string) (domain.Session, error)
	// GetByPIN prefers a non-completed session; a completed match is still
	// returned so Join can distinguish ended sessions from unknown PINs.
	GetByPIN(ctx context.Context, pin string) (domain.Session, error)
	Start(ctx context.Context, id string, snapshot domain.Quiz, startedAt time.Time) error
	Complete(ctx context.Context, id string) error
}

// ParticipantRepository persists per-session participant rows.
type ParticipantRepository interface {
	List(ctx context.Context, sessionID string) ([]domain.Participant, error)
	Get(ctx context.Context, sessionID, nickname string) (domain.Participant, error)
	Upsert(ctx context.Context, participant domain.Participant) error
	// SaveAnswers rewrites the full answers array plus the recomputed score.
	SaveAnswers(ctx context.Context, sessionID, nickname string, answers []domain.AnswerRecord, score int) error
	Delete(ctx context.Context, sessionID, nickname string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// TokenData is the identity bound to an issued join token.
type TokenData struct {
	SessionID string `json:"sessionId"`
	PIN       string `json:"pin"`
	QuizID    string `json:"quizId"`
	Nickname  string `json:"nickname,omitempty"`
	Email     string `json:"email,omitempty"`
}

// TokenStore keeps join tokens. Resolve returns domain.ErrUnauthorized for
// unknown or expired tokens.
type TokenStore interface {
	Issue(ctx context.Context, token string, data TokenData, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (TokenData, error)
	Revoke(ctx context.Context, token string) error
}

// PINAllocator mints six-digit PINs unique among non-completed sessions.
type PINAllocator interface {
	Mint(ctx context.Context, sessionID string) (string, error)
	Release(ctx context.Context, pin string) error
}

// Deps bundles the collaborators of LiveService.
type Deps struct {
	Sessions     SessionRepository
	Participants ParticipantRepository
	Quizzes      QuizRepository
	Tokens       TokenStore
	PINs         PINAllocator
	TokenTTL     time.Duration
	Clock        func() time.Time
}

// LiveService implements the live session lifecycle: PIN join, nickname
// registration, waiting room, play and leaderboard.
type LiveService struct {
	sessions     SessionRepository
	participants ParticipantRepository
	quizzes      QuizRepository
	tokens       TokenStore
	pins         PINAllocator
	tokenTTL     time.Duration
	clock        func() time.Time

	mu   sync.Mutex
	hubs map[string]*sessionHub
}

func NewLiveService(deps Deps) *LiveService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &LiveService{
		sessions:     deps.Sessions,
		participants: deps.Participants,
		quizzes:      deps.Quizzes,
		tokens:       deps.Tokens,
		pins:         deps.PINs,
		tokenTTL:     ttl,
		clock:        clock,
		hubs:         make(map[string]*sessionHub),
	}
}

// JoinGrant is the result of a successful PIN lookup.
type JoinGrant struct {
	Token   string
	Session domain.Session
}

// RegisterResult reports where a registered participant should go next:
// the waiting room when the session is still waiting, play when active.
type RegisterResult struct {
	Session     domain.Session
	Participant domain.Participant
}

// AnswerOutcome summarizes one recorded answer.
type AnswerOutcome struct {
	Record domain.AnswerRecord
	Score  int
	Done   bool
	Repeat bool
}

// CreateSession mints a PIN and creates a waiting session for a quiz.
func (s *LiveService) CreateSession(ctx context.Context, hostID, quizID string) (domain.Session, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Session{}, err
	}

	id := uuid.NewString()
	code, err := s.pins.Mint(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{
		ID:        id,
		PIN:       code,
		HostID:    hostID,
		QuizID:    quizID,
		Status:    domain.StatusWaiting,
		CreatedAt: s.clock(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		_ = s.pins.Release(ctx, code)
		return domain.Session{}, err
	}
	return session, nil
}

// JoinByPIN validates a PIN and issues a join token bound to the session.
func (s *LiveService) JoinByPIN(ctx context.Context, pin string) (JoinGrant, error) {
	session, err := s.sessions.GetByPIN(ctx, pin)
	if err != nil {
		return JoinGrant{}, err
	}
	if session.Status == domain.StatusCompleted {
		return JoinGrant{}, domain.ErrSessionEnded
	}

	token, err := newToken()
	if err != nil {
		return JoinGrant{}, err
	}
	data := TokenData{SessionID: session.ID, PIN: session.PIN, QuizID: session.QuizID}
	if err := s.tokens.Issue(ctx, token, data, s.tokenTTL); err != nil {
		return JoinGrant{}, err
	}
	return JoinGrant{Token: token, Session: session}, nil
}

// Register binds a nickname to the join token and upserts the participant.
// Uniqueness is checked case-insensitively against a fresh roster read.
func (s *LiveService) Register(ctx context.Context, token, nickname, email string) (RegisterResult, error) {
	data, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := domain.ValidateNickname(nickname); err != nil {
		return RegisterResult{}, err
	}
	nickname = strings.TrimSpace(nickname)

	session, err := s.sessions.GetByID(ctx, data.SessionID)
	if err != nil {
		return RegisterResult{}, err
	}
	if session.Status == domain.StatusCompleted {
		return RegisterResult{}, domain.ErrSessionEnded
	}

	roster, err := s.participants.List(ctx, session.ID)
	if err != nil {
		return RegisterResult{}, err
	}
	for _, p := range roster {
		if strings.EqualFold(p.Nickname, nickname) {
			return RegisterResult{}, domain.ErrNicknameTaken
		}
	}

	participant := domain.Participant{
		SessionID: session.ID,
		Nickname:  nickname,
		Email:     email,
		Answers:   []domain.AnswerRecord{},
		JoinedAt:  s.clock(),
	}
	if err := s.participants.Upsert(ctx, participant); err != nil {
		return RegisterResult{}, err
	}

	data.Nickname = nickname
	data.Email = email
	if err := s.tokens.Issue(ctx, token, data, s.tokenTTL); err != nil {
		return RegisterResult{}, err
	}

	s.hub(session.ID).broadcast(SessionEvent{Type: EventRoster, Participant: &participant})
	return RegisterResult{Session: session, Participant: participant}, nil
}

// Start flips the session from waiting to active, snapshotting the quiz
// content and stamping the start time. Calling it again is a no-op.
func (s *LiveService) Start(ctx context.Context, sessionID, hostID string) (domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.HostID != hostID {
		return domain.Session{}, domain.ErrUnauthorized
	}
	switch session.Status {
	case domain.StatusCompleted:
		return domain.Session{}, domain.ErrSessionEnded
	case domain.StatusActive:
		return s.HydratedSession(ctx, sessionID)
	}

	snapshot := session.Snapshot
	if snapshot == nil {
		quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
		if err != nil {
			return domain.Session{}, err
		}
		snapshot = &quiz
	}
	startedAt := s.clock()
	if err := s.sessions.Start(ctx, sessionID, *snapshot, startedAt); err != nil {
		return domain.Session{}, err
	}
	session.Status = domain.StatusActive
	session.Snapshot = snapshot
	session.StartedAt = &startedAt

	hub := s.hub(sessionID)
	if hub.activate() {
		hub.broadcast(SessionEvent{Type: EventActivated, Session: &session})
	}
	return session, nil
}

// HydratedSession loads a session and guarantees its quiz snapshot is
// populated, fetching the template when the snapshot is absent.
func (s *LiveService) HydratedSession(ctx context.Context, id string) (domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Snapshot == nil {
		quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
		if err != nil {
			return domain.Session{}, err
		}
		session.Snapshot = &quiz
	}
	return session, nil
}

// SubmitAnswer records the first answer for the participant's next question.
// Repeated submissions for an already-answered question return the stored
// record unchanged. Answering the last question completes the session.
func (s *LiveService) SubmitAnswer(ctx context.Context, token string, questionIdx, answer int, elapsed time.Duration) (AnswerOutcome, error) {
	data, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if data.Nickname == "" {
		return AnswerOutcome{}, domain.ErrUnauthorized
	}

	session, err := s.HydratedSession(ctx, data.SessionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if session.Status == domain.StatusWaiting {
		return AnswerOutcome{}, domain.ErrSessionNotStarted
	}
	quiz := *session.Snapshot
	if questionIdx < 0 || questionIdx >= len(quiz.Questions) {
		return AnswerOutcome{}, domain.ErrQuestionNotFound
	}

	participant, err := s.participants.Get(ctx, session.ID, data.Nickname)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if questionIdx < len(participant.Answers) {
		// First answer wins.
		return AnswerOutcome{
			Record: participant.Answers[questionIdx],
			Score:  participant.Score,
			Done:   len(participant.Answers) == len(quiz.Questions),
			Repeat: true,
		}, nil
	}
	if questionIdx > len(participant.Answers) {
		return AnswerOutcome{}, domain.ErrAnswerOutOfOrder
	}

	record := domain.AnswerRecord{
		Answer:    answer,
		ElapsedMs: elapsed.Milliseconds(),
		Correct:   answer == quiz.Questions[questionIdx].Correct && answer != domain.NoAnswer,
	}
	answers := append(append([]domain.AnswerRecord{}, participant.Answers...), record)
	score := domain.PercentScore(correctCount(answers), len(quiz.Questions))
	if err := s.participants.SaveAnswers(ctx, session.ID, participant.Nickname, answers, score); err != nil {
		return AnswerOutcome{}, err
	}

	if lb, lerr := s.Leaderboard(ctx, session.ID); lerr == nil {
		s.hub(session.ID).broadcast(SessionEvent{Type: EventLeaderboard, Leaderboard: &lb})
	}

	done := len(answers) == len(quiz.Questions)
	if done {
		if err := s.Complete(ctx, session.ID); err != nil {
			log.Printf("complete session %s: %v", session.ID, err)
		}
		s.maybeReleaseHub(ctx, session.ID, len(quiz.Questions))
	}
	return AnswerOutcome{Record: record, Score: score, Done: done}, nil
}

// Complete flips the session to completed, releases its PIN and notifies
// subscribers with the final leaderboard. Idempotent.
func (s *LiveService) Complete(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusCompleted {
		return nil
	}
	if err := s.sessions.Complete(ctx, sessionID); err != nil {
		return err
	}
	if err := s.pins.Release(ctx, session.PIN); err != nil {
		log.Printf("release pin %s: %v", session.PIN, err)
	}

	if lb, lerr := s.Leaderboard(ctx, sessionID); lerr == nil {
		s.hub(sessionID).broadcast(SessionEvent{Type: EventCompleted, Leaderboard: &lb})
	}
	return nil
}

// maybeReleaseHub drops the hub once every registered participant has walked
// through all questions. Completion flips on the first finisher, but the
// stragglers still submit answers and their leaderboard updates must keep
// reaching subscribers until the roster is done.
func (s *LiveService) maybeReleaseHub(ctx context.Context, sessionID string, total int) {
	roster, err := s.participants.List(ctx, sessionID)
	if err != nil {
		return
	}
	for _, p := range roster {
		if len(p.Answers) < total {
			return
		}
	}
	s.dropHub(sessionID)
}

// Leaderboard returns the ranked scoreboard of a session.
func (s *LiveService) Leaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	participants, err := s.participants.List(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Rank(sessionID, participants, s.clock()), nil
}

// Subscribe returns a channel receiving session events (roster joins, the
// activation flip, leaderboard updates, completion). The caller must invoke
// the returned cancel function to avoid leaks.
func (s *LiveService) Subscribe(ctx context.Context, sessionID string) (<-chan SessionEvent, func(), error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	lb, err := s.Leaderboard(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub(sessionID).subscribe(SessionEvent{Type: EventLeaderboard, Leaderboard: &lb})
	return ch, cancel, nil
}

// ResolveToken exposes the identity behind a join token to the transport.
func (s *LiveService) ResolveToken(ctx context.Context, token string) (TokenData, error) {
	return s.tokens.Resolve(ctx, token)
}

// Leave removes the participant bound to the token. Removal is best-effort:
// a failed delete is logged and never blocks the caller.
func (s *LiveService) Leave(ctx context.Context, token string) {
	data, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return
	}
	if data.Nickname != "" {
		if err := s.participants.Delete(ctx, data.SessionID, data.Nickname); err != nil {
			log.Printf("remove participant %q from session %s: %v", data.Nickname, data.SessionID, err)
		} else if hub := s.hubIfPresent(data.SessionID); hub != nil {
			if lb, lerr := s.Leaderboard(ctx, data.SessionID); lerr == nil {
				hub.broadcast(SessionEvent{Type: EventLeaderboard, Leaderboard: &lb})
			}
		}
	}
	_ = s.tokens.Revoke(ctx, token)
}

func (s *LiveService) hub(sessionID string) *sessionHub {
	s.mu.Lock()
	defer s.mu.Unlock()
	hub, ok := s.hubs[sessionID]
	if !ok {
		hub = newSessionHub(sessionID)
		s.hubs[sessionID] = hub
	}
	return hub
}

func (s *LiveService) hubIfPresent(sessionID string) *sessionHub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hubs[sessionID]
}

func (s *LiveService) dropHub(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hubs, sessionID)
}

func correctCount(records []domain.AnswerRecord) int {
	n := 0
	for _, r := range records {
		if r.Correct {
			n++
		}
	}
	return n
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
