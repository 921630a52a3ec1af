package domain

import (
	"strings"
	"time"
	"unicode"
)

// SessionStatus tracks the lifecycle of a live session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

const (
	// NoAnswer is the sentinel recorded when the countdown expires without input.
	NoAnswer = -1

	// DefaultQuestionSeconds applies when a quiz carries no duration.
	DefaultQuestionSeconds = 30

	nicknameMinLen = 2
	nicknameMaxLen = 20
)

// Question is one multiple-choice question of a quiz.
type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// Quiz holds the content of one quiz template.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	QuestionSeconds int        `json:"questionSeconds,omitempty"`
	Questions       []Question `json:"questions"`
}

// QuestionWindow is the countdown allotted to each question.
func (q Quiz) QuestionWindow() time.Duration {
	secs := q.QuestionSeconds
	if secs <= 0 {
		secs = DefaultQuestionSeconds
	}
	return time.Duration(secs) * time.Second
}

// Session is one live quiz instance, joined by PIN.
// Snapshot is the denormalized quiz content, populated when the host starts
// the session so later reads do not depend on the template row.
type Session struct {
	ID        string        `json:"id"`
	PIN       string        `json:"pin"`
	HostID    string        `json:"hostId"`
	QuizID    string        `json:"quizId"`
	Status    SessionStatus `json:"status"`
	Snapshot  *Quiz         `json:"snapshot,omitempty"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AnswerRecord is one answered (or expired) question. Answer is the chosen
// option index, NoAnswer when the countdown ran out.
type AnswerRecord struct {
	Answer    int   `json:"answer"`
	ElapsedMs int64 `json:"elapsedMs"`
	Correct   bool  `json:"correct"`
}

// Participant is one joined player within a session, identified by nickname.
// Answers are ordered by question index; Score is a 0-100 percentage.
type Participant struct {
	SessionID string         `json:"sessionId"`
	Nickname  string         `json:"nickname"`
	Email     string         `json:"email,omitempty"`
	Score     int            `json:"score"`
	Answers   []AnswerRecord `json:"answers"`
	JoinedAt  time.Time      `json:"joinedAt"`
}

// TotalElapsedMs sums the per-answer times, used as the ranking tie-break.
func (p Participant) TotalElapsedMs() int64 {
	var total int64
	for _, a := range p.Answers {
		total += a.ElapsedMs
	}
	return total
}

// CorrectCount returns how many recorded answers were correct.
func (p Participant) CorrectCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// PracticeAttempt is one finished (or in-flight) non-live quiz run.
type PracticeAttempt struct {
	ID         string         `json:"id"`
	QuizID     string         `json:"quizId"`
	Email      string         `json:"email,omitempty"`
	Score      int            `json:"score"`
	Answers    []AnswerRecord `json:"answers"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// ValidateNickname enforces the 2-20 character letters/digits/spaces rule.
func ValidateNickname(raw string) error {
	name := strings.TrimSpace(raw)
	if len(name) < nicknameMinLen || len(name) > nicknameMaxLen {
		return ErrInvalidNickname
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return ErrInvalidNickname
		}
	}
	return nil
}

// PercentScore converts a correct-answer count into the 0-100 scale.
func PercentScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return correct * 100 / total
}
