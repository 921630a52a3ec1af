package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches the PIN or id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when the matched session is already completed.
	ErrSessionEnded = errors.New("session already ended")
	// ErrSessionNotStarted is returned for answers submitted while the session
	// is still in the waiting room.
	ErrSessionNotStarted = errors.New("session not started yet")
	// ErrNicknameTaken is returned when the nickname is already used in the session.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrInvalidNickname is returned for nicknames outside 2-20 letters, digits or spaces.
	ErrInvalidNickname = errors.New("nickname must be 2-20 letters, digits or spaces")
	// ErrUnauthorized is returned when a join token is missing, expired or unknown.
	ErrUnauthorized = errors.New("missing or invalid join token")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question index is out of range.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAnswerOutOfOrder indicates an answer skipped ahead of the current question.
	ErrAnswerOutOfOrder = errors.New("answer out of order")
	// ErrParticipantNotFound is returned when a nickname is not registered in the session.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrAttemptNotFound is returned when a practice attempt id is unknown.
	ErrAttemptNotFound = errors.New("practice attempt not found")
	// ErrPINExhausted is returned when no free PIN could be reserved.
	ErrPINExhausted = errors.New("no free pin available")
	// ErrExhaustedRetries wraps the last error once the retry ceiling is reached.
	ErrExhaustedRetries = errors.New("retry ceiling reached")
)
