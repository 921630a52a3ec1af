package app

import (
	"sync"
	"time"

	"globalquiz-service/internal/domain"
)

// QuestionView is what a player is shown for one question.
type QuestionView struct {
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Prompt    string        `json:"prompt"`
	Options   []string      `json:"options"`
	ImageURL  string        `json:"imageUrl,omitempty"`
	Remaining time.Duration `json:"-"`
}

// PlayRun drives one player through the questions of an active session.
// Each question has a countdown; when it reaches zero, onExpire fires
// exactly once with the no-answer sentinel flow expected to follow.
// The first answer for a question wins; repeats are rejected.
type PlayRun struct {
	quiz      domain.Quiz
	startedAt *time.Time
	clock     func() time.Time
	onExpire  func(index int, window time.Duration)

	mu       sync.Mutex
	idx      int
	shownAt  time.Time
	window   time.Duration
	answered bool
	done     bool
	gen      int
	timer    *time.Timer
}

// NewPlayRun builds a run from a hydrated session.
func NewPlayRun(session domain.Session, onExpire func(index int, window time.Duration)) (*PlayRun, error) {
	return NewPlayRunWithClock(session, onExpire, time.Now)
}

// NewPlayRunWithClock allows deterministic timestamps in tests.
func NewPlayRunWithClock(session domain.Session, onExpire func(index int, window time.Duration), now func() time.Time) (*PlayRun, error) {
	if session.Snapshot == nil || len(session.Snapshot.Questions) == 0 {
		return nil, domain.ErrQuizNotFound
	}
	return &PlayRun{
		quiz:      *session.Snapshot,
		startedAt: session.StartedAt,
		clock:     now,
		onExpire:  onExpire,
	}, nil
}

// Begin shows the first question and arms its countdown. When the session
// carries a start timestamp the first window is the remainder of the
// configured duration; without one a fresh full countdown starts.
func (r *PlayRun) Begin() QuestionView {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	window := r.quiz.QuestionWindow()
	if r.startedAt != nil {
		if elapsed := now.Sub(*r.startedAt); elapsed > 0 {
			window -= elapsed
		}
		if window < 0 {
			window = 0
		}
	}

	r.idx = 0
	r.shownAt = now
	r.window = window
	r.answered = false
	r.armLocked(window)
	return r.viewLocked()
}

// Submit accepts the first answer for the current question and reports the
// time elapsed since it was shown. Repeated or stale submissions return
// ok=false and leave the recorded state untouched.
func (r *PlayRun) Submit(index int) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done || r.answered || index != r.idx {
		return 0, false
	}
	r.answered = true
	r.disarmLocked()
	return r.clock().Sub(r.shownAt), true
}

// Advance moves to the next question with a full countdown, or reports the
// run finished after the last one.
func (r *PlayRun) Advance() (QuestionView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return QuestionView{}, false
	}
	if r.idx+1 >= len(r.quiz.Questions) {
		r.done = true
		r.disarmLocked()
		return QuestionView{}, false
	}
	r.idx++
	r.shownAt = r.clock()
	r.window = r.quiz.QuestionWindow()
	r.answered = false
	r.armLocked(r.window)
	return r.viewLocked(), true
}

// Current returns the question currently shown.
func (r *PlayRun) Current() QuestionView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Done reports whether the run walked past the last question.
func (r *PlayRun) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Stop cancels the countdown; the run accepts no further input.
func (r *PlayRun) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.disarmLocked()
}

func (r *PlayRun) armLocked(window time.Duration) {
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(window, func() { r.expire(gen) })
}

func (r *PlayRun) disarmLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
	}
}

func (r *PlayRun) expire(gen int) {
	r.mu.Lock()
	if r.done || r.answered || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.answered = true
	index := r.idx
	window := r.window
	r.mu.Unlock()

	if r.onExpire != nil {
		r.onExpire(index, window)
	}
}

func (r *PlayRun) viewLocked() QuestionView {
	q := r.quiz.Questions[r.idx]
	remaining := r.window - r.clock().Sub(r.shownAt)
	if remaining < 0 {
		remaining = 0
	}
	return QuestionView{
		Index:     r.idx,
		Total:     len(r.quiz.Questions),
		Prompt:    q.Prompt,
		Options:   q.Options,
		ImageURL:  q.ImageURL,
		Remaining: remaining,
	}
}
