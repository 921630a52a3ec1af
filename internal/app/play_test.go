package app_test

import (
	"sync/atomic"
	"testing"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"
)

func playQuiz(windowSeconds int) *domain.Quiz {
	return &domain.Quiz{
		ID:              "quiz-1",
		QuestionSeconds: windowSeconds,
		Questions: []domain.Question{
			{Prompt: "First", Options: []string{"a", "b"}, Correct: 0},
			{Prompt: "Second", Options: []string{"a", "b"}, Correct: 1},
		},
	}
}

func TestPlayRunRequiresSnapshot(t *testing.T) {
	if _, err := app.NewPlayRun(domain.Session{}, nil); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestBeginSubtractsElapsedFromStartedSessions(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	now := started.Add(12 * time.Second)

	run, err := app.NewPlayRunWithClock(domain.Session{
		Snapshot:  playQuiz(30),
		StartedAt: &started,
	}, nil, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	defer run.Stop()

	view := run.Begin()
	if view.Index != 0 || view.Total != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Remaining != 18*time.Second {
		t.Fatalf("expected 18s remaining, got %v", view.Remaining)
	}
}

func TestBeginUsesFullWindowWithoutStartTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run, err := app.NewPlayRunWithClock(domain.Session{Snapshot: playQuiz(30)}, nil,
		func() time.Time { return now })
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	defer run.Stop()

	if view := run.Begin(); view.Remaining != 30*time.Second {
		t.Fatalf("expected full 30s countdown, got %v", view.Remaining)
	}
}

func TestSubmitStopsCountdownAndRejectsRepeats(t *testing.T) {
	var expirations int32
	run, err := app.NewPlayRun(domain.Session{Snapshot: playQuiz(1)},
		func(int, time.Duration) { atomic.AddInt32(&expirations, 1) })
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	defer run.Stop()
	run.Begin()

	if _, ok := run.Submit(0); !ok {
		t.Fatalf("expected first submit accepted")
	}
	if _, ok := run.Submit(0); ok {
		t.Fatalf("expected repeat submit rejected")
	}
	if _, ok := run.Submit(1); ok {
		t.Fatalf("expected stale index rejected")
	}

	// The answered question's countdown must not fire afterwards.
	time.Sleep(1200 * time.Millisecond)
	if n := atomic.LoadInt32(&expirations); n != 0 {
		t.Fatalf("expected no expirations after submit, got %d", n)
	}
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	var expirations int32
	done := make(chan int, 1)
	started := time.Now().Add(-29*time.Second - 900*time.Millisecond)
	run, err := app.NewPlayRun(domain.Session{
		Snapshot:  playQuiz(30),
		StartedAt: &started,
	}, func(index int, _ time.Duration) {
		if atomic.AddInt32(&expirations, 1) == 1 {
			done <- index
		}
	})
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	defer run.Stop()

	// ~100ms of the first window remain.
	run.Begin()

	select {
	case index := <-done:
		if index != 0 {
			t.Fatalf("expected question 0 to expire, got %d", index)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never expired")
	}

	// Give a duplicate firing a chance to show up.
	time.Sleep(200 * time.Millisecond)
	if n := atomic.LoadInt32(&expirations); n != 1 {
		t.Fatalf("expected exactly one expiry, got %d", n)
	}
}

func TestAdvanceWalksToCompletion(t *testing.T) {
	run, err := app.NewPlayRun(domain.Session{Snapshot: playQuiz(30)}, nil)
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	defer run.Stop()

	run.Begin()
	if _, ok := run.Submit(0); !ok {
		t.Fatalf("submit q0 rejected")
	}
	next, more := run.Advance()
	if !more || next.Index != 1 {
		t.Fatalf("expected question 1, got more=%v view=%+v", more, next)
	}
	if _, ok := run.Submit(1); !ok {
		t.Fatalf("submit q1 rejected")
	}
	if _, more := run.Advance(); more {
		t.Fatalf("expected run finished after last question")
	}
	if !run.Done() {
		t.Fatalf("expected Done after walking past the last question")
	}
}
