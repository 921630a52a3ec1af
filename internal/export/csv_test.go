package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"testing"
	"time"

	"globalquiz-service/internal/domain"
)

func TestWriteLeaderboard(t *testing.T) {
	lb := domain.Leaderboard{
		SessionID: "s1",
		Entries: []domain.LeaderboardEntry{
			{Position: 1, Nickname: "Mario", Score: 100, TotalMs: 10000, Correct: 2},
			{Position: 2, Nickname: "Luigi", Score: 50, TotalMs: 12500, Correct: 1},
		},
	}

	var buf bytes.Buffer
	if err := WriteLeaderboard(&buf, lb); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if !reflect.DeepEqual(rows[1], []string{"1", "Mario", "100", "10.0", "2"}) {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if !reflect.DeepEqual(rows[2], []string{"2", "Luigi", "50", "12.5", "1"}) {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	want := "quiz-results-2025-03-01T10:30:00Z.csv"
	if got := Filename(now); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
