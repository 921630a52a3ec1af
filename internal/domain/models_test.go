package domain

import (
	"testing"
	"time"
)

func TestValidateNickname(t *testing.T) {
	cases := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "Mario", true},
		{"with space", "Mario Rossi", true},
		{"with digits", "Player 42", true},
		{"accented letters", "Niccolò", true},
		{"trimmed to valid", "  Anna  ", true},
		{"too short", "M", false},
		{"too long", "abcdefghijklmnopqrstu", false},
		{"punctuation", "Mario!", false},
		{"empty", "", false},
		{"only spaces", "     ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNickname(tc.input)
			if tc.valid && err != nil {
				t.Fatalf("expected %q valid, got %v", tc.input, err)
			}
			if !tc.valid && err != ErrInvalidNickname {
				t.Fatalf("expected %q invalid, got %v", tc.input, err)
			}
		})
	}
}

func TestPercentScore(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{0, 2, 0},
		{1, 2, 50},
		{2, 2, 100},
		{1, 3, 33},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := PercentScore(tc.correct, tc.total); got != tc.want {
			t.Fatalf("PercentScore(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestQuestionWindowDefaults(t *testing.T) {
	if got := (Quiz{QuestionSeconds: 20}).QuestionWindow(); got != 20*time.Second {
		t.Fatalf("expected 20s window, got %v", got)
	}
	if got := (Quiz{}).QuestionWindow(); got != 30*time.Second {
		t.Fatalf("expected default 30s window, got %v", got)
	}
}

func TestParticipantTotals(t *testing.T) {
	p := Participant{Answers: []AnswerRecord{
		{Answer: 0, ElapsedMs: 1200, Correct: true},
		{Answer: NoAnswer, ElapsedMs: 30000, Correct: false},
		{Answer: 2, ElapsedMs: 800, Correct: true},
	}}
	if got := p.TotalElapsedMs(); got != 32000 {
		t.Fatalf("expected total 32000ms, got %d", got)
	}
	if got := p.CorrectCount(); got != 2 {
		t.Fatalf("expected 2 correct, got %d", got)
	}
}
