package domain

import (
	"sort"
	"time"
)

// LeaderboardEntry is a ranked view of one participant.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	TotalMs  int64  `json:"totalMs"`
	Correct  int    `json:"correct"`
}

// Leaderboard captures the ordered scoreboard of a session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Rank orders participants by score (desc), then total answer time (asc),
// then nickname, so the ordering is a total order.
func Rank(sessionID string, participants []Participant, now time.Time) Leaderboard {
	entries := make([]LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, LeaderboardEntry{
			Nickname: p.Nickname,
			Score:    p.Score,
			TotalMs:  p.TotalElapsedMs(),
			Correct:  p.CorrectCount(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TotalMs != entries[j].TotalMs {
			return entries[i].TotalMs < entries[j].TotalMs
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	for i := range entries {
		entries[i].Position = i + 1
	}

	return Leaderboard{SessionID: sessionID, Entries: entries, UpdatedAt: now}
}
