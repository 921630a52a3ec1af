// Package export renders leaderboards as the CSV download offered to hosts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"globalquiz-service/internal/domain"
)

// Header columns are fixed; downstream spreadsheets depend on them.
var Header = []string{"Posizione", "Nickname", "Punteggio", "Tempo Totale (s)", "Risposte Corrette"}

// WriteLeaderboard writes one CSV row per ranked participant.
func WriteLeaderboard(w io.Writer, lb domain.Leaderboard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, entry := range lb.Entries {
		row := []string{
			strconv.Itoa(entry.Position),
			entry.Nickname,
			strconv.Itoa(entry.Score),
			fmt.Sprintf("%.1f", float64(entry.TotalMs)/1000),
			strconv.Itoa(entry.Correct),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename names the download after the export instant.
func Filename(now time.Time) string {
	return "quiz-results-" + now.UTC().Format(time.RFC3339) + ".csv"
}
