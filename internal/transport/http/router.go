package http

import (
	"net/http"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/retry"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the REST and websocket surfaces.
func NewRouter(live *app.LiveService, practice *app.PracticeService, retryCfg retry.Config) http.Handler {
	rest := NewRESTHandler(live, practice, retryCfg)
	ws := NewWSHandler(live, retryCfg)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws/live", ws.ServeWS)
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", rest.CreateSession)
		r.Post("/sessions/{id}/start", rest.StartSession)
		r.Get("/sessions/{id}/leaderboard", rest.Leaderboard)
		r.Get("/sessions/{id}/leaderboard.csv", rest.LeaderboardCSV)
		r.Post("/join", rest.Join)
		r.Post("/join/register", rest.Register)
		r.Post("/practice", rest.StartPractice)
		r.Post("/practice/{id}/answers", rest.PracticeAnswer)
		r.Post("/practice/{id}/finish", rest.FinishPractice)
	})
	return r
}
