package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"
	"globalquiz-service/internal/export"
	"globalquiz-service/internal/retry"

	"github.com/go-chi/chi/v5"
)

// RESTHandler exposes the host controls, join flow, leaderboard reads and
// practice mode over plain JSON endpoints.
type RESTHandler struct {
	live     *app.LiveService
	practice *app.PracticeService
	retryCfg retry.Config
}

func NewRESTHandler(live *app.LiveService, practice *app.PracticeService, retryCfg retry.Config) *RESTHandler {
	return &RESTHandler{live: live, practice: practice, retryCfg: retryCfg}
}

type createSessionRequest struct {
	HostID string `json:"hostId"`
	QuizID string `json:"quizId"`
}

type sessionResponse struct {
	ID     string               `json:"id"`
	PIN    string               `json:"pin"`
	Status domain.SessionStatus `json:"status"`
}

func (h *RESTHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.live.CreateSession(r.Context(), req.HostID, req.QuizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: session.ID, PIN: session.PIN, Status: session.Status})
}

type startSessionRequest struct {
	HostID string `json:"hostId"`
}

func (h *RESTHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.live.Start(r.Context(), chi.URLParam(r, "id"), req.HostID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: session.ID, PIN: session.PIN, Status: session.Status})
}

type joinRequest struct {
	PIN string `json:"pin"`
}

type joinResponse struct {
	Token     string               `json:"token"`
	SessionID string               `json:"sessionId"`
	Status    domain.SessionStatus `json:"status"`
}

func (h *RESTHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	grant, err := h.live.JoinByPIN(r.Context(), req.PIN)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		Token:     grant.Token,
		SessionID: grant.Session.ID,
		Status:    grant.Session.Status,
	})
}

type registerRequest struct {
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

type registerResponse struct {
	SessionID string               `json:"sessionId"`
	Status    domain.SessionStatus `json:"status"`
	Nickname  string               `json:"nickname"`
}

func (h *RESTHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.live.Register(r.Context(), req.Token, req.Nickname, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{
		SessionID: result.Session.ID,
		Status:    result.Session.Status,
		Nickname:  result.Participant.Nickname,
	})
}

func (h *RESTHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.loadLeaderboard(r, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *RESTHandler) LeaderboardCSV(w http.ResponseWriter, r *http.Request) {
	lb, err := h.loadLeaderboard(r, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := export.WriteLeaderboard(w, lb); err != nil {
		log.Printf("write leaderboard csv: %v", err)
	}
}

func (h *RESTHandler) loadLeaderboard(r *http.Request, sessionID string) (domain.Leaderboard, error) {
	return retry.Do(r.Context(), h.retryCfg, func() (domain.Leaderboard, error) {
		lb, err := h.live.Leaderboard(r.Context(), sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return lb, retry.Permanent(err)
		}
		return lb, err
	})
}

type startPracticeRequest struct {
	QuizID string `json:"quizId"`
	Email  string `json:"email"`
}

func (h *RESTHandler) StartPractice(w http.ResponseWriter, r *http.Request) {
	var req startPracticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start, err := h.practice.StartAttempt(r.Context(), req.QuizID, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, start)
}

type practiceAnswerRequest struct {
	Question  int   `json:"question"`
	Answer    int   `json:"answer"`
	ElapsedMs int64 `json:"elapsedMs"`
}

func (h *RESTHandler) PracticeAnswer(w http.ResponseWriter, r *http.Request) {
	var req practiceAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	feedback, err := h.practice.Answer(r.Context(), chi.URLParam(r, "id"), req.Question, req.Answer,
		time.Duration(req.ElapsedMs)*time.Millisecond)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *RESTHandler) FinishPractice(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.practice.Finish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *RESTHandler) writeError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionEnded):
		return http.StatusGone
	case errors.Is(err, domain.ErrNicknameTaken),
		errors.Is(err, domain.ErrSessionNotStarted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidNickname),
		errors.Is(err, domain.ErrAnswerOutOfOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrExhaustedRetries):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
