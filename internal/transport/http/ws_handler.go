package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"
	"globalquiz-service/internal/retry"

	"github.com/gorilla/websocket"
)

// WSHandler upgrades players into the live session event stream: join by
// PIN, waiting room roster, play countdown, leaderboard updates.
type WSHandler struct {
	live     *app.LiveService
	retryCfg retry.Config
	upgrader websocket.Upgrader
}

func NewWSHandler(live *app.LiveService, retryCfg retry.Config) *WSHandler {
	return &WSHandler{
		live:     live,
		retryCfg: retryCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Question int `json:"question"`
	Answer   int `json:"answer"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	Token     string               `json:"token"`
	SessionID string               `json:"sessionId"`
	Status    domain.SessionStatus `json:"status"`
}

type rosterPayload struct {
	Nickname string `json:"nickname"`
}

type questionPayload struct {
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	RemainingMs int64    `json:"remainingMs"`
}

type answerResultPayload struct {
	Question int  `json:"question"`
	Answer   int  `json:"answer"`
	Correct  bool `json:"correct"`
	Score    int  `json:"score"`
	Done     bool `json:"done"`
}

type finishedPayload struct {
	Score int `json:"score"`
}

// ServeWS runs the whole player flow over one connection: register with the
// PIN and nickname from the query, stream waiting-room events, then drive
// the countdown once the host flips the session to active.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	pinCode := r.URL.Query().Get("pin")
	nickname := r.URL.Query().Get("nickname")
	email := r.URL.Query().Get("email")
	if pinCode == "" || nickname == "" {
		http.Error(w, "missing pin or nickname", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	grant, err := h.live.JoinByPIN(ctx, pinCode)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	reg, err := h.live.Register(ctx, grant.Token, nickname, email)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancelSub, err := h.live.Subscribe(ctx, reg.Session.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancelSub()

	pc := &playerConn{
		live:      h.live,
		retryCfg:  h.retryCfg,
		token:     grant.Token,
		sessionID: reg.Session.ID,
		send:      make(chan outboundMessage, 16),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range pc.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	pc.enqueue(outboundMessage{Type: "joined", Payload: joinedPayload{
		Token:     grant.Token,
		SessionID: reg.Session.ID,
		Status:    reg.Session.Status,
	}})

	closeSignals := make(chan struct{})
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				pc.handleEvent(event)
			case <-closeSignals:
				return
			}
		}
	}()

	// Sessions already active skip the waiting room.
	if reg.Session.Status == domain.StatusActive {
		pc.startPlay(ctx)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				pc.enqueue(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			pc.handleAnswer(ctx, payload)
		case "leave":
			// Explicit leave closes the flow; removal happens below.
		default:
			pc.enqueue(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
		if inbound.Type == "leave" {
			break
		}
	}

	close(closeSignals)
	<-pumpDone
	pc.close()
	<-writerDone

	// The request context is gone once the socket drops; removal is
	// best-effort and must still run.
	h.live.Leave(context.Background(), grant.Token)
}

// playerConn holds the per-connection state shared between the reader loop,
// the event pump and the countdown expiry callback.
type playerConn struct {
	live      *app.LiveService
	retryCfg  retry.Config
	token     string
	sessionID string

	mu     sync.Mutex
	closed bool
	run    *app.PlayRun
	send   chan outboundMessage
}

func (pc *playerConn) enqueue(msg outboundMessage) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return
	}
	select {
	case pc.send <- msg:
	default:
		// Drop rather than block behind a dead writer.
	}
}

func (pc *playerConn) close() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return
	}
	pc.closed = true
	if pc.run != nil {
		pc.run.Stop()
	}
	close(pc.send)
}

func (pc *playerConn) handleEvent(event app.SessionEvent) {
	switch event.Type {
	case app.EventRoster:
		if event.Participant != nil {
			pc.enqueue(outboundMessage{Type: "roster", Payload: rosterPayload{Nickname: event.Participant.Nickname}})
		}
	case app.EventActivated:
		pc.enqueue(outboundMessage{Type: "session_active"})
		pc.startPlay(context.Background())
	case app.EventLeaderboard:
		if event.Leaderboard != nil {
			pc.enqueue(outboundMessage{Type: "leaderboard", Payload: event.Leaderboard})
		}
	case app.EventCompleted:
		if event.Leaderboard != nil {
			pc.enqueue(outboundMessage{Type: "completed", Payload: event.Leaderboard})
		}
	}
}

// startPlay hydrates the session and begins the countdown. The activation
// event payload is not trusted to carry the quiz snapshot; the session is
// re-fetched with bounded retries instead.
func (pc *playerConn) startPlay(ctx context.Context) {
	pc.mu.Lock()
	if pc.run != nil || pc.closed {
		pc.mu.Unlock()
		return
	}
	pc.mu.Unlock()

	session, err := retry.Do(ctx, pc.retryCfg, func() (domain.Session, error) {
		sess, err := pc.live.HydratedSession(ctx, pc.sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrQuizNotFound) {
			return sess, retry.Permanent(err)
		}
		return sess, err
	})
	if err != nil {
		pc.enqueue(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	run, err := app.NewPlayRun(session, pc.autoSubmit)
	if err != nil {
		pc.enqueue(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	pc.mu.Lock()
	if pc.run != nil || pc.closed {
		pc.mu.Unlock()
		run.Stop()
		return
	}
	pc.run = run
	pc.mu.Unlock()

	pc.enqueue(questionMessage(run.Begin()))
}

func (pc *playerConn) handleAnswer(ctx context.Context, payload answerPayload) {
	pc.mu.Lock()
	run := pc.run
	pc.mu.Unlock()
	if run == nil {
		pc.enqueue(outboundMessage{Type: "error", Payload: errorPayload{Message: "session not active"}})
		return
	}

	elapsed, ok := run.Submit(payload.Question)
	if !ok {
		// First answer wins; repeats and stale indexes are silently ignored.
		return
	}
	pc.submitAndAdvance(ctx, run, payload.Question, payload.Answer, elapsed)
}

// autoSubmit fires when a question countdown reaches zero: the no-answer
// sentinel is recorded and play advances, exactly once per question.
func (pc *playerConn) autoSubmit(index int, window time.Duration) {
	pc.mu.Lock()
	run := pc.run
	closed := pc.closed
	pc.mu.Unlock()
	if run == nil || closed {
		return
	}
	pc.submitAndAdvance(context.Background(), run, index, domain.NoAnswer, window)
}

func (pc *playerConn) submitAndAdvance(ctx context.Context, run *app.PlayRun, question, answer int, elapsed time.Duration) {
	outcome, err := pc.live.SubmitAnswer(ctx, pc.token, question, answer, elapsed)
	if err != nil {
		pc.enqueue(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	} else {
		pc.enqueue(outboundMessage{Type: "answer_result", Payload: answerResultPayload{
			Question: question,
			Answer:   answer,
			Correct:  outcome.Record.Correct,
			Score:    outcome.Score,
			Done:     outcome.Done,
		}})
	}

	// Live mode has no reveal pause: the next question follows immediately.
	next, more := run.Advance()
	if more {
		pc.enqueue(questionMessage(next))
	} else {
		pc.enqueue(outboundMessage{Type: "finished", Payload: finishedPayload{Score: outcome.Score}})
	}
}

func questionMessage(view app.QuestionView) outboundMessage {
	return outboundMessage{Type: "question", Payload: questionPayload{
		Index:       view.Index,
		Total:       view.Total,
		Prompt:      view.Prompt,
		Options:     view.Options,
		ImageURL:    view.ImageURL,
		RemainingMs: view.Remaining.Milliseconds(),
	}}
}
