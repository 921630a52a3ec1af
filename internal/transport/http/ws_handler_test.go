package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/domain"
	"globalquiz-service/internal/infra/memory"
	"globalquiz-service/internal/retry"

	"github.com/gorilla/websocket"
)

func TestWebSocketPlayFlow(t *testing.T) {
	ctx := context.Background()
	live := newTestLiveService()

	session, err := live.CreateSession(ctx, "host-1", "corleg-72")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	server := httptest.NewServer(NewRouter(live, newTestPracticeService(), testRetryConfig()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/live?pin=" + session.PIN + "&nickname=Mario"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, payload := readNext(conn, t, "joined")
	if msgType != "joined" {
		t.Fatalf("expected joined, got %s", msgType)
	}
	if payload["status"] != string(domain.StatusWaiting) {
		t.Fatalf("expected waiting status, got %v", payload["status"])
	}

	// The host flips the session to active; the socket must deliver the
	// activation followed by the first question.
	if _, err := live.Start(ctx, session.ID, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !awaitTypes(conn, t, "session_active", "question") {
		t.Fatalf("expected session_active and question after start")
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"question": 0, "answer": 0},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	if !awaitTypes(conn, t, "answer_result", "question") {
		t.Fatalf("expected answer_result and next question")
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"question": 1, "answer": 1},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	if !awaitTypes(conn, t, "finished") {
		t.Fatalf("expected finished after last answer")
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestLiveService(), newTestPracticeService(), testRetryConfig()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/live?pin=123456"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected dial rejected without nickname")
	}
}

func TestWebSocketReportsUnknownPIN(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestLiveService(), newTestPracticeService(), testRetryConfig()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/live?pin=000000&nickname=Mario"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, _ := readNext(conn, t, "error")
	if msgType != "error" {
		t.Fatalf("expected error message, got %s", msgType)
	}
}

// awaitTypes reads until every wanted type was seen, tolerating interleaved
// roster and leaderboard traffic.
func awaitTypes(conn *websocket.Conn, t *testing.T, wanted ...string) bool {
	t.Helper()
	pending := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		pending[w] = true
	}
	for i := 0; i < 20 && len(pending) > 0; i++ {
		typ, _ := readNext(conn, t, "")
		delete(pending, typ)
	}
	return len(pending) == 0
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func testRetryConfig() retry.Config {
	return retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond}
}

// fixedPINs mints a predictable code so tests can join without parsing it.
type fixedPINs struct{ pin string }

func (f *fixedPINs) Mint(context.Context, string) (string, error) { return f.pin, nil }
func (f *fixedPINs) Release(context.Context, string) error        { return nil }

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"corleg-72": {
			ID:              "corleg-72",
			Title:           "Corleg 72",
			QuestionSeconds: 30,
			Questions: []domain.Question{
				{Prompt: "Rotta opposta: chi accosta?", Options: []string{"Entrambe a dritta", "Entrambe a sinistra"}, Correct: 0, Explanation: "Si accosta a dritta."},
				{Prompt: "Luce di poppa?", Options: []string{"Rossa", "Bianca"}, Correct: 1, Explanation: "Il coronamento è bianco."},
			},
		},
	}
}

func newQuizRepo() app.QuizRepository {
	return memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), 5*time.Minute)
}

func newTestLiveService() *app.LiveService {
	return app.NewLiveService(app.Deps{
		Sessions:     memory.NewSessionStore(),
		Participants: memory.NewParticipantStore(),
		Quizzes:      newQuizRepo(),
		Tokens:       memory.NewTokenStore(),
		PINs:         &fixedPINs{pin: "482913"},
		TokenTTL:     time.Hour,
	})
}

func newTestPracticeService() *app.PracticeService {
	return app.NewPracticeService(newQuizRepo(), memory.NewPracticeStore())
}
