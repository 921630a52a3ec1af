package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"globalquiz-service/internal/export"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(newTestLiveService(), newTestPracticeService(), testRetryConfig()))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestJoinAndRegisterFlow(t *testing.T) {
	server := newTestServer(t)

	var session struct {
		ID  string `json:"id"`
		PIN string `json:"pin"`
	}
	resp := postJSON(t, server.URL+"/api/sessions", map[string]string{"hostId": "host-1", "quizId": "corleg-72"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &session)
	if session.PIN != "482913" {
		t.Fatalf("unexpected pin %q", session.PIN)
	}

	resp = postJSON(t, server.URL+"/api/join", map[string]string{"pin": "000000"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown pin: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	var joined struct {
		Token     string `json:"token"`
		SessionID string `json:"sessionId"`
	}
	resp = postJSON(t, server.URL+"/api/join", map[string]string{"pin": session.PIN})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &joined)
	if joined.Token == "" || joined.SessionID != session.ID {
		t.Fatalf("unexpected join response: %+v", joined)
	}

	resp = postJSON(t, server.URL+"/api/join/register", map[string]string{"token": joined.Token, "nickname": "X"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid nickname: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/join/register", map[string]string{"token": joined.Token, "nickname": "Mario"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Same nickname, different case, second player.
	var second struct {
		Token string `json:"token"`
	}
	resp = postJSON(t, server.URL+"/api/join", map[string]string{"pin": session.PIN})
	decodeJSON(t, resp, &second)
	resp = postJSON(t, server.URL+"/api/join/register", map[string]string{"token": second.Token, "nickname": "MARIO"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate nickname: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/sessions/"+session.ID+"/start", map[string]string{"hostId": "host-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLeaderboardCSVDownload(t *testing.T) {
	server := newTestServer(t)

	var session struct {
		ID  string `json:"id"`
		PIN string `json:"pin"`
	}
	resp := postJSON(t, server.URL+"/api/sessions", map[string]string{"hostId": "host-1", "quizId": "corleg-72"})
	decodeJSON(t, resp, &session)

	var joined struct {
		Token string `json:"token"`
	}
	resp = postJSON(t, server.URL+"/api/join", map[string]string{"pin": session.PIN})
	decodeJSON(t, resp, &joined)
	resp = postJSON(t, server.URL+"/api/join/register", map[string]string{"token": joined.Token, "nickname": "Mario"})
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/api/sessions/" + session.ID + "/leaderboard.csv")
	if err != nil {
		t.Fatalf("get csv: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csv: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "quiz-results-") {
		t.Fatalf("unexpected content disposition %q", cd)
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if got := strings.TrimSpace(lines[0]); got != strings.Join(export.Header, ",") {
		t.Fatalf("unexpected header row %q", got)
	}
	if !strings.HasPrefix(lines[1], "1,Mario,") {
		t.Fatalf("unexpected data row %q", lines[1])
	}
}

func TestLeaderboardUnknownSession(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/sessions/nope/leaderboard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPracticeEndpoints(t *testing.T) {
	server := newTestServer(t)

	var start struct {
		AttemptID string `json:"attemptId"`
		Title     string `json:"title"`
		Questions []struct {
			Prompt string `json:"prompt"`
		} `json:"questions"`
	}
	resp := postJSON(t, server.URL+"/api/practice", map[string]string{"quizId": "corleg-72"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start practice: status %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &start)
	if start.AttemptID == "" || start.Title != "Corleg 72" || len(start.Questions) != 2 {
		t.Fatalf("unexpected practice start: %+v", start)
	}

	var feedback struct {
		Correct       bool   `json:"correct"`
		CorrectOption int    `json:"correctOption"`
		Explanation   string `json:"explanation"`
		Done          bool   `json:"done"`
	}
	resp = postJSON(t, server.URL+"/api/practice/"+start.AttemptID+"/answers",
		map[string]int{"question": 0, "answer": 1, "elapsedMs": 2500})
	decodeJSON(t, resp, &feedback)
	if feedback.Correct || feedback.CorrectOption != 0 || feedback.Explanation == "" {
		t.Fatalf("unexpected feedback: %+v", feedback)
	}

	resp = postJSON(t, server.URL+"/api/practice/"+start.AttemptID+"/answers",
		map[string]int{"question": 1, "answer": 1, "elapsedMs": 1500})
	decodeJSON(t, resp, &feedback)
	if !feedback.Correct || !feedback.Done {
		t.Fatalf("unexpected final feedback: %+v", feedback)
	}

	var attempt struct {
		ID    string `json:"id"`
		Score int    `json:"score"`
	}
	resp = postJSON(t, server.URL+"/api/practice/"+start.AttemptID+"/finish", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finish: status %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &attempt)
	if attempt.Score != 50 {
		t.Fatalf("expected score 50, got %d", attempt.Score)
	}

	resp = postJSON(t, server.URL+"/api/practice/missing/finish", map[string]string{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown attempt: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}
