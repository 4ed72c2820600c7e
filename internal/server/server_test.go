package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/shulebot/shulebot/internal/engine"
)

// stubEngine echoes the utterance back and records the session ids it saw.
type stubEngine struct {
	sessions []string
}

func (s *stubEngine) HandleMessage(ctx context.Context, sessionID, text string) *engine.Reply {
	s.sessions = append(s.sessions, sessionID)
	return &engine.Reply{
		SessionID: sessionID,
		Intent:    "student_count",
		State:     engine.StateDispatched,
		Text:      "echo: " + text,
	}
}

type stubReloader struct {
	ok      bool
	version string
	calls   int
}

func (s *stubReloader) ForceReload(ctx context.Context) bool { s.calls++; return s.ok }
func (s *stubReloader) ServedVersion() string                { return s.version }

func newTestServer() (*Server, *stubEngine, *stubReloader) {
	eng := &stubEngine{}
	rel := &stubReloader{ok: true, version: "v1"}
	return New(Config{Port: 0}, eng, rel), eng, rel
}

func TestHealthCheck(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestChatMessage(t *testing.T) {
	srv, eng, _ := newTestServer()

	req := httptest.NewRequest("POST", "/api/chat/messages",
		strings.NewReader(`{"session_id":"s1","text":"how many students?"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reply engine.Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.SessionID != "s1" || reply.Text != "echo: how many students?" {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if len(eng.sessions) != 1 || eng.sessions[0] != "s1" {
		t.Errorf("engine saw sessions %v", eng.sessions)
	}
}

func TestChatMessageAssignsSessionID(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest("POST", "/api/chat/messages", strings.NewReader(`{"text":"hello"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var reply engine.Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestChatMessageRequiresText(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest("POST", "/api/chat/messages", strings.NewReader(`{"session_id":"s1"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAdminReload(t *testing.T) {
	srv, _, rel := newTestServer()

	req := httptest.NewRequest("POST", "/api/admin/reload", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if rel.calls != 1 {
		t.Errorf("expected one reload call, got %d", rel.calls)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["reloaded"] != true || body["version"] != "v1" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestAdminReloadFailure(t *testing.T) {
	srv, _, rel := newTestServer()
	rel.ok = false

	req := httptest.NewRequest("POST", "/api/admin/reload", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when the reload fails, got %d", w.Code)
	}
}

func TestWebSocketChat(t *testing.T) {
	srv, _, _ := newTestServer()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	if err := conn.WriteJSON(chatRequest{Text: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var msg struct {
		Type  string       `json:"type"`
		Error string       `json:"error"`
		Reply engine.Reply `json:"reply"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "reply" {
		t.Fatalf("expected a reply frame, got %+v", msg)
	}
	if msg.Reply.Text != "echo: hello" {
		t.Errorf("unexpected reply: %+v", msg.Reply)
	}
	if msg.Reply.SessionID == "" {
		t.Error("expected a session id assigned on the first message")
	}

	// The connection keeps the assigned session id across messages.
	first := msg.Reply.SessionID
	if err := conn.WriteJSON(chatRequest{Text: "again"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Reply.SessionID != first {
		t.Errorf("session id changed between messages: %s vs %s", first, msg.Reply.SessionID)
	}
}

func TestWebSocketRequiresText(t *testing.T) {
	srv, _, _ := newTestServer()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chatRequest{SessionID: "s1"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" || !strings.Contains(msg.Error, "text") {
		t.Errorf("expected a text-required error, got %+v", msg)
	}
}

func TestCORSHeaders(t *testing.T) {
	eng := &stubEngine{}
	srv := New(Config{Port: 0, AllowAll: true}, eng, &stubReloader{})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}
