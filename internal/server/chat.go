package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming message format, shared by the HTTP and
// WebSocket endpoints.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// wsMessage is one WebSocket frame sent to the client.
type wsMessage struct {
	Type  string `json:"type"` // "reply" or "error"
	Error string `json:"error,omitempty"`
	Reply any    `json:"reply,omitempty"`
}

// handleChatMessage runs one conversation turn over plain HTTP. A missing
// session id starts a new session; the reply carries the id to reuse.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	reply := s.engine.HandleMessage(r.Context(), req.SessionID, req.Text)
	writeJSON(w, http.StatusOK, reply)
}

// handleWebSocket runs a chat session over one WebSocket connection. The
// session id is assigned on the first message and kept for the connection's
// lifetime unless the client supplies its own.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	sessionID := ""
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}
		if req.Text == "" {
			s.sendWSError(conn, "text is required")
			continue
		}

		if req.SessionID != "" {
			sessionID = req.SessionID
		} else if sessionID == "" {
			sessionID = uuid.New().String()
		}

		reply := s.engine.HandleMessage(r.Context(), sessionID, req.Text)
		if err := conn.WriteJSON(wsMessage{Type: "reply", Reply: reply}); err != nil {
			log.Printf("server: websocket write: %v", err)
			return
		}
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(wsMessage{Type: "error", Error: msg}); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
