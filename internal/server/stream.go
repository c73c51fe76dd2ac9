package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 << 10
)

// Stream message types.
const (
	MessageSelect   = "select"   // client: apply a selection
	MessagePing     = "ping"     // client: keepalive
	MessageSnapshot = "snapshot" // server: state on connect
	MessageResult   = "result"   // server: SelectResponse
	MessageError    = "error"    // server: ErrorResponse
	MessagePong     = "pong"     // server: reply to ping
)

// ClientMessage is one event sent on a session stream. An empty Value
// clears Node.
type ClientMessage struct {
	Type  string `json:"type"`
	Node  string `json:"node,omitempty"`
	Value string `json:"value,omitempty"`
}

// ServerMessage is one reply on a session stream.
type ServerMessage struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// handleStream upgrades to a websocket over which the client sends
// selections and receives each pass as it completes. Messages are handled
// one at a time, in order, under the session lock.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.lookup(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		fmt.Fprintf(s.logger, "stream %s: upgrade: %v\n", id, err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	snap, err := entry.snapshot()
	if err != nil {
		_ = writeMessage(conn, MessageError, streamError(http.StatusNotFound, "session not found"))
		return
	}
	if err := writeMessage(conn, MessageSnapshot, snap); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Fprintf(s.logger, "stream %s: %v\n", id, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		kind, payload, open := s.streamMessage(id, data)
		if err := writeMessage(conn, kind, payload); err != nil {
			return
		}
		if !open {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// streamMessage handles one raw client message. open is false once the
// session no longer exists.
func (s *Server) streamMessage(id string, data []byte) (kind string, payload any, open bool) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return MessageError, streamError(http.StatusBadRequest, "invalid message: "+err.Error()), true
	}

	// Looked up per message so a deleted or reaped session ends the stream.
	entry, err := s.lookup(id)
	if err != nil {
		return MessageError, streamError(http.StatusNotFound, "session not found"), false
	}

	switch msg.Type {
	case MessagePing:
		return MessagePong, nil, true
	case MessageSelect:
		if msg.Node == "" {
			return MessageError, streamError(http.StatusBadRequest, "node is required"), true
		}
		resp, err := entry.apply(Selection{Node: msg.Node, Value: msg.Value})
		if err != nil {
			status, message := s.engineError("selection rejected", err)
			// Closed between lookup and apply.
			open := !errors.Is(err, ErrSessionNotFound)
			return MessageError, streamError(status, message), open
		}
		return MessageResult, resp, true
	default:
		return MessageError, streamError(http.StatusBadRequest, fmt.Sprintf("unknown message type %q", msg.Type)), true
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func streamError(status int, message string) ErrorResponse {
	return ErrorResponse{Error: http.StatusText(status), Message: message, Code: status}
}

func writeMessage(conn *websocket.Conn, kind string, payload any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ServerMessage{Type: kind, Payload: payload, Timestamp: time.Now().UTC()})
}

// pingLoop keeps the connection alive until done is closed. WriteControl
// may run concurrently with the handler's writes.
func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
