package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sabia-project/sabia/internal/service/assistant"
	chatservice "github.com/sabia-project/sabia/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler runs question turns over a WebSocket connection.
type Handler struct {
	chatSvc   *chatservice.Service
	assistant *assistant.Service
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
}

// New creates a WebSocket handler.
func New(chatSvc *chatservice.Service, assistantSvc *assistant.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		assistant: assistantSvc,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Frame is one outbound event, the same shape the SSE stream uses.
type Frame struct {
	Event          string `json:"event"`
	Content        string `json:"content,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Finished       bool   `json:"finished,omitempty"`
	Error          string `json:"error,omitempty"`
}

// wsConn serializes writes; the ping loop and the dispatch loop share the
// connection and gorilla allows a single writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeFrame(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

func (c *wsConn) writePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer raw.Close()

	h.logger.Debug().Str("session_id", sessionID).Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &wsConn{conn: raw}

	raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, Frame{Event: "connected", SessionID: sessionID})

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			// Malformed frames close the connection as well.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Str("session_id", sessionID).Msg("websocket read ended")
			}
			return
		}

		raw.SetReadDeadline(time.Now().Add(readTimeout))
		h.dispatch(ctx, conn, sessionID, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *wsConn, sessionID string, msg inboundMessage) {
	switch msg.Type {
	case "ask":
		h.handleAsk(ctx, conn, sessionID, msg.Text)
	case "reset":
		h.handleReset(ctx, conn, sessionID)
	case "ping":
		h.send(conn, Frame{Event: "pong", SessionID: sessionID})
	default:
		h.sendError(conn, sessionID, "unsupported message type: "+msg.Type)
	}
}

// handleAsk runs one turn, reporting the same start, message and end events
// the SSE stream emits. Pipeline failures become an error frame and the
// connection stays open for the next question.
func (h *Handler) handleAsk(ctx context.Context, conn *wsConn, sessionID, text string) {
	h.send(conn, Frame{Event: "start", SessionID: sessionID})

	result, err := h.assistant.Ask(ctx, sessionID, text)
	if err != nil {
		h.sendError(conn, sessionID, err.Error())
		return
	}

	h.send(conn, Frame{
		Event:          "message",
		SessionID:      sessionID,
		ConversationID: result.ConversationID,
		Content:        result.Reply.Content,
	})
	h.send(conn, Frame{
		Event:          "end",
		SessionID:      sessionID,
		ConversationID: result.ConversationID,
		Finished:       true,
	})
}

func (h *Handler) handleReset(ctx context.Context, conn *wsConn, sessionID string) {
	if _, err := h.assistant.Reset(ctx, sessionID); err != nil {
		h.sendError(conn, sessionID, err.Error())
		return
	}
	h.send(conn, Frame{Event: "reset", SessionID: sessionID})
}

func (h *Handler) send(conn *wsConn, frame Frame) {
	if err := conn.writeFrame(frame); err != nil {
		h.logger.Warn().Err(err).Msg("websocket write failed")
	}
}

func (h *Handler) sendError(conn *wsConn, sessionID, message string) {
	h.send(conn, Frame{Event: "error", SessionID: sessionID, Error: message})
}

func (h *Handler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.writePing(); err != nil {
				return
			}
		}
	}
}
