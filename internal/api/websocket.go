package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/identity"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketHandler serves a chat conversation over a WebSocket.
type WebSocketHandler struct {
	*Handler
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(base *Handler, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		Handler:       base,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage is a client frame.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type wsHistory struct {
	Type     string           `json:"type"`
	State    chat.State       `json:"state"`
	Messages []domain.Message `json:"messages"`
}

type wsTurn struct {
	Type string `json:"type"`
	TurnView
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profileID := identity.ProfileIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	connID := uuid.NewString()
	log := slog.With("profile_id", profileID, "session_id", sessionID, "conn_id", connID)
	log.Info("WebSocket connection request", "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			log.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	// Deferred in this order so in-flight turns are cancelled before the wait.
	var turns sync.WaitGroup
	defer turns.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// current is the conversation the client sees. Turns of a conversation
	// replaced by a reset report nothing.
	var current atomic.Pointer[chat.Controller]
	c := h.sessions.Get(ctx, profileID, sessionID)
	current.Store(c)
	if err := h.writeJSON(ctx, ws, wsHistory{Type: "history", State: c.State(), Messages: c.Messages()}); err != nil {
		log.Debug("Failed to send history", "error", err)
		return
	}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				log.Debug("WebSocket closed by client")
			} else {
				log.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, ws, "invalid frame")
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				log.Debug("Failed to send pong", "error", err)
			}
		case "reset":
			h.sessions.End(profileID, sessionID)
			c = h.sessions.Get(ctx, profileID, sessionID)
			current.Store(c)
			if err := h.writeJSON(ctx, ws, wsHistory{Type: "history", State: c.State(), Messages: c.Messages()}); err != nil {
				log.Debug("Failed to send history", "error", err)
			}
		case "message":
			if !h.limiter.Allow(profileID) {
				h.sendError(ctx, ws, "rate limit exceeded")
				continue
			}
			// The turn runs beside the read loop so pings are answered and a
			// second message is rejected while the reply is pending.
			turns.Add(1)
			go func(c *chat.Controller, content string) {
				defer turns.Done()
				h.runTurn(ctx, ws, c, content, log, func() bool { return current.Load() != c })
			}(c, msg.Content)
		default:
			h.sendError(ctx, ws, "unknown frame type")
		}
	}
}

func (h *WebSocketHandler) runTurn(ctx context.Context, ws *websocket.Conn, c *chat.Controller, content string, log *slog.Logger, stale func() bool) {
	res, err := c.Submit(ctx, content)
	if stale() {
		log.Debug("Dropping turn of a reset conversation")
		return
	}
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		h.sendError(ctx, ws, "message is required")
		return
	case err != nil:
		h.sendError(ctx, ws, err.Error())
		return
	}
	if err := h.writeJSON(ctx, ws, wsTurn{Type: "turn", TurnView: NewTurnView(res)}); err != nil {
		log.Debug("Failed to send turn", "error", err)
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) sendError(ctx context.Context, ws *websocket.Conn, message string) {
	if err := h.writeJSON(ctx, ws, wsError{Type: "error", Error: message}); err != nil {
		slog.Debug("Failed to send error frame", "error", err)
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.ServeHTTP)
}
