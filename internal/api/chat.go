package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/identity"
	"github.com/go-chi/chi/v5"
)

// ChatHandler handles the conversation endpoints.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/", h.History)
		r.Post("/", h.Send)
		r.Delete("/", h.End)
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type historyResponse struct {
	State    chat.State       `json:"state"`
	Messages []domain.Message `json:"messages"`
}

// History returns the tab's message log, starting the conversation if needed.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	profileID := identity.ProfileIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	c := h.sessions.Get(r.Context(), profileID, sessionID)
	JSON(w, http.StatusOK, historyResponse{State: c.State(), Messages: c.Messages()})
}

// Send submits one user message and returns the completed turn.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	profileID := identity.ProfileIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	if !h.limiter.Allow(profileID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slog.Info("Chat request",
		"profile_id", profileID,
		"session_id", sessionID,
		"message_length", len(req.Message),
	)

	c := h.sessions.Get(r.Context(), profileID, sessionID)
	res, err := c.Submit(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		Error(w, http.StatusBadRequest, "message is required")
		return
	case errors.Is(err, chat.ErrTurnInProgress):
		Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		slog.Error("Chat turn failed", "error", err, "profile_id", profileID)
		Error(w, http.StatusInternalServerError, "chat turn failed")
		return
	}

	JSON(w, http.StatusOK, NewTurnView(res))
}

// End drops the tab's conversation.
func (h *ChatHandler) End(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(identity.ProfileIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
