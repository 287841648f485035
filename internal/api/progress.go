package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/identity"
	"github.com/go-chi/chi/v5"
)

// ProgressHandler handles the progress endpoints.
type ProgressHandler struct {
	*Handler
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(base *Handler) *ProgressHandler {
	return &ProgressHandler{Handler: base}
}

// RegisterRoutes registers progress routes.
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/progress", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/quiz", h.RecordQuiz)
		r.Post("/streak", h.IncrementStreak)
	})
}

type quizRequest struct {
	Correct *bool `json:"correct"`
}

// Get returns the learner's progress.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress(identity.ProfileIDFromContext(r.Context())).Snapshot(r.Context())
	h.respond(w, p, err)
}

// RecordQuiz counts one answered quiz question.
func (h *ProgressHandler) RecordQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Correct == nil {
		Error(w, http.StatusBadRequest, "correct is required")
		return
	}

	p, err := h.progress(identity.ProfileIDFromContext(r.Context())).RecordQuizAnswer(r.Context(), *req.Correct)
	h.respond(w, p, err)
}

// IncrementStreak adds one day to the learning streak.
func (h *ProgressHandler) IncrementStreak(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress(identity.ProfileIDFromContext(r.Context())).IncrementStreak(r.Context())
	h.respond(w, p, err)
}

func (h *ProgressHandler) respond(w http.ResponseWriter, p domain.UserProgress, err error) {
	if err != nil {
		slog.Error("Progress request failed", "error", err)
		Error(w, http.StatusInternalServerError, "progress unavailable")
		return
	}
	JSON(w, http.StatusOK, NewProgressView(p))
}
