// Package api provides HTTP and WebSocket handlers for the LearnerBot API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/progress"
)

// maxRequestBodySize bounds JSON request bodies.
const maxRequestBodySize = 64 << 10

// ProgressSource returns the progress engine of a profile.
type ProgressSource func(profileID string) *progress.Engine

// Handler provides common handler dependencies.
type Handler struct {
	sessions *chat.Sessions
	progress ProgressSource
	limiter  *RateLimiter
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *chat.Sessions, progress ProgressSource, limiter *RateLimiter) *Handler {
	return &Handler{
		sessions: sessions,
		progress: progress,
		limiter:  limiter,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ProgressView is a progress snapshot with the values the progress screen derives.
type ProgressView struct {
	domain.UserProgress
	XPToNextLevel int `json:"xpToNextLevel"`
	Accuracy      int `json:"accuracy"`
	EarnedBadges  int `json:"earnedBadges"`
}

// NewProgressView derives the view of p.
func NewProgressView(p domain.UserProgress) ProgressView {
	return ProgressView{
		UserProgress:  p,
		XPToNextLevel: p.XPToNextLevel(),
		Accuracy:      p.Accuracy(),
		EarnedBadges:  len(p.EarnedBadges()),
	}
}

// TurnView is the wire form of a chat turn.
type TurnView struct {
	User          domain.Message `json:"user"`
	Bot           domain.Message `json:"bot"`
	Failed        bool           `json:"failed"`
	Progress      *ProgressView  `json:"progress,omitempty"`
	NewBadges     []domain.Badge `json:"newBadges"`
	ProgressError string         `json:"progressError,omitempty"`
}

// NewTurnView converts a turn result for the wire.
func NewTurnView(res chat.TurnResult) TurnView {
	v := TurnView{
		User:      res.User,
		Bot:       res.Bot,
		Failed:    res.Failed,
		NewBadges: res.NewBadges,
	}
	if v.NewBadges == nil {
		v.NewBadges = []domain.Badge{}
	}
	if res.Progress != nil {
		pv := NewProgressView(*res.Progress)
		v.Progress = &pv
	}
	if res.ProgressErr != nil {
		v.ProgressError = "progress could not be saved"
	}
	return v
}
