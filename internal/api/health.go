package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/learnerbot/internal/chat"
	"github.com/ashureev/learnerbot/internal/store"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	kv                   store.KV
	mode                 chat.Mode
	completionConfigured bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(kv store.KV, mode chat.Mode, completionConfigured bool) *HealthHandler {
	return &HealthHandler{kv: kv, mode: mode, completionConfigured: completionConfigured}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":               "healthy",
		"mode":                 h.mode,
		"completionConfigured": h.completionConfigured,
		"checks":               checks,
	}
	statusCode := http.StatusOK

	if err := h.kv.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
