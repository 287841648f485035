package api

import (
	"net/http"

	"github.com/ashureev/learnerbot/internal/identity"
	"github.com/ashureev/learnerbot/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the handlers and settings of the HTTP API.
type RouterConfig struct {
	Base           *Handler
	Health         *HealthHandler
	AllowedOrigins []string
	FrontendURL    string
	IsDev          bool
}

// NewRouter wires the middleware stack and every route.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(cfg.IsDev))

	cfg.Health.RegisterHealth(r)
	NewChatHandler(cfg.Base).RegisterRoutes(r)
	NewProgressHandler(cfg.Base).RegisterRoutes(r)
	NewWebSocketHandler(cfg.Base, cfg.FrontendURL, cfg.IsDev).RegisterRoutes(r)

	return r
}
