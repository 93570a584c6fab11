package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ludexhq/ludex/internal/metrics"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/igdb", func(r chi.Router) {
		r.Get("/game/{id}", h.GetGame)
		r.Post("/search", h.Search)
		r.Post("/metadata", h.GetMetadata)
		r.Post("/webhooks/{entity}/{method}", h.ReceiveWebhook)
	})

	return r
}
