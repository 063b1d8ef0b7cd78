package agent

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers agent admin routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/api/v1/agents", h.List)
	r.Put("/api/v1/agents/{botID}", h.Upsert)
	r.Delete("/api/v1/agents/{botID}", h.Delete)
}
