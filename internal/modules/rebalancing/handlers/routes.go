package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalance", func(r chi.Router) {
		r.Post("/", h.HandleRun)
		r.Post("/close-all", h.HandleCloseAll)
		r.Get("/status", h.HandleStatus)
	})
}
