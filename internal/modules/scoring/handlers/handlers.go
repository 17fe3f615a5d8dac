// Package handlers provides HTTP handlers for the ranking model.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Model is the scorer surface used by the handlers
type Model interface {
	Version() string
	Reload(ctx context.Context) error
}

// Handler handles ranking model HTTP requests
type Handler struct {
	model Model
	log   zerolog.Logger
}

// NewHandler creates a new model handler
func NewHandler(model Model, log zerolog.Logger) *Handler {
	return &Handler{
		model: model,
		log:   log.With().Str("handler", "model").Logger(),
	}
}

// RegisterRoutes registers the model routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/model", func(r chi.Router) {
		r.Get("/", h.HandleGetModel)
		r.Post("/reload", h.HandleReload)
	})
}

// HandleGetModel handles GET /api/model
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	version := h.model.Version()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"version": version,
			"loaded":  version != "",
		},
	})
}

// HandleReload handles POST /api/model/reload
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.model.Reload(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Model reload failed")
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.log.Info().Str("version", h.model.Version()).Msg("Model reloaded")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"version": h.model.Version(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
