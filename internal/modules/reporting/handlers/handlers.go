// Package handlers provides HTTP handlers for report generation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Reporter is the reporting service surface used by the handlers
type Reporter interface {
	DailyReport(ctx context.Context, day string) (*reporting.DailyReport, error)
}

// Handler handles report HTTP requests
type Handler struct {
	service Reporter
	log     zerolog.Logger
}

// NewHandler creates a new reporting handler
func NewHandler(service Reporter, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "reporting").Logger(),
	}
}

// RegisterRoutes registers all reporting routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Post("/daily", h.HandleDailyReport)
	})
}

// HandleDailyReport handles POST /api/reports/daily?date=YYYY-MM-DD
func (h *Handler) HandleDailyReport(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day != "" && !datePattern.MatchString(day) {
		h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	report, err := h.service.DailyReport(context.WithoutCancel(r.Context()), day)
	if err != nil {
		h.log.Error().Err(err).Str("date", day).Msg("Daily report failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": report})
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
