// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/rebalancing"
	"github.com/rs/zerolog"
)

// Runner is the rebalancing service surface used by the handlers
type Runner interface {
	Run(ctx context.Context) (*rebalancing.RunReport, error)
	CloseAll(ctx context.Context) (*rebalancing.RunReport, error)
	IsRunning() bool
}

// Handler handles rebalancing HTTP requests
type Handler struct {
	service Runner
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service Runner, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleRun handles POST /api/rebalance
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "rebalance", h.service.Run)
}

// HandleCloseAll handles POST /api/rebalance/close-all
func (h *Handler) HandleCloseAll(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "close_all", h.service.CloseAll)
}

// HandleStatus handles GET /api/rebalance/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"running": h.service.IsRunning(),
		},
	})
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, op string, run func(context.Context) (*rebalancing.RunReport, error)) {
	// Orders must not be abandoned halfway if the client disconnects
	ctx := context.WithoutCancel(r.Context())

	report, err := run(ctx)
	if errors.Is(err, domain.ErrRunInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("operation", op).Msg("Run failed")
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"failed":    report.Failed(),
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
