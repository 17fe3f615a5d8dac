package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthChecker reports database reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RunState reports whether a rebalance is in flight
type RunState interface {
	IsRunning() bool
}

// Schedule reports the next activation of a named job
type Schedule interface {
	NextRun(name string) (time.Time, bool)
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status           string            `json:"status"` // "healthy" or "degraded"
	UptimeHours      float64           `json:"uptime_hours"`
	CPUPercent       float64           `json:"cpu_percent"`
	RAMPercent       float64           `json:"ram_percent"`
	Database         string            `json:"database"`
	RebalanceRunning bool              `json:"rebalance_running"`
	NextRuns         map[string]string `json:"next_runs,omitempty"`
}

// SystemHandlers serves process and scheduler status
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	db          HealthChecker
	runs        RunState
	schedule    Schedule
	jobs        []string
}

// NewSystemHandlers creates system handlers. Any dependency may be nil.
func NewSystemHandlers(log zerolog.Logger, db HealthChecker, runs RunState, schedule Schedule, jobs []string) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		db:          db,
		runs:        runs,
		schedule:    schedule,
		jobs:        jobs,
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		Database:    "unconfigured",
	}

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Journal database health check failed")
			response.Status = "degraded"
			response.Database = "unreachable"
		} else {
			response.Database = "ok"
		}
	}
	if h.runs != nil {
		response.RebalanceRunning = h.runs.IsRunning()
	}
	if h.schedule != nil {
		response.NextRuns = make(map[string]string, len(h.jobs))
		for _, name := range h.jobs {
			if next, ok := h.schedule.NextRun(name); ok && !next.IsZero() {
				response.NextRuns[name] = next.Format(time.RFC3339)
			}
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
