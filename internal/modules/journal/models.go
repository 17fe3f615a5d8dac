// Package journal persists an audit trail of rebalance and report runs.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
)

// ErrRunNotFound is returned when no run has the requested ID
var ErrRunNotFound = errors.New("run not found")

// RunKind identifies what triggered a run
type RunKind string

const (
	KindRebalance   RunKind = "rebalance"
	KindDailyReport RunKind = "daily_report"
	KindCloseAll    RunKind = "close_all"
)

// RunStatus summarizes a finished run
type RunStatus string

const (
	// StatusSuccess means every order filled (or nothing needed trading)
	StatusSuccess RunStatus = "success"
	// StatusPartial means at least one symbol failed while others completed
	StatusPartial RunStatus = "partial"
	// StatusError means the run aborted before acting
	StatusError RunStatus = "error"
)

// Run is one journaled execution
type Run struct {
	ID         string               `json:"id"`
	Kind       RunKind              `json:"kind"`
	Status     RunStatus            `json:"status"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Selection  []string             `json:"selection,omitempty"`
	Error      string               `json:"error,omitempty"`
	Report     string               `json:"report,omitempty"`
	Orders     []domain.OrderResult `json:"orders,omitempty"`
}

// StatusFor derives the run status from its order results
func StatusFor(results []domain.OrderResult) RunStatus {
	for _, r := range results {
		if r.Status == domain.OrderStatusFailed {
			return StatusPartial
		}
	}
	return StatusSuccess
}

// Recorder is the write side of the journal used by the run services
type Recorder interface {
	Record(ctx context.Context, run *Run) error
}
