// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/sentinel-futures/internal/clients/binance"
	"github.com/aristath/sentinel-futures/internal/clients/linenotify"
	"github.com/aristath/sentinel-futures/internal/database"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/aristath/sentinel-futures/internal/modules/history"
	"github.com/aristath/sentinel-futures/internal/modules/journal"
	"github.com/aristath/sentinel-futures/internal/modules/rebalancing"
	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	"github.com/aristath/sentinel-futures/internal/modules/scoring"
	"github.com/aristath/sentinel-futures/internal/modules/trading"
	"github.com/aristath/sentinel-futures/internal/reliability"
	"github.com/aristath/sentinel-futures/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and is the single source of truth for service instances.
type Container struct {
	// Databases
	JournalDB *database.DB

	// Clients
	Exchange *binance.Client
	Notifier *linenotify.Client

	// Repositories
	JournalRepo *journal.Repository

	// Services
	FeatureBuilder     *features.Builder
	ModelScorer        *scoring.ModelScorer
	Ranker             *scoring.Ranker
	Executor           *trading.Executor
	Reconciler         *history.Reconciler
	RebalancingService *rebalancing.Service
	ReportingService   *reporting.Service
	BackupService      *reliability.BackupService // nil when backups are disabled

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered scheduler jobs
type JobInstances struct {
	Rebalance     scheduler.Job
	DailyReport   scheduler.Job
	ClockSync     scheduler.Job
	WALCheckpoint scheduler.Job
	Backup        scheduler.Job
}

// Names returns the names of every registered job
func (j *JobInstances) Names() []string {
	var names []string
	for _, job := range []scheduler.Job{j.Rebalance, j.DailyReport, j.ClockSync, j.WALCheckpoint, j.Backup} {
		if job != nil {
			names = append(names, job.Name())
		}
	}
	return names
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c.JournalDB != nil {
		return c.JournalDB.Close()
	}
	return nil
}
