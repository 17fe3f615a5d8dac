package di

import (
	"fmt"

	"github.com/aristath/sentinel-futures/internal/config"
	"github.com/aristath/sentinel-futures/internal/reliability"
	"github.com/aristath/sentinel-futures/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	clockSyncSchedule     = "@every 30m"
	walCheckpointSchedule = "30 4 * * *"
)

type registration struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the scheduler and registers every job on it.
// Schedules are evaluated in the account timezone.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	strategy := cfg.Strategy

	sched := scheduler.New(scheduler.FixedZone(strategy.TimezoneOffsetHours), log)
	container.Scheduler = sched

	instances := &JobInstances{
		Rebalance:     scheduler.NewRebalanceJob(container.RebalancingService, log),
		DailyReport:   scheduler.NewDailyReportJob(container.ReportingService, log),
		ClockSync:     scheduler.NewClockSyncJob(container.Exchange),
		WALCheckpoint: scheduler.NewWALCheckpointJob(container.JournalDB, log),
	}

	registrations := []registration{
		{strategy.RebalanceSchedule, instances.Rebalance},
		{strategy.DailyReportSchedule, instances.DailyReport},
		{clockSyncSchedule, instances.ClockSync},
		{walCheckpointSchedule, instances.WALCheckpoint},
	}

	if container.BackupService != nil {
		backup := reliability.NewBackupJob(container.BackupService, cfg.DataDir, cfg.Backup.RetentionDays, log)
		instances.Backup = backup
		registrations = append(registrations, registration{cfg.Backup.Schedule, backup})
	}

	for _, reg := range registrations {
		if err := sched.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", reg.job.Name(), err)
		}
	}

	return instances, nil
}
