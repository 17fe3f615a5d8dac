package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/sentinel-futures/internal/database"
	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/rebalancing"
	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	"github.com/rs/zerolog"
)

// RebalanceRunner runs one rebalance
type RebalanceRunner interface {
	Run(ctx context.Context) (*rebalancing.RunReport, error)
}

// DailyReporter builds and sends the daily realized PnL report
type DailyReporter interface {
	Today() string
	DailyReport(ctx context.Context, day string) (*reporting.DailyReport, error)
}

// ClockSyncer refreshes the exchange clock offset
type ClockSyncer interface {
	SyncTime(ctx context.Context) error
}

// RebalanceJob triggers a rebalance run
type RebalanceJob struct {
	runner RebalanceRunner
	log    zerolog.Logger
}

// NewRebalanceJob creates a new RebalanceJob
func NewRebalanceJob(runner RebalanceRunner, log zerolog.Logger) *RebalanceJob {
	return &RebalanceJob{
		runner: runner,
		log:    log.With().Str("job", "rebalance").Logger(),
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Run executes one rebalance. An overlapping manual run is not an error.
func (j *RebalanceJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx)
	if errors.Is(err, domain.ErrRunInProgress) {
		j.log.Warn().Msg("Rebalance already in progress, skipping tick")
		return nil
	}
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}

	j.log.Info().
		Str("run_id", report.ID).
		Strs("selection", report.Selection).
		Int("orders", len(report.Results)).
		Int("failed", report.Failed()).
		Msg("Rebalance completed")
	return nil
}

// DailyReportJob sends the realized PnL report for the current local day
type DailyReportJob struct {
	reporter DailyReporter
	log      zerolog.Logger
}

// NewDailyReportJob creates a new DailyReportJob
func NewDailyReportJob(reporter DailyReporter, log zerolog.Logger) *DailyReportJob {
	return &DailyReportJob{
		reporter: reporter,
		log:      log.With().Str("job", "daily_report").Logger(),
	}
}

// Name returns the job name
func (j *DailyReportJob) Name() string {
	return "daily_report"
}

// Run executes the daily report for today
func (j *DailyReportJob) Run(ctx context.Context) error {
	day := j.reporter.Today()
	report, err := j.reporter.DailyReport(ctx, day)
	if err != nil {
		return fmt.Errorf("daily report %s: %w", day, err)
	}

	j.log.Info().
		Str("date", day).
		Int("closed_trades", len(report.ClosedTrades)).
		Float64("pnl", report.TotalPnL).
		Strs("failed_symbols", report.FailedSymbols).
		Msg("Daily report sent")
	return nil
}

// ClockSyncJob keeps request timestamps aligned with exchange time
type ClockSyncJob struct {
	syncer ClockSyncer
}

// NewClockSyncJob creates a new ClockSyncJob
func NewClockSyncJob(syncer ClockSyncer) *ClockSyncJob {
	return &ClockSyncJob{syncer: syncer}
}

// Name returns the job name
func (j *ClockSyncJob) Name() string {
	return "clock_sync"
}

// Run executes the clock sync
func (j *ClockSyncJob) Run(ctx context.Context) error {
	return j.syncer.SyncTime(ctx)
}

// WALCheckpointJob truncates the journal write-ahead log
type WALCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint
func (j *WALCheckpointJob) Run(ctx context.Context) error {
	if j.db == nil {
		return nil
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, logFrames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("wal checkpoint %s: %w", j.db.Name(), err)
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int("busy", busy).
		Int("log_frames", logFrames).
		Int("checkpointed", checkpointed).
		Msg("WAL checkpoint completed")
	return nil
}
