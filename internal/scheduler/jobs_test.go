package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/rebalancing"
	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	testingpkg "github.com/aristath/sentinel-futures/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	report *rebalancing.RunReport
	err    error
	calls  int
}

func (s *stubRunner) Run(ctx context.Context) (*rebalancing.RunReport, error) {
	s.calls++
	return s.report, s.err
}

type stubReporter struct {
	today string
	days  []string
	err   error
}

func (s *stubReporter) Today() string { return s.today }

func (s *stubReporter) DailyReport(ctx context.Context, day string) (*reporting.DailyReport, error) {
	s.days = append(s.days, day)
	if s.err != nil {
		return nil, s.err
	}
	return &reporting.DailyReport{Date: day, TotalPnL: 12.5}, nil
}

type stubSyncer struct {
	err   error
	calls int
}

func (s *stubSyncer) SyncTime(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestRebalanceJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	t.Run("success", func(t *testing.T) {
		runner := &stubRunner{report: &rebalancing.RunReport{ID: "run-1", Selection: []string{"BTCUSDT"}}}
		job := NewRebalanceJob(runner, log)

		assert.Equal(t, "rebalance", job.Name())
		assert.NoError(t, job.Run(context.Background()))
		assert.Equal(t, 1, runner.calls)
	})

	t.Run("overlapping run is skipped", func(t *testing.T) {
		job := NewRebalanceJob(&stubRunner{err: domain.ErrRunInProgress}, log)
		assert.NoError(t, job.Run(context.Background()))
	})

	t.Run("aborted run fails the job", func(t *testing.T) {
		job := NewRebalanceJob(&stubRunner{err: domain.ErrModelUnavailable}, log)
		err := job.Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	})
}

func TestDailyReportJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	reporter := &stubReporter{today: "2023-01-01"}
	job := NewDailyReportJob(reporter, log)
	assert.Equal(t, "daily_report", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"2023-01-01"}, reporter.days)

	failing := NewDailyReportJob(&stubReporter{today: "2023-01-02", err: errors.New("boom")}, log)
	err := failing.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2023-01-02")
}

func TestClockSyncJob(t *testing.T) {
	syncer := &stubSyncer{}
	job := NewClockSyncJob(syncer)
	assert.Equal(t, "clock_sync", job.Name())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, syncer.calls)

	syncer.err = errors.New("unreachable")
	assert.Error(t, job.Run(context.Background()))
}

func TestWALCheckpointJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanup := testingpkg.NewTestDB(t, "journal")
	defer cleanup()

	job := NewWALCheckpointJob(db, log)
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	assert.NoError(t, NewWALCheckpointJob(nil, log).Run(context.Background()))
}
