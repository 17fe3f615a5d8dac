package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func newTestScheduler() *Scheduler {
	return New(time.UTC, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestAddJob_RejectsInvalidSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob("not a schedule", &funcJob{name: "bad", run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	_, ok := s.NextRun("bad")
	assert.False(t, ok)
}

func TestAddJob_RejectsDuplicateName(t *testing.T) {
	s := newTestScheduler()
	job := &funcJob{name: "rebalance", run: func(context.Context) error { return nil }}

	require.NoError(t, s.AddJob("0 * * * *", job))
	assert.Error(t, s.AddJob("30 * * * *", job))
}

func TestNextRun_UsesLocation(t *testing.T) {
	s := New(FixedZone(8), zerolog.Nop())
	job := &funcJob{name: "daily_report", run: func(context.Context) error { return nil }}
	require.NoError(t, s.AddJob("55 23 * * *", job))

	s.Start()
	defer s.Stop()

	next, ok := s.NextRun("daily_report")
	require.True(t, ok)
	local := next.In(FixedZone(8))
	assert.Equal(t, 23, local.Hour())
	assert.Equal(t, 55, local.Minute())
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("boom")
	calls := 0
	job := &funcJob{name: "once", run: func(context.Context) error {
		calls++
		return boom
	}}

	assert.ErrorIs(t, s.RunNow(job), boom)
	assert.Equal(t, 1, calls)
}

func TestScheduledJobRunsAndStopCancelsContext(t *testing.T) {
	s := newTestScheduler()
	started := make(chan struct{}, 1)
	cancelled := make(chan struct{})
	var once sync.Once

	job := &funcJob{name: "ticker", run: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		once.Do(func() { close(cancelled) })
		return ctx.Err()
	}}
	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	s.Stop()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestFixedZone(t *testing.T) {
	_, offset := time.Date(2023, 1, 1, 0, 0, 0, 0, FixedZone(8)).Zone()
	assert.Equal(t, 8*3600, offset)
	assert.Equal(t, "UTC-5", FixedZone(-5).String())
}
