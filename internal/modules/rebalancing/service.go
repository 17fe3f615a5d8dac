// Package rebalancing runs the hourly portfolio rebalance: rank the universe, allocate,
// diff against held positions and execute the resulting orders.
package rebalancing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/allocation"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/aristath/sentinel-futures/internal/modules/journal"
	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	"github.com/aristath/sentinel-futures/internal/modules/trading"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Exchange is the exchange surface the rebalance needs
type Exchange interface {
	domain.MarketDataSource
	domain.AccountSource
}

// Selector picks the symbols to hold from a feature table
type Selector interface {
	SelectTop(ctx context.Context, table *features.Table) ([]string, error)
}

// Config holds the rebalance parameters
type Config struct {
	Universe    []string
	Interval    string
	CandleLimit int
	TotalFund   float64
	PictureURL  string
}

// RunReport is the outcome of one rebalance
type RunReport struct {
	ID           string               `json:"id"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
	Selection    []string             `json:"selection"`
	Plan         domain.OrderPlan     `json:"plan"`
	Results      []domain.OrderResult `json:"results"`
	Message      string               `json:"message"`
	NotifyStatus int                  `json:"notify_status,omitempty"`
}

// Failed returns the number of failed symbols
func (r *RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == domain.OrderStatusFailed {
			n++
		}
	}
	return n
}

// Service orchestrates a rebalance run. Only one run executes at a time.
type Service struct {
	exchange Exchange
	builder  *features.Builder
	selector Selector
	executor *trading.Executor
	notifier domain.Notifier
	journal  journal.Recorder
	cfg      Config
	now      func() time.Time

	running atomic.Bool
	log     zerolog.Logger
}

// NewService creates a new rebalancing service. notifier and recorder may be nil.
func NewService(
	exchange Exchange,
	builder *features.Builder,
	selector Selector,
	executor *trading.Executor,
	notifier domain.Notifier,
	recorder journal.Recorder,
	cfg Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		exchange: exchange,
		builder:  builder,
		selector: selector,
		executor: executor,
		notifier: notifier,
		journal:  recorder,
		cfg:      cfg,
		now:      time.Now,
		log:      log.With().Str("service", "rebalancing").Logger(),
	}
}

// IsRunning reports whether a run is in progress
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Run performs one rebalance. Errors returned here abort the run before any order is
// placed; per-symbol failures are reported in RunReport.Results instead.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	report := &RunReport{ID: uuid.New().String(), StartedAt: s.now().UTC()}
	log := s.log.With().Str("run_id", report.ID).Logger()
	log.Info().Int("universe", len(s.cfg.Universe)).Msg("Starting rebalance")

	if err := s.plan(ctx, report); err != nil {
		report.FinishedAt = s.now().UTC()
		log.Error().Err(err).Msg("Rebalance aborted")
		report.Message = fmt.Sprintf("\n\n[Rebalance]\nABORTED: %v", err)
		s.notify(ctx, report)
		s.record(ctx, report, journal.StatusError, err)
		return nil, err
	}

	results := s.executor.Execute(ctx, report.Plan)
	report.Results = append(results, report.Results...)

	snap, err := s.exchange.FetchAccount(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch account snapshot for report")
		snap = nil
	}

	report.Message = reporting.RebalanceMessage(report.Results, snap)
	report.FinishedAt = s.now().UTC()
	s.notify(ctx, report)
	s.record(ctx, report, journal.StatusFor(report.Results), nil)

	log.Info().
		Strs("selection", report.Selection).
		Int("orders", len(report.Plan)).
		Int("failed", report.Failed()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Rebalance completed")

	return report, nil
}

// plan runs every step that can abort the run and leaves the order plan on report.
// Symbols dropped for lack of a price are stored as failed results.
func (s *Service) plan(ctx context.Context, report *RunReport) error {
	positions, err := s.exchange.FetchPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch positions: %w", err)
	}

	series, err := s.fetchSeries(ctx)
	if err != nil {
		return err
	}

	table, err := s.builder.Build(s.cfg.Universe, series)
	if err != nil {
		return fmt.Errorf("failed to build features: %w", err)
	}

	selection, err := s.selector.SelectTop(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to rank universe: %w", err)
	}
	report.Selection = selection

	alloc, err := allocation.EqualWeight(selection, s.cfg.TotalFund)
	if err != nil {
		return err
	}

	plan, priceFailures, err := ComputeOrderPlan(ctx, s.exchange, alloc, positions)
	if err != nil {
		return err
	}
	report.Plan = plan
	report.Results = priceFailures
	return nil
}

// fetchSeries loads candles for the whole universe. Any failure aborts the run.
func (s *Service) fetchSeries(ctx context.Context) (map[string]domain.CandleSeries, error) {
	fetched := make([]domain.CandleSeries, len(s.cfg.Universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, symbol := range s.cfg.Universe {
		i, symbol := i, symbol
		g.Go(func() error {
			series, err := s.exchange.FetchOHLCV(gctx, symbol, s.cfg.Interval, s.cfg.CandleLimit)
			if err != nil {
				return fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
			}
			fetched[i] = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.CandleSeries, len(fetched))
	for i, symbol := range s.cfg.Universe {
		out[symbol] = fetched[i]
	}
	return out, nil
}

// CloseAll flattens every open position
func (s *Service) CloseAll(ctx context.Context) (*RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	report := &RunReport{ID: uuid.New().String(), StartedAt: s.now().UTC()}

	positions, err := s.exchange.FetchPositions(ctx)
	if err != nil {
		err = fmt.Errorf("failed to fetch positions: %w", err)
		report.FinishedAt = s.now().UTC()
		s.recordKind(ctx, journal.KindCloseAll, report, journal.StatusError, err)
		return nil, err
	}

	report.Results = s.executor.CloseAll(ctx, positions)
	report.Message = "\n\n[Close All]" + reporting.OrderSection(report.Results)
	report.FinishedAt = s.now().UTC()
	s.notify(ctx, report)
	s.recordKind(ctx, journal.KindCloseAll, report, journal.StatusFor(report.Results), nil)

	s.log.Info().
		Int("positions", len(positions)).
		Int("failed", report.Failed()).
		Msg("Closed all positions")
	return report, nil
}

// notify sends the report message. Delivery failures are logged only.
func (s *Service) notify(ctx context.Context, report *RunReport) {
	if s.notifier == nil {
		return
	}
	status, err := s.notifier.Send(ctx, report.Message, s.cfg.PictureURL)
	report.NotifyStatus = status
	if err != nil {
		s.log.Warn().Err(err).Str("run_id", report.ID).Msg("Failed to send rebalance notification")
		return
	}
	if status != 200 {
		s.log.Warn().Int("status", status).Str("run_id", report.ID).Msg("Notification sink returned non-OK status")
	}
}

func (s *Service) record(ctx context.Context, report *RunReport, status journal.RunStatus, runErr error) {
	s.recordKind(ctx, journal.KindRebalance, report, status, runErr)
}

// recordKind journals the run. Journal failures are logged only.
func (s *Service) recordKind(ctx context.Context, kind journal.RunKind, report *RunReport, status journal.RunStatus, runErr error) {
	if s.journal == nil {
		return
	}
	finished := report.FinishedAt
	run := &journal.Run{
		ID:         report.ID,
		Kind:       kind,
		Status:     status,
		StartedAt:  report.StartedAt,
		FinishedAt: &finished,
		Selection:  report.Selection,
		Report:     report.Message,
		Orders:     report.Results,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.journal.Record(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("run_id", report.ID).Msg("Failed to journal run")
	}
}
