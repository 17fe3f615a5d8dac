package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/history"
	"github.com/aristath/sentinel-futures/internal/modules/journal"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the daily report parameters
type Config struct {
	Universe    []string
	OffsetHours int
	PageLimit   int
	PictureURL  string
}

// DailyReport is the realized PnL summary for one local day
type DailyReport struct {
	ID            string               `json:"id"`
	Date          string               `json:"date"`
	ClosedTrades  []domain.TradeRecord `json:"closed_trades"`
	TotalPnL      float64              `json:"total_pnl"`
	FailedSymbols []string             `json:"failed_symbols,omitempty"`
	Message       string               `json:"message"`
	NotifyStatus  int                  `json:"notify_status,omitempty"`
}

// Service builds and sends the daily realized PnL report
type Service struct {
	reconciler *history.Reconciler
	clock      domain.Clock
	notifier   domain.Notifier
	journal    journal.Recorder
	cfg        Config
	log        zerolog.Logger
}

// NewService creates a new reporting service. notifier and recorder may be nil.
func NewService(
	reconciler *history.Reconciler,
	clock domain.Clock,
	notifier domain.Notifier,
	recorder journal.Recorder,
	cfg Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		reconciler: reconciler,
		clock:      clock,
		notifier:   notifier,
		journal:    recorder,
		cfg:        cfg,
		log:        log.With().Str("service", "reporting").Logger(),
	}
}

// Today returns the current local date in the report timezone
func (s *Service) Today() string {
	return history.LocalDate(time.UnixMilli(s.clock.NowMs()), s.cfg.OffsetHours)
}

// DailyReport reconciles the closed trades of day (YYYY-MM-DD, local; empty means today),
// formats the report and sends it. Symbols whose history could not be fetched are listed
// in the report rather than failing it.
func (s *Service) DailyReport(ctx context.Context, day string) (*DailyReport, error) {
	if day == "" {
		day = s.Today()
	}
	started := time.Now().UTC()

	result, err := s.reconciler.ClosedTrades(ctx, history.Request{
		Symbols:     s.cfg.Universe,
		StartDate:   day,
		EndDate:     day,
		OffsetHours: s.cfg.OffsetHours,
		NowMs:       s.clock.NowMs(),
		PageLimit:   s.cfg.PageLimit,
	})
	if err != nil {
		err = fmt.Errorf("failed to reconcile trades for %s: %w", day, err)
		s.record(ctx, &DailyReport{ID: uuid.New().String(), Date: day}, started, journal.StatusError, err)
		return nil, err
	}

	report := &DailyReport{
		ID:            uuid.New().String(),
		Date:          day,
		ClosedTrades:  result.Trades,
		FailedSymbols: result.Failed(),
	}
	for _, t := range result.Trades {
		report.TotalPnL += t.RealizedPnL
	}
	report.Message = DailyMessage(result.Trades, s.cfg.OffsetHours, report.FailedSymbols)

	if s.notifier != nil {
		status, err := s.notifier.Send(ctx, report.Message, s.cfg.PictureURL)
		report.NotifyStatus = status
		if err != nil {
			s.log.Warn().Err(err).Str("date", day).Msg("Failed to send daily report")
		}
	}

	status := journal.StatusSuccess
	if len(report.FailedSymbols) > 0 {
		status = journal.StatusPartial
	}
	s.record(ctx, report, started, status, nil)

	s.log.Info().
		Str("date", day).
		Int("closed_trades", len(report.ClosedTrades)).
		Float64("total_pnl", report.TotalPnL).
		Strs("failed_symbols", report.FailedSymbols).
		Msg("Daily report generated")

	return report, nil
}

func (s *Service) record(ctx context.Context, report *DailyReport, started time.Time, status journal.RunStatus, runErr error) {
	if s.journal == nil {
		return
	}
	finished := time.Now().UTC()
	run := &journal.Run{
		ID:         report.ID,
		Kind:       journal.KindDailyReport,
		Status:     status,
		StartedAt:  started,
		FinishedAt: &finished,
		Report:     report.Message,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.journal.Record(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("run_id", report.ID).Msg("Failed to journal daily report")
	}
}
