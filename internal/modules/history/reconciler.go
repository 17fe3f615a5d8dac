// Package history walks the exchange trade history in bounded time windows and
// reconciles it into a duplicate-free list of fills.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DayMs is the default window size. The exchange rejects userTrades ranges longer than 7 days.
	DayMs int64 = 24 * 60 * 60 * 1000
	// DefaultPageLimit is the maximum number of trades requested per window
	DefaultPageLimit = 1000

	dateLayout = "2006-01-02"
)

// Request describes one reconciliation. Dates are local calendar days (YYYY-MM-DD) in the
// zone OffsetHours east of UTC. NowMs is the exchange time bounding the walk.
type Request struct {
	Symbols     []string
	StartDate   string
	EndDate     string
	OffsetHours int
	NowMs       int64
	WindowMs    int64
	PageLimit   int
}

// Result holds the reconciled trades, in symbol order then time order, and the symbols that failed
type Result struct {
	StartMs int64                `json:"start_ms"`
	EndMs   int64                `json:"end_ms"`
	Trades  []domain.TradeRecord `json:"trades"`
	Errors  map[string]error     `json:"-"`
}

// Failed returns the failing symbols in sorted order
func (r *Result) Failed() []string {
	out := make([]string, 0, len(r.Errors))
	for s := range r.Errors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Reconciler fetches trade history per symbol
type Reconciler struct {
	fetcher     domain.TradeFetcher
	concurrency int
	log         zerolog.Logger
}

// NewReconciler creates a reconciler walking up to concurrency symbols at once
func NewReconciler(fetcher domain.TradeFetcher, concurrency int, log zerolog.Logger) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		fetcher:     fetcher,
		concurrency: concurrency,
		log:         log.With().Str("service", "history").Logger(),
	}
}

// DayRange returns local midnight of date as exchange UTC milliseconds
func DayRange(date string, offsetHours int) (int64, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.UnixMilli() - int64(offsetHours)*int64(time.Hour/time.Millisecond), nil
}

// LocalDate returns the local calendar date of t in the zone offsetHours east of UTC
func LocalDate(t time.Time, offsetHours int) string {
	return t.UTC().Add(time.Duration(offsetHours) * time.Hour).Format(dateLayout)
}

// Reconcile returns every fill in [start, end + window) for the requested symbols.
// A symbol whose fetch fails contributes no trades and is listed in Result.Errors.
// The error return is reserved for invalid requests.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Result, error) {
	startMs, err := DayRange(req.StartDate, req.OffsetHours)
	if err != nil {
		return nil, err
	}
	endMs, err := DayRange(req.EndDate, req.OffsetHours)
	if err != nil {
		return nil, err
	}
	if endMs < startMs {
		return nil, fmt.Errorf("end date %s is before start date %s", req.EndDate, req.StartDate)
	}

	window := req.WindowMs
	if window <= 0 {
		window = DayMs
	}
	limit := req.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	perSymbol := make([][]domain.TradeRecord, len(req.Symbols))
	errs := make([]error, len(req.Symbols))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, symbol := range req.Symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			perSymbol[i], errs[i] = r.walk(ctx, symbol, startMs, endMs, req.NowMs, window, limit)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{StartMs: startMs, EndMs: endMs, Errors: make(map[string]error)}
	for i, symbol := range req.Symbols {
		if errs[i] != nil {
			result.Errors[symbol] = errs[i]
			r.log.Warn().Err(errs[i]).Str("symbol", symbol).Msg("Trade history fetch failed")
			continue
		}
		result.Trades = append(result.Trades, perSymbol[i]...)
	}

	r.log.Debug().
		Int64("start_ms", startMs).
		Int64("end_ms", endMs).
		Int("trades", len(result.Trades)).
		Int("failed_symbols", len(result.Errors)).
		Msg("Trade history reconciled")

	return result, nil
}

// ClosedTrades reconciles and keeps only the fills that realized PnL (sells)
func (r *Reconciler) ClosedTrades(ctx context.Context, req Request) (*Result, error) {
	result, err := r.Reconcile(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Trades = ClosedTrades(result.Trades)
	return result, nil
}

// ClosedTrades filters fills to the sell side
func ClosedTrades(trades []domain.TradeRecord) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Side == domain.SideSell {
			out = append(out, t)
		}
	}
	return out
}

// walk pages through one symbol's history in windows [start+k*window, start+(k+1)*window).
// A window is only opened while its start is before now and not after endMs. Inside a
// window a full page is followed by another request from the last returned timestamp
// until a short page comes back.
func (r *Reconciler) walk(ctx context.Context, symbol string, startMs, endMs, nowMs, window int64, limit int) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	seen := make(map[int64]bool)

	for windowStart := startMs; windowStart < nowMs && windowStart <= endMs; windowStart += window {
		windowEnd := windowStart + window
		cursor := windowStart
		for {
			trades, err := r.fetcher.FetchTrades(ctx, symbol, cursor, windowEnd, limit)
			if err != nil {
				return nil, fmt.Errorf("%w: %s window [%d, %d): %v", domain.ErrHistoryFetchFailed, symbol, cursor, windowEnd, err)
			}

			sort.SliceStable(trades, func(i, j int) bool { return trades[i].Timestamp < trades[j].Timestamp })
			for _, t := range trades {
				if t.Timestamp < cursor || t.Timestamp >= windowEnd || seen[t.ID] {
					continue
				}
				seen[t.ID] = true
				out = append(out, t)
			}

			next, more := nextCursor(cursor, windowEnd, trades, limit)
			if !more {
				break
			}
			if next > trades[len(trades)-1].Timestamp {
				// The whole page shares one millisecond; fills beyond the page limit in it are not reachable by time
				r.log.Warn().
					Str("symbol", symbol).
					Int64("timestamp_ms", trades[len(trades)-1].Timestamp).
					Int("limit", limit).
					Msg("Page filled by a single millisecond, later fills in it may be missing")
			}
			cursor = next
		}
	}
	return out, nil
}

// nextCursor decides where the next request inside the current window starts.
//
//	short page (including empty): the window is exhausted, move to windowEnd
//	full page: re-fetch from the last timestamp so same-millisecond fills past the page
//	           are picked up (duplicates are dropped by ID); if that would not advance,
//	           step one millisecond past it
//
// more is false when the window is done.
func nextCursor(cursor, windowEnd int64, trades []domain.TradeRecord, limit int) (next int64, more bool) {
	if len(trades) < limit {
		return windowEnd, false
	}

	last := trades[len(trades)-1].Timestamp
	next = last
	if next <= cursor {
		next = last + 1
	}
	if next <= cursor {
		next = cursor + 1
	}
	if next >= windowEnd {
		return windowEnd, false
	}
	return next, true
}
