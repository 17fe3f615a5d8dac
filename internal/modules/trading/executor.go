// Package trading submits the market orders of an order plan.
package trading

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Executor places one market order per non-zero plan entry. A failure on one symbol
// never stops the others, and orders are never resubmitted.
type Executor struct {
	placer      domain.OrderPlacer
	concurrency int
	log         zerolog.Logger
}

// NewExecutor creates an executor. concurrency < 2 submits orders one at a time in plan order.
func NewExecutor(placer domain.OrderPlacer, concurrency int, log zerolog.Logger) *Executor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Executor{
		placer:      placer,
		concurrency: concurrency,
		log:         log.With().Str("service", "order_executor").Logger(),
	}
}

// Execute submits the plan and returns one result per entry, in plan order
func (e *Executor) Execute(ctx context.Context, plan domain.OrderPlan) []domain.OrderResult {
	results := make([]domain.OrderResult, len(plan))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, entry := range plan {
		i, entry := i, entry
		g.Go(func() error {
			results[i] = e.executeEntry(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	filled, failed, skipped := countResults(results)
	e.log.Info().
		Int("filled", filled).
		Int("failed", failed).
		Int("skipped", skipped).
		Msg("Order plan executed")

	return results
}

// CloseAll flattens every position: longs are sold and shorts bought back
func (e *Executor) CloseAll(ctx context.Context, positions []domain.Position) []domain.OrderResult {
	plan := make(domain.OrderPlan, 0, len(positions))
	for _, p := range positions {
		plan = append(plan, domain.PlanEntry{Symbol: p.Symbol, Delta: -p.Quantity})
	}
	e.log.Info().Int("positions", len(plan)).Msg("Closing all positions")
	return e.Execute(ctx, plan)
}

func (e *Executor) executeEntry(ctx context.Context, entry domain.PlanEntry) (result domain.OrderResult) {
	side, qty := SideFor(entry.Delta)
	if qty == 0 {
		return domain.OrderResult{Symbol: entry.Symbol, Status: domain.OrderStatusSkipped}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", domain.ErrOrderSubmissionFailed, r)
			e.log.Error().Str("symbol", entry.Symbol).Interface("panic", r).Msg("Order submission panicked")
			result = domain.FailedResult(entry.Symbol, side, qty, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.FailedResult(entry.Symbol, side, qty,
			fmt.Errorf("%w: not submitted: %v", domain.ErrOrderSubmissionFailed, err))
	}

	fill, err := e.placer.CreateMarketOrder(ctx, entry.Symbol, side, qty)
	if err == nil && fill == nil {
		err = errors.New("empty order acknowledgement")
	}
	if err != nil {
		err = classify(err)
		e.log.Warn().
			Err(err).
			Str("symbol", entry.Symbol).
			Str("side", string(side)).
			Float64("quantity", qty).
			Msg("Order failed")
		return domain.FailedResult(entry.Symbol, side, qty, err)
	}

	e.log.Info().
		Str("symbol", entry.Symbol).
		Str("side", string(side)).
		Float64("quantity", qty).
		Float64("avg_price", fill.AvgPrice).
		Float64("cum_quote", fill.CumQuote).
		Msg("Order filled")

	return domain.OrderResult{
		Symbol:   entry.Symbol,
		Side:     side,
		Quantity: qty,
		Status:   domain.OrderStatusFilled,
		Fill:     fill,
	}
}

// SideFor maps a signed delta to an order side and an unsigned quantity
func SideFor(delta float64) (domain.OrderSide, float64) {
	if delta == 0 || math.IsNaN(delta) {
		return "", 0
	}
	if delta > 0 {
		return domain.SideBuy, delta
	}
	return domain.SideSell, -delta
}

// classify keeps exchange rejections distinct and treats everything else as a submission failure
func classify(err error) error {
	if errors.Is(err, domain.ErrOrderRejected) || errors.Is(err, domain.ErrOrderSubmissionFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrOrderSubmissionFailed, err)
}

func countResults(results []domain.OrderResult) (filled, failed, skipped int) {
	for _, r := range results {
		switch r.Status {
		case domain.OrderStatusFilled:
			filled++
		case domain.OrderStatusFailed:
			failed++
		case domain.OrderStatusSkipped:
			skipped++
		}
	}
	return filled, failed, skipped
}
