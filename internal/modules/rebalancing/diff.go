package rebalancing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/allocation"
)

// FetchPrices looks up the last price of every symbol in one pass before any diff is computed.
// Symbols whose lookup fails are returned as failed results. If no symbol gets a price the
// whole run is aborted with domain.ErrNoPriceFeed.
func FetchPrices(ctx context.Context, lookup domain.PriceLookup, symbols []string) (map[string]float64, []domain.OrderResult, error) {
	prices := make(map[string]float64, len(symbols))
	var failed []domain.OrderResult

	for _, symbol := range symbols {
		price, err := lookup.LastPrice(ctx, symbol)
		if err == nil && (price <= 0 || math.IsNaN(price) || math.IsInf(price, 0)) {
			err = fmt.Errorf("invalid price %v", price)
		}
		if err != nil {
			if !errors.Is(err, domain.ErrPriceUnavailable) {
				err = fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
			}
			failed = append(failed, domain.FailedResult(symbol, "", 0, err))
			continue
		}
		prices[symbol] = price
	}

	if len(symbols) > 0 && len(prices) == 0 {
		return nil, failed, fmt.Errorf("%w: %d lookups failed", domain.ErrNoPriceFeed, len(failed))
	}
	return prices, failed, nil
}

// Diff computes the signed quantity each symbol must trade to move positions to alloc.
//
//	targeted:         delta = notional/price - held
//	held, untargeted: delta = -held
//
// Targeted symbols without a price are left out entirely. Positions listing the same
// symbol more than once are summed. The plan lists targets in allocation order followed
// by held-only symbols in position order.
func Diff(alloc allocation.Allocation, positions []domain.Position, prices map[string]float64) domain.OrderPlan {
	held := make(map[string]float64, len(positions))
	var heldOrder []string
	for _, p := range positions {
		if _, seen := held[p.Symbol]; !seen {
			heldOrder = append(heldOrder, p.Symbol)
		}
		held[p.Symbol] += p.Quantity
	}

	targeted := make(map[string]bool, len(alloc))
	plan := make(domain.OrderPlan, 0, len(alloc)+len(heldOrder))
	for _, target := range alloc {
		targeted[target.Symbol] = true
		price, ok := prices[target.Symbol]
		if !ok {
			continue
		}
		plan = append(plan, domain.PlanEntry{
			Symbol: target.Symbol,
			Delta:  target.Notional/price - held[target.Symbol],
		})
	}

	for _, symbol := range heldOrder {
		if targeted[symbol] {
			continue
		}
		plan = append(plan, domain.PlanEntry{Symbol: symbol, Delta: -held[symbol]})
	}
	return plan
}

// ComputeOrderPlan fetches prices for the targeted symbols and diffs them against positions.
// The returned results hold the symbols dropped for lack of a price.
func ComputeOrderPlan(ctx context.Context, lookup domain.PriceLookup, alloc allocation.Allocation, positions []domain.Position) (domain.OrderPlan, []domain.OrderResult, error) {
	prices, failed, err := FetchPrices(ctx, lookup, alloc.Symbols())
	if err != nil {
		return nil, failed, err
	}
	return Diff(alloc, positions, prices), failed, nil
}
