// Package allocation converts a symbol selection into target notionals.
package allocation

import (
	"fmt"
	"math"

	"github.com/aristath/sentinel-futures/internal/domain"
)

// Target is the quote-currency notional to hold in one symbol
type Target struct {
	Symbol   string  `json:"symbol"`
	Notional float64 `json:"notional"`
}

// Allocation is the ordered set of targets, in selection order
type Allocation []Target

// AsMap returns symbol -> notional
func (a Allocation) AsMap() map[string]float64 {
	out := make(map[string]float64, len(a))
	for _, t := range a {
		out[t.Symbol] = t.Notional
	}
	return out
}

// Symbols returns the targeted symbols in order
func (a Allocation) Symbols() []string {
	out := make([]string, len(a))
	for i, t := range a {
		out[i] = t.Symbol
	}
	return out
}

// Total returns the sum of all target notionals
func (a Allocation) Total() float64 {
	var total float64
	for _, t := range a {
		total += t.Notional
	}
	return total
}

// EqualWeight splits totalFund evenly across selection.
// An empty selection, a duplicate symbol or a non-positive fund is an invalid allocation.
func EqualWeight(selection []string, totalFund float64) (Allocation, error) {
	if len(selection) == 0 {
		return nil, fmt.Errorf("%w: empty selection", domain.ErrInvalidAllocation)
	}
	if totalFund <= 0 || math.IsNaN(totalFund) || math.IsInf(totalFund, 0) {
		return nil, fmt.Errorf("%w: total fund must be positive, got %v", domain.ErrInvalidAllocation, totalFund)
	}

	share := totalFund / float64(len(selection))
	seen := make(map[string]bool, len(selection))
	alloc := make(Allocation, 0, len(selection))
	for _, symbol := range selection {
		if seen[symbol] {
			return nil, fmt.Errorf("%w: duplicate symbol %s", domain.ErrInvalidAllocation, symbol)
		}
		seen[symbol] = true
		alloc = append(alloc, Target{Symbol: symbol, Notional: share})
	}
	return alloc, nil
}
