// Package features derives the per-symbol technical feature table consumed by the ranking model.
package features

import (
	"fmt"
	"math"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/pkg/formulas"
	"github.com/rs/zerolog"
)

// MinBars is the history needed before the longest indicator (ADXR over 56 bars) produces a value
var MinBars = formulas.ADXRLookback(baseADXRPeriod*Multipliers[len(Multipliers)-1]) + 1

// Builder computes feature tables from aligned candle series
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a feature builder
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log.With().Str("component", "feature_builder").Logger()}
}

// Build computes one row per universe symbol, in universe order, at the latest common timestamp.
// Every symbol must have a series and all series must share the same timestamp index.
func (b *Builder) Build(universe []string, series map[string]domain.CandleSeries) (*Table, error) {
	timestamps, err := alignedIndex(universe, series)
	if err != nil {
		return nil, err
	}

	n := len(timestamps)
	if n < MinBars {
		b.log.Warn().
			Int("bars", n).
			Int("min_bars", MinBars).
			Msg("Candle history shorter than the longest indicator lookback, some features will be missing")
	}

	table := NewTable(timestamps[n-1], Columns())
	for _, symbol := range universe {
		table.addRow(symbol, latestFeatures(series[symbol]))
	}

	b.log.Debug().
		Int("symbols", len(table.Rows)).
		Int("bars", n).
		Int64("timestamp", table.Timestamp).
		Msg("Built feature table")

	return table, nil
}

// alignedIndex validates that every series exists, has strictly increasing timestamps
// and shares the first series' timestamp index exactly
func alignedIndex(universe []string, series map[string]domain.CandleSeries) ([]int64, error) {
	if len(universe) == 0 {
		return nil, fmt.Errorf("%w: empty universe", domain.ErrMisalignedSeries)
	}

	var ref []int64
	var refSymbol string
	for _, symbol := range universe {
		s, ok := series[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no series for %s", domain.ErrMisalignedSeries, symbol)
		}
		ts := s.Timestamps()
		if len(ts) == 0 {
			return nil, fmt.Errorf("%w: empty series for %s", domain.ErrMisalignedSeries, symbol)
		}
		for i := 1; i < len(ts); i++ {
			if ts[i] <= ts[i-1] {
				return nil, fmt.Errorf("%w: %s timestamps not strictly increasing at bar %d", domain.ErrMisalignedSeries, symbol, i)
			}
		}

		if ref == nil {
			ref, refSymbol = ts, symbol
			continue
		}
		if len(ts) != len(ref) {
			return nil, fmt.Errorf("%w: %s has %d bars, %s has %d", domain.ErrMisalignedSeries, symbol, len(ts), refSymbol, len(ref))
		}
		for i := range ts {
			if ts[i] != ref[i] {
				return nil, fmt.Errorf("%w: %s bar %d at %d, %s at %d", domain.ErrMisalignedSeries, symbol, i, ts[i], refSymbol, ref[i])
			}
		}
	}
	return ref, nil
}

// latestFeatures returns the last value of every feature column, NaN when missing
func latestFeatures(s domain.CandleSeries) []float64 {
	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()

	out := make([]float64, 0, len(Columns()))
	for _, fn := range []func([]float64, int) []float64{formulas.Bias, formulas.Acc, formulas.RSV} {
		for _, n := range Windows {
			out = append(out, last(fn(closes, n)))
		}
	}
	for _, m := range Multipliers {
		adxr := formulas.ADXR(highs, lows, closes, baseADXRPeriod*m)
		macd, signal, hist := formulas.MACD(closes, baseMACDFast*m, baseMACDSlow*m, baseMACDSignal*m)
		out = append(out, last(adxr), last(macd), last(signal), last(hist))
	}
	return out
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
