package formulas

import "math"

// Bias measures how far close sits from its own trailing average.
//
//	bias(n) = close / rolling_mean(close, n)
func Bias(closes []float64, n int) []float64 {
	mean := RollingMean(closes, n)
	out := make([]float64, len(closes))
	for i, c := range closes {
		if mean[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = c / mean[i]
	}
	return out
}

// Acc compares two historical closes to the current one.
//
//	acc(n) = close[t-n] / (close[t-2n] + close[t]) * 2
//
// The first 2n bars have no value.
func Acc(closes []float64, n int) []float64 {
	out := Missing(len(closes))
	if n <= 0 {
		return out
	}
	for i := 2 * n; i < len(closes); i++ {
		denom := closes[i-2*n] + closes[i]
		if denom == 0 {
			continue
		}
		out[i] = closes[i-n] / denom * 2
	}
	return out
}

// RSV is the position of close inside its trailing high/low range, in [0, 1].
//
//	rsv(n) = (close - min(n)) / (max(n) - min(n))
//
// A flat window (max == min) has no value.
func RSV(closes []float64, n int) []float64 {
	lo := RollingMin(closes, n)
	hi := RollingMax(closes, n)
	out := Missing(len(closes))
	for i, c := range closes {
		span := hi[i] - lo[i]
		if span == 0 || math.IsNaN(span) {
			continue
		}
		out[i] = (c - lo[i]) / span
	}
	return out
}
