// Package formulas provides the numeric building blocks for feature construction.
// Series-valued functions return a slice the same length as their input and mark
// undefined positions with NaN.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// IsMissing reports whether v marks an undefined value
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// Missing returns a series of n undefined values
func Missing(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// windowStart returns the first index of a trailing window ending at i.
// Partial windows are used at the start of the series (min_periods=1).
func windowStart(i, window int) int {
	lo := i - window + 1
	if lo < 0 {
		return 0
	}
	return lo
}

// RollingMean returns the trailing mean over window bars
func RollingMean(data []float64, window int) []float64 {
	if window <= 0 {
		return Missing(len(data))
	}
	out := make([]float64, len(data))
	for i := range data {
		out[i] = stat.Mean(data[windowStart(i, window):i+1], nil)
	}
	return out
}

// RollingMin returns the trailing minimum over window bars
func RollingMin(data []float64, window int) []float64 {
	if window <= 0 {
		return Missing(len(data))
	}
	out := make([]float64, len(data))
	for i := range data {
		out[i] = floats.Min(data[windowStart(i, window) : i+1])
	}
	return out
}

// RollingMax returns the trailing maximum over window bars
func RollingMax(data []float64, window int) []float64 {
	if window <= 0 {
		return Missing(len(data))
	}
	out := make([]float64, len(data))
	for i := range data {
		out[i] = floats.Max(data[windowStart(i, window) : i+1])
	}
	return out
}
