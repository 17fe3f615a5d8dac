package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// ADXRLookback is the number of leading bars for which ADXR(period) is undefined
func ADXRLookback(period int) int {
	return 3*period - 2
}

// MACDLookback is the number of leading bars for which MACD is undefined
func MACDLookback(fast, slow, signal int) int {
	if slow < fast {
		slow = fast
	}
	return (slow - 1) + (signal - 1)
}

// ADXR calculates the Average Directional Movement Index Rating using go-talib.
// go-talib zero-fills the lookback region; those bars are returned as NaN here.
func ADXR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	lookback := ADXRLookback(period)
	if period < 2 || len(highs) != n || len(lows) != n || n <= lookback {
		return Missing(n)
	}

	out := talib.AdxR(highs, lows, closes, period)
	return maskLookback(out, lookback)
}

// MACD calculates MACD, its signal line and histogram using go-talib.
// Bars inside the lookback are returned as NaN.
func MACD(closes []float64, fast, slow, signal int) (macd, macdSignal, macdHist []float64) {
	n := len(closes)
	lookback := MACDLookback(fast, slow, signal)
	if fast < 1 || signal < 1 || n <= lookback {
		return Missing(n), Missing(n), Missing(n)
	}

	m, s, h := talib.Macd(closes, fast, slow, signal)
	return maskLookback(m, lookback), maskLookback(s, lookback), maskLookback(h, lookback)
}

func maskLookback(series []float64, lookback int) []float64 {
	out := make([]float64, len(series))
	copy(out, series)
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}
