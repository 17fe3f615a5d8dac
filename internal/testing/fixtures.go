package testing

import (
	"math"

	"github.com/aristath/sentinel-futures/internal/domain"
)

// FixtureStartMs is the first bar open time used by the candle fixtures (2023-01-01T00:00:00Z)
const FixtureStartMs int64 = 1672531200000

// NewCandleSeries returns n one-minute bars for symbol. Prices oscillate around base
// with a slow drift so every indicator has non-degenerate input.
func NewCandleSeries(symbol string, n int, base float64) domain.CandleSeries {
	candles := make([]domain.Candle, n)
	for i := 0; i < n; i++ {
		mid := base + base*0.02*math.Sin(float64(i)/7) + base*0.0005*float64(i)
		candles[i] = domain.Candle{
			Timestamp: FixtureStartMs + int64(i)*60_000,
			Open:      mid - base*0.001,
			High:      mid + base*0.004,
			Low:       mid - base*0.004,
			Close:     mid + base*0.001*math.Cos(float64(i)/3),
			Volume:    100 + float64(i%17),
		}
	}
	return domain.CandleSeries{Symbol: symbol, Interval: "1m", Candles: candles}
}

// NewUniverseSeries returns aligned fixture series for every symbol in universe
func NewUniverseSeries(universe []string, n int) map[string]domain.CandleSeries {
	out := make(map[string]domain.CandleSeries, len(universe))
	for i, symbol := range universe {
		out[symbol] = NewCandleSeries(symbol, n, 10*float64(i+1))
	}
	return out
}

// NewTradeFixtures returns a buy and a closing sell for BTCUSDT one minute apart starting at ts
func NewTradeFixtures(ts int64) []domain.TradeRecord {
	return []domain.TradeRecord{
		{ID: 1, OrderID: 11, Symbol: "BTCUSDT", Side: domain.SideBuy, Price: 27000, Quantity: 0.01, Timestamp: ts},
		{ID: 2, OrderID: 12, Symbol: "BTCUSDT", Side: domain.SideSell, Price: 27100, Quantity: 0.01, RealizedPnL: 1, Timestamp: ts + 60_000},
	}
}
