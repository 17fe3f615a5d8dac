package binance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aristath/sentinel-futures/internal/domain"
)

// transformKlines converts the raw /fapi/v1/klines array-of-arrays into a candle series.
// Each row is [openTime, open, high, low, close, volume, closeTime, ...] with prices as strings.
func transformKlines(symbol, interval string, raw [][]json.RawMessage) (domain.CandleSeries, error) {
	series := domain.CandleSeries{
		Symbol:   symbol,
		Interval: interval,
		Candles:  make([]domain.Candle, 0, len(raw)),
	}
	for i, row := range raw {
		if len(row) < 6 {
			return domain.CandleSeries{}, fmt.Errorf("kline %d: expected at least 6 fields, got %d", i, len(row))
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return domain.CandleSeries{}, fmt.Errorf("kline %d open time: %w", i, err)
		}
		vals := make([]float64, 5)
		for j := range vals {
			v, err := parseNumber(row[j+1])
			if err != nil {
				return domain.CandleSeries{}, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			vals[j] = v
		}
		series.Candles = append(series.Candles, domain.Candle{
			Timestamp: openTime,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return series, nil
}

// parseNumber accepts both quoted decimal strings and bare JSON numbers
func parseNumber(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// transformAccount keeps only active positions, i.e. those with non-zero initial margin
func transformAccount(acc accountResponse) *domain.AccountSnapshot {
	snap := &domain.AccountSnapshot{
		WalletBalance: acc.TotalWalletBalance,
		Positions:     make([]domain.Position, 0),
	}
	for _, p := range acc.Positions {
		if p.InitialMargin == 0 {
			continue
		}
		snap.Positions = append(snap.Positions, domain.Position{
			Symbol:        p.Symbol,
			Quantity:      p.PositionAmt,
			Notional:      p.Notional,
			UnrealizedPnL: p.UnrealizedProfit,
			InitialMargin: p.InitialMargin,
		})
	}
	return snap
}

func transformOrder(resp orderResponse) *domain.OrderFill {
	return &domain.OrderFill{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      resp.Symbol,
		Side:        domain.OrderSide(resp.Side),
		ExecutedQty: resp.ExecutedQty,
		AvgPrice:    resp.AvgPrice,
		CumQuote:    resp.CumQuote,
		Status:      resp.Status,
	}
}

func transformTrades(trades []userTrade) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		out = append(out, domain.TradeRecord{
			ID:          t.ID,
			OrderID:     t.OrderID,
			Symbol:      t.Symbol,
			Side:        domain.OrderSide(t.Side),
			Price:       t.Price,
			Quantity:    t.Qty,
			RealizedPnL: t.RealizedPnl,
			Timestamp:   t.Time,
		})
	}
	return out
}

// lotStep describes the quantity grid of one symbol
type lotStep struct {
	step     float64
	decimals int
}

// transformLotSizes extracts the LOT_SIZE step per symbol. MARKET_LOT_SIZE wins when present.
func transformLotSizes(info exchangeInfo) map[string]lotStep {
	out := make(map[string]lotStep, len(info.Symbols))
	for _, s := range info.Symbols {
		for _, f := range s.Filters {
			if f.FilterType != "LOT_SIZE" && f.FilterType != "MARKET_LOT_SIZE" {
				continue
			}
			step, err := strconv.ParseFloat(f.StepSize, 64)
			if err != nil || step <= 0 {
				continue
			}
			if _, seen := out[s.Symbol]; seen && f.FilterType == "LOT_SIZE" {
				continue
			}
			out[s.Symbol] = lotStep{step: step, decimals: stepDecimals(f.StepSize)}
		}
	}
	return out
}

func stepDecimals(step string) int {
	i := strings.IndexByte(step, '.')
	if i < 0 {
		return 0
	}
	return len(strings.TrimRight(step[i+1:], "0"))
}

// formatQuantity truncates qty down to the lot step, or renders it as-is when the step is unknown
func formatQuantity(qty float64, lot *lotStep) string {
	if lot == nil {
		return strconv.FormatFloat(qty, 'f', -1, 64)
	}
	steps := math.Floor(qty/lot.step + 1e-9)
	return strconv.FormatFloat(steps*lot.step, 'f', lot.decimals, 64)
}
