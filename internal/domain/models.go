// Package domain provides core domain models and types.
package domain

import "time"

// OrderSide is the direction of an order or fill
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Candle is one OHLCV bar. Timestamp is the bar open time in exchange-native UTC milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// CandleSeries is an ordered OHLCV series for one symbol with strictly increasing timestamps
type CandleSeries struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// Len returns the number of bars
func (s CandleSeries) Len() int {
	return len(s.Candles)
}

// Timestamps returns the bar open times
func (s CandleSeries) Timestamps() []int64 {
	out := make([]int64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Timestamp
	}
	return out
}

// Closes returns the close column
func (s CandleSeries) Closes() []float64 {
	return s.column(func(c Candle) float64 { return c.Close })
}

// Highs returns the high column
func (s CandleSeries) Highs() []float64 {
	return s.column(func(c Candle) float64 { return c.High })
}

// Lows returns the low column
func (s CandleSeries) Lows() []float64 {
	return s.column(func(c Candle) float64 { return c.Low })
}

func (s CandleSeries) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = pick(c)
	}
	return out
}

// Position is a held futures position. Quantity is signed: positive long, negative short.
// Notional and UnrealizedPnL are reporting fields only and never feed the order diff.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	Notional      float64 `json:"notional"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	InitialMargin float64 `json:"initial_margin"`
}

// AccountSnapshot is the wallet balance plus active positions at a point in time
type AccountSnapshot struct {
	WalletBalance float64    `json:"wallet_balance"`
	Positions     []Position `json:"positions"`
}

// OrderFill is the exchange acknowledgement of an executed market order
type OrderFill struct {
	OrderID      string    `json:"order_id"`
	Symbol       string    `json:"symbol"`
	Side         OrderSide `json:"side"`
	SubmittedQty float64   `json:"submitted_qty"` // after rounding down to the exchange lot step
	ExecutedQty  float64   `json:"executed_qty"`
	AvgPrice     float64   `json:"avg_price"`
	CumQuote     float64   `json:"cum_quote"`
	Status       string    `json:"status"`
}

// TradeRecord is an executed fill returned by the exchange trade history
type TradeRecord struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Side        OrderSide `json:"side"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	RealizedPnL float64   `json:"realized_pnl"`
	Timestamp   int64     `json:"timestamp"`
}

// Time returns the trade timestamp as a UTC time
func (t TradeRecord) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}

// PlanEntry is one signed order quantity. Positive buys, negative sells.
type PlanEntry struct {
	Symbol string  `json:"symbol"`
	Delta  float64 `json:"delta"`
}

// OrderPlan is the ordered set of signed quantity deltas produced by the position diff
type OrderPlan []PlanEntry

// Delta returns the delta planned for symbol
func (p OrderPlan) Delta(symbol string) (float64, bool) {
	for _, e := range p {
		if e.Symbol == symbol {
			return e.Delta, true
		}
	}
	return 0, false
}

// AsMap returns the plan as symbol -> delta
func (p OrderPlan) AsMap() map[string]float64 {
	out := make(map[string]float64, len(p))
	for _, e := range p {
		out[e.Symbol] = e.Delta
	}
	return out
}

// OrderStatus is the outcome of processing one plan entry
type OrderStatus string

const (
	OrderStatusFilled  OrderStatus = "filled"
	OrderStatusFailed  OrderStatus = "failed"
	OrderStatusSkipped OrderStatus = "skipped"
)

// OrderResult is the per-symbol outcome of a rebalance. Err carries the typed cause for errors.Is checks.
type OrderResult struct {
	Symbol   string      `json:"symbol"`
	Side     OrderSide   `json:"side,omitempty"`
	Quantity float64     `json:"quantity"`
	Status   OrderStatus `json:"status"`
	Fill     *OrderFill  `json:"fill,omitempty"`
	Error    string      `json:"error,omitempty"`
	Err      error       `json:"-"`
}

// Succeeded reports whether the order was filled
func (r OrderResult) Succeeded() bool {
	return r.Status == OrderStatusFilled
}

// FailedResult builds a failed OrderResult from err
func FailedResult(symbol string, side OrderSide, quantity float64, err error) OrderResult {
	res := OrderResult{
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Status:   OrderStatusFailed,
		Err:      err,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
