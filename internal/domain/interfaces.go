package domain

import "context"

// MarketDataSource provides candles and last prices
type MarketDataSource interface {
	FetchOHLCV(ctx context.Context, symbol, interval string, limit int) (CandleSeries, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// PriceLookup is the narrow price capability used by the position diff
type PriceLookup interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// AccountSource provides positions and the wallet balance
type AccountSource interface {
	FetchPositions(ctx context.Context) ([]Position, error)
	FetchAccount(ctx context.Context) (*AccountSnapshot, error)
}

// OrderPlacer submits market orders. Implementations must not retry submissions on their own.
type OrderPlacer interface {
	CreateMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64) (*OrderFill, error)
}

// TradeFetcher returns the account's fills for symbol within [startMs, endMs)
type TradeFetcher interface {
	FetchTrades(ctx context.Context, symbol string, startMs, endMs int64, limit int) ([]TradeRecord, error)
}

// Clock returns exchange time in milliseconds
type Clock interface {
	NowMs() int64
}

// ExchangeClient is the full exchange session consumed by the rebalancer
type ExchangeClient interface {
	MarketDataSource
	AccountSource
	OrderPlacer
	TradeFetcher
	Clock
}

// Notifier delivers a formatted text report with an optional image reference and returns the delivery status code
type Notifier interface {
	Send(ctx context.Context, message, imageURL string) (int, error)
}
