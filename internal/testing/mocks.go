package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/sentinel-futures/internal/domain"
)

// PlacedOrder records one call to MockExchange.CreateMarketOrder
type PlacedOrder struct {
	Symbol   string
	Side     domain.OrderSide
	Quantity float64
}

// MockExchange is an in-memory implementation of domain.ExchangeClient for testing
type MockExchange struct {
	mu sync.RWMutex

	Series      map[string]domain.CandleSeries
	Prices      map[string]float64
	PriceErrors map[string]error
	Positions   []domain.Position
	Wallet      float64
	Trades      map[string][]domain.TradeRecord
	TradeErrors map[string]error
	OrderErrors map[string]error
	Now         int64

	PositionsErr error
	OHLCVErr     error

	orders     []PlacedOrder
	tradeCalls map[string]int
	nextID     int
}

// NewMockExchange creates an empty mock exchange
func NewMockExchange() *MockExchange {
	return &MockExchange{
		Series:      make(map[string]domain.CandleSeries),
		Prices:      make(map[string]float64),
		PriceErrors: make(map[string]error),
		Trades:      make(map[string][]domain.TradeRecord),
		TradeErrors: make(map[string]error),
		OrderErrors: make(map[string]error),
		tradeCalls:  make(map[string]int),
	}
}

// FetchOHLCV returns the last limit bars of the configured series
func (m *MockExchange) FetchOHLCV(ctx context.Context, symbol, interval string, limit int) (domain.CandleSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.OHLCVErr != nil {
		return domain.CandleSeries{}, m.OHLCVErr
	}
	s, ok := m.Series[symbol]
	if !ok {
		return domain.CandleSeries{}, fmt.Errorf("no series for %s", symbol)
	}
	if limit > 0 && len(s.Candles) > limit {
		s.Candles = s.Candles[len(s.Candles)-limit:]
	}
	return s, nil
}

// LastPrice returns the configured price or error
func (m *MockExchange) LastPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.PriceErrors[symbol]; ok {
		return 0, err
	}
	p, ok := m.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, symbol)
	}
	return p, nil
}

// FetchPositions returns the configured positions
func (m *MockExchange) FetchPositions(ctx context.Context) ([]domain.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	out := make([]domain.Position, len(m.Positions))
	copy(out, m.Positions)
	return out, nil
}

// FetchAccount returns the wallet balance and the positions with non-zero initial margin
func (m *MockExchange) FetchAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	positions, err := m.FetchPositions(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &domain.AccountSnapshot{WalletBalance: m.Wallet}
	for _, p := range positions {
		if p.InitialMargin != 0 {
			snap.Positions = append(snap.Positions, p)
		}
	}
	return snap, nil
}

// CreateMarketOrder records the order and fills it at the configured price
func (m *MockExchange) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*domain.OrderFill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, PlacedOrder{Symbol: symbol, Side: side, Quantity: quantity})
	if err, ok := m.OrderErrors[symbol]; ok {
		return nil, err
	}
	m.nextID++
	price := m.Prices[symbol]
	return &domain.OrderFill{
		OrderID:      fmt.Sprintf("%d", m.nextID),
		Symbol:       symbol,
		Side:         side,
		SubmittedQty: quantity,
		ExecutedQty:  quantity,
		AvgPrice:     price,
		CumQuote:     price * quantity,
		Status:       "FILLED",
	}, nil
}

// FetchTrades returns up to limit configured trades with startMs <= ts < endMs, oldest first
func (m *MockExchange) FetchTrades(ctx context.Context, symbol string, startMs, endMs int64, limit int) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradeCalls[symbol]++
	if err, ok := m.TradeErrors[symbol]; ok {
		return nil, err
	}
	all := append([]domain.TradeRecord(nil), m.Trades[symbol]...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	var out []domain.TradeRecord
	for _, t := range all {
		if t.Timestamp >= startMs && t.Timestamp < endMs {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// NowMs returns the configured exchange time
func (m *MockExchange) NowMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Now
}

// Orders returns the orders placed so far
func (m *MockExchange) Orders() []PlacedOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PlacedOrder(nil), m.orders...)
}

// TradeCalls returns how many trade-history requests were made for symbol
func (m *MockExchange) TradeCalls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tradeCalls[symbol]
}

// MockNotifier records sent messages
type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
	Images   []string
	Status   int
	Err      error
}

// Send records the message and returns the configured status
func (n *MockNotifier) Send(ctx context.Context, message, imageURL string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, message)
	n.Images = append(n.Images, imageURL)
	if n.Err != nil {
		return 0, n.Err
	}
	if n.Status == 0 {
		return 200, nil
	}
	return n.Status, nil
}

// Sent returns a copy of the messages sent so far
func (n *MockNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Messages...)
}
