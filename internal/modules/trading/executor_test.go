package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	testingpkg "github.com/aristath/sentinel-futures/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nopLog = zerolog.New(nil).Level(zerolog.Disabled)

func TestExecute_IsolatesRejectedOrder(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	ex.Prices = map[string]float64{"BTCUSDT": 27000, "ETHUSDT": 1800, "SOLUSDT": 20}
	ex.OrderErrors["ETHUSDT"] = fmt.Errorf("%w: -2019 margin is insufficient", domain.ErrOrderRejected)

	plan := domain.OrderPlan{
		{Symbol: "BTCUSDT", Delta: 0.5},
		{Symbol: "ETHUSDT", Delta: 3},
		{Symbol: "SOLUSDT", Delta: -2},
	}
	results := NewExecutor(ex, 1, nopLog).Execute(context.Background(), plan)

	require.Len(t, results, 3)
	assert.Equal(t, "BTCUSDT", results[0].Symbol)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, domain.SideBuy, results[0].Side)

	assert.Equal(t, domain.OrderStatusFailed, results[1].Status)
	assert.ErrorIs(t, results[1].Err, domain.ErrOrderRejected)
	assert.Contains(t, results[1].Error, "margin is insufficient")

	assert.True(t, results[2].Succeeded())
	assert.Equal(t, domain.SideSell, results[2].Side)
	assert.Equal(t, 2.0, results[2].Quantity)

	assert.Len(t, ex.Orders(), 3)
}

func TestExecute_TransportFailureIsSubmissionFailed(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	ex.OrderErrors["BTCUSDT"] = errors.New("connection reset by peer")

	results := NewExecutor(ex, 1, nopLog).Execute(context.Background(), domain.OrderPlan{{Symbol: "BTCUSDT", Delta: 1}})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, domain.ErrOrderSubmissionFailed)
	assert.False(t, errors.Is(results[0].Err, domain.ErrOrderRejected))
}

func TestExecute_ZeroDeltaPlacesNoOrder(t *testing.T) {
	ex := testingpkg.NewMockExchange()

	results := NewExecutor(ex, 1, nopLog).Execute(context.Background(), domain.OrderPlan{{Symbol: "BTCUSDT", Delta: 0}})

	require.Len(t, results, 1)
	assert.Equal(t, domain.OrderStatusSkipped, results[0].Status)
	assert.Empty(t, ex.Orders())
}

func TestExecute_ConcurrentKeepsPlanOrder(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	plan := make(domain.OrderPlan, 0, 20)
	for i := 0; i < 20; i++ {
		symbol := fmt.Sprintf("SYM%02dUSDT", i)
		ex.Prices[symbol] = float64(i + 1)
		if i%5 == 0 {
			ex.OrderErrors[symbol] = fmt.Errorf("%w: rejected", domain.ErrOrderRejected)
		}
		plan = append(plan, domain.PlanEntry{Symbol: symbol, Delta: float64(i + 1)})
	}

	results := NewExecutor(ex, 4, nopLog).Execute(context.Background(), plan)

	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, plan[i].Symbol, r.Symbol)
		assert.Equal(t, i%5 != 0, r.Succeeded(), r.Symbol)
	}
	assert.Len(t, ex.Orders(), 20)
}

type blockingPlacer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
}

func (b *blockingPlacer) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, qty float64) (*domain.OrderFill, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	b.mu.Lock()
	if n > b.peak.Load() {
		b.peak.Store(n)
	}
	b.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return &domain.OrderFill{Symbol: symbol, Side: side, ExecutedQty: qty}, nil
}

func TestExecute_RespectsConcurrencyLimit(t *testing.T) {
	placer := &blockingPlacer{}
	plan := make(domain.OrderPlan, 12)
	for i := range plan {
		plan[i] = domain.PlanEntry{Symbol: fmt.Sprintf("S%d", i), Delta: 1}
	}

	NewExecutor(placer, 3, nopLog).Execute(context.Background(), plan)
	assert.LessOrEqual(t, placer.peak.Load(), int32(3))
}

type panickingPlacer struct{}

func (panickingPlacer) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, qty float64) (*domain.OrderFill, error) {
	if symbol == "BAD" {
		panic("unexpected payload")
	}
	return &domain.OrderFill{Symbol: symbol}, nil
}

func TestExecute_PanicIsIsolated(t *testing.T) {
	results := NewExecutor(panickingPlacer{}, 1, nopLog).Execute(context.Background(), domain.OrderPlan{
		{Symbol: "BAD", Delta: 1},
		{Symbol: "GOOD", Delta: 1},
	})

	assert.ErrorIs(t, results[0].Err, domain.ErrOrderSubmissionFailed)
	assert.True(t, results[1].Succeeded())
}

func TestExecute_CancelledContextSubmitsNothing(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewExecutor(ex, 1, nopLog).Execute(ctx, domain.OrderPlan{{Symbol: "BTCUSDT", Delta: 1}})

	assert.ErrorIs(t, results[0].Err, domain.ErrOrderSubmissionFailed)
	assert.Empty(t, ex.Orders())
}

func TestCloseAll(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	positions := []domain.Position{
		{Symbol: "BTCUSDT", Quantity: 0.5},
		{Symbol: "SOLUSDT", Quantity: -2},
	}

	results := NewExecutor(ex, 1, nopLog).CloseAll(context.Background(), positions)

	require.Len(t, results, 2)
	orders := ex.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, testingpkg.PlacedOrder{Symbol: "BTCUSDT", Side: domain.SideSell, Quantity: 0.5}, orders[0])
	assert.Equal(t, testingpkg.PlacedOrder{Symbol: "SOLUSDT", Side: domain.SideBuy, Quantity: 2}, orders[1])
}

func TestSideFor(t *testing.T) {
	side, qty := SideFor(1.5)
	assert.Equal(t, domain.SideBuy, side)
	assert.Equal(t, 1.5, qty)

	side, qty = SideFor(-0.25)
	assert.Equal(t, domain.SideSell, side)
	assert.Equal(t, 0.25, qty)

	side, qty = SideFor(0)
	assert.Equal(t, domain.OrderSide(""), side)
	assert.Equal(t, 0.0, qty)
}
