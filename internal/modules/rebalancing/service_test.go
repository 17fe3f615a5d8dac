package rebalancing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/aristath/sentinel-futures/internal/modules/journal"
	"github.com/aristath/sentinel-futures/internal/modules/trading"
	testingpkg "github.com/aristath/sentinel-futures/internal/testing"
	"github.com/aristath/sentinel-futures/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUniverse = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "XRPUSDT"}

type stubSelector struct {
	selection []string
	err       error
	block     chan struct{}
	entered   chan struct{}
}

func (s *stubSelector) SelectTop(ctx context.Context, table *features.Table) ([]string, error) {
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	return s.selection, s.err
}

type memoryJournal struct {
	mu   sync.Mutex
	runs []*journal.Run
	err  error
}

func (m *memoryJournal) Record(ctx context.Context, run *journal.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return m.err
}

type fixture struct {
	exchange *testingpkg.MockExchange
	notifier *testingpkg.MockNotifier
	journal  *memoryJournal
	selector *stubSelector
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	ex := testingpkg.NewMockExchange()
	ex.Series = testingpkg.NewUniverseSeries(testUniverse, 300)
	ex.Prices = map[string]float64{"BTCUSDT": 30000, "ETHUSDT": 1500, "BNBUSDT": 300, "XRPUSDT": 0.5}
	ex.Wallet = 1000

	f := &fixture{
		exchange: ex,
		notifier: &testingpkg.MockNotifier{},
		journal:  &memoryJournal{},
		selector: &stubSelector{selection: []string{"ETHUSDT", "BTCUSDT", "BNBUSDT"}},
	}
	f.service = NewService(
		ex,
		features.NewBuilder(log),
		f.selector,
		trading.NewExecutor(ex, 1, log),
		f.notifier,
		f.journal,
		Config{Universe: testUniverse, Interval: "1m", CandleLimit: 300, TotalFund: 900, PictureURL: "https://example.com/p.png"},
		log,
	)
	return f
}

func TestRun_RebalancesToSelection(t *testing.T) {
	f := newFixture(t)
	f.exchange.Positions = []domain.Position{
		{Symbol: "XRPUSDT", Quantity: 100, InitialMargin: 5, Notional: 50},
		{Symbol: "BTCUSDT", Quantity: 0.01, InitialMargin: 30, Notional: 300},
	}

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ETHUSDT", "BTCUSDT", "BNBUSDT"}, report.Selection)
	assert.Equal(t, 0, report.Failed())

	orders := f.exchange.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, testingpkg.PlacedOrder{Symbol: "ETHUSDT", Side: domain.SideBuy, Quantity: 0.2}, orders[0])
	assert.Equal(t, "BNBUSDT", orders[1].Symbol)
	assert.InDelta(t, 1.0, orders[1].Quantity, 1e-12)
	assert.Equal(t, testingpkg.PlacedOrder{Symbol: "XRPUSDT", Side: domain.SideSell, Quantity: 100}, orders[2])

	// BTC is already at target (300 / 30000 = 0.01)
	delta, ok := report.Plan.Delta("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, 0, delta, 1e-12)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "B ETHUSDT@")
	assert.Contains(t, sent[0], "S XRPUSDT@")
	assert.Contains(t, sent[0], "1000.00 USDT")
	assert.Equal(t, "https://example.com/p.png", f.notifier.Images[0])
	assert.Equal(t, 200, report.NotifyStatus)

	require.Len(t, f.journal.runs, 1)
	assert.Equal(t, journal.StatusSuccess, f.journal.runs[0].Status)
	assert.Equal(t, report.ID, f.journal.runs[0].ID)
}

func TestRun_ModelUnavailableAbortsBeforeOrders(t *testing.T) {
	f := newFixture(t)
	f.exchange.Positions = []domain.Position{{Symbol: "XRPUSDT", Quantity: 100, InitialMargin: 5}}
	f.selector.err = fmt.Errorf("%w: artifact missing", domain.ErrModelUnavailable)

	_, err := f.service.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Empty(t, f.exchange.Orders())

	require.Len(t, f.journal.runs, 1)
	assert.Equal(t, journal.StatusError, f.journal.runs[0].Status)
	assert.Contains(t, f.journal.runs[0].Error, "artifact missing")
}

func TestRun_NoPriceFeedAbortsBeforeOrders(t *testing.T) {
	f := newFixture(t)
	f.exchange.Positions = []domain.Position{{Symbol: "XRPUSDT", Quantity: 100, InitialMargin: 5}}
	for _, s := range f.selector.selection {
		f.exchange.PriceErrors[s] = errors.New("ticker down")
	}

	_, err := f.service.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPriceFeed)
	assert.Empty(t, f.exchange.Orders())
}

func TestRun_CandleFetchFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.exchange.OHLCVErr = errors.New("klines unavailable")

	_, err := f.service.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, f.exchange.Orders())
}

func TestRun_PartialFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.exchange.OrderErrors["BTCUSDT"] = fmt.Errorf("%w: -4164 notional too small", domain.ErrOrderRejected)
	f.exchange.PriceErrors["BNBUSDT"] = errors.New("ticker down")

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Failed())
	assert.Contains(t, report.Message, "F BTCUSDT FAILED.")
	assert.Contains(t, report.Message, "F BNBUSDT FAILED.")
	assert.Len(t, f.exchange.Orders(), 2)
	assert.Equal(t, journal.StatusPartial, f.journal.runs[0].Status)
}

func TestRun_NotificationFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.notifier.Err = errors.New("sink down")
	f.journal.err = errors.New("disk full")

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.Message)
}

func TestRun_RejectsOverlappingRun(t *testing.T) {
	f := newFixture(t)
	f.selector.block = make(chan struct{})
	f.selector.entered = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.service.Run(context.Background())
		done <- err
	}()

	select {
	case <-f.selector.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}
	assert.True(t, f.service.IsRunning())

	_, err := f.service.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	_, err = f.service.CloseAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(f.selector.block)
	require.NoError(t, <-done)
	assert.False(t, f.service.IsRunning())
}

func TestCloseAll(t *testing.T) {
	f := newFixture(t)
	f.exchange.Positions = []domain.Position{
		{Symbol: "BTCUSDT", Quantity: 0.01, InitialMargin: 30},
		{Symbol: "ETHUSDT", Quantity: -0.2, InitialMargin: 30},
	}

	report, err := f.service.CloseAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, report.Results, 2)
	orders := f.exchange.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, domain.SideSell, orders[0].Side)
	assert.Equal(t, domain.SideBuy, orders[1].Side)
	assert.Equal(t, journal.KindCloseAll, f.journal.runs[0].Kind)
}
