package reporting

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/history"
	"github.com/aristath/sentinel-futures/internal/modules/journal"
	testingpkg "github.com/aristath/sentinel-futures/internal/testing"
	"github.com/aristath/sentinel-futures/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2022-12-27 00:00 in UTC+8
const dayStart int64 = 1672070400000

type recordingJournal struct {
	runs []*journal.Run
}

func (r *recordingJournal) Record(ctx context.Context, run *journal.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

func newTestService(ex *testingpkg.MockExchange, notifier domain.Notifier, rec journal.Recorder) *Service {
	log := logger.New(logger.Config{Level: "error"})
	return NewService(
		history.NewReconciler(ex, 2, log),
		ex,
		notifier,
		rec,
		Config{Universe: []string{"BTCUSDT", "ETHUSDT"}, OffsetHours: 8, PageLimit: 100},
		log,
	)
}

func TestDailyReport_SendsClosedTrades(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	ex.Now = dayStart + 23*3600*1000
	ex.Trades["BTCUSDT"] = testingpkg.NewTradeFixtures(dayStart + 3600*1000)
	notifier := &testingpkg.MockNotifier{}
	rec := &recordingJournal{}

	report, err := newTestService(ex, notifier, rec).DailyReport(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "2022-12-27", report.Date)
	require.Len(t, report.ClosedTrades, 1)
	assert.Equal(t, 1.0, report.TotalPnL)
	assert.Empty(t, report.FailedSymbols)

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "\n1.00U")
	assert.Contains(t, sent[0], "01:01 S BTCUSDT")

	require.Len(t, rec.runs, 1)
	assert.Equal(t, journal.KindDailyReport, rec.runs[0].Kind)
	assert.Equal(t, journal.StatusSuccess, rec.runs[0].Status)
}

func TestDailyReport_FailedSymbolListed(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	ex.Now = dayStart + 23*3600*1000
	ex.TradeErrors["ETHUSDT"] = errors.New("HTTP 500")
	rec := &recordingJournal{}

	report, err := newTestService(ex, nil, rec).DailyReport(context.Background(), "2022-12-27")
	require.NoError(t, err)

	assert.Equal(t, []string{"ETHUSDT"}, report.FailedSymbols)
	assert.Contains(t, report.Message, "F ETHUSDT HISTORY UNAVAILABLE.")
	assert.Equal(t, journal.StatusPartial, rec.runs[0].Status)
}

func TestDailyReport_InvalidDate(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	rec := &recordingJournal{}

	_, err := newTestService(ex, nil, rec).DailyReport(context.Background(), "27-12-2022")
	assert.Error(t, err)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, journal.StatusError, rec.runs[0].Status)
}

func TestDailyReport_NotifierFailureIsNotFatal(t *testing.T) {
	ex := testingpkg.NewMockExchange()
	ex.Now = dayStart + 3600*1000
	notifier := &testingpkg.MockNotifier{Err: errors.New("sink down")}

	_, err := newTestService(ex, notifier, nil).DailyReport(context.Background(), "")
	assert.NoError(t, err)
}
