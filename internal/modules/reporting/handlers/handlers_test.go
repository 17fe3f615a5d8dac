package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/sentinel-futures/internal/modules/reporting"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubReporter struct {
	day string
	err error
}

func (s *stubReporter) DailyReport(ctx context.Context, day string) (*reporting.DailyReport, error) {
	s.day = day
	if s.err != nil {
		return nil, s.err
	}
	return &reporting.DailyReport{Date: day}, nil
}

func serve(reporter Reporter, target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	NewHandler(reporter, zerolog.New(nil).Level(zerolog.Disabled)).RegisterRoutes(router)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
	return w
}

func TestHandleDailyReport(t *testing.T) {
	reporter := &stubReporter{}
	w := serve(reporter, "/reports/daily?date=2022-12-27")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2022-12-27", reporter.day)
	assert.Contains(t, w.Body.String(), `"date":"2022-12-27"`)
}

func TestHandleDailyReport_DefaultsToToday(t *testing.T) {
	reporter := &stubReporter{}
	w := serve(reporter, "/reports/daily")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", reporter.day)
}

func TestHandleDailyReport_BadDate(t *testing.T) {
	w := serve(&stubReporter{}, "/reports/daily?date=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDailyReport_ServiceError(t *testing.T) {
	w := serve(&stubReporter{err: errors.New("boom")}, "/reports/daily?date=2022-12-27")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
