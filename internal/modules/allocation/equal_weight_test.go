package allocation

import (
	"math"
	"testing"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualWeight(t *testing.T) {
	alloc, err := EqualWeight([]string{"ETHUSDT", "BTCUSDT", "DOGEUSDT"}, 900)
	require.NoError(t, err)

	assert.Equal(t, []string{"ETHUSDT", "BTCUSDT", "DOGEUSDT"}, alloc.Symbols())
	for _, target := range alloc {
		assert.Equal(t, 300.0, target.Notional)
	}
	assert.InDelta(t, 900.0, alloc.Total(), 1e-9)
	assert.Equal(t, map[string]float64{"ETHUSDT": 300, "BTCUSDT": 300, "DOGEUSDT": 300}, alloc.AsMap())
}

func TestEqualWeight_SumsToFund(t *testing.T) {
	alloc, err := EqualWeight([]string{"A", "B", "C", "D", "E", "F", "G"}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, alloc.Total(), 1e-9)
}

func TestEqualWeight_Invalid(t *testing.T) {
	testCases := []struct {
		name      string
		selection []string
		fund      float64
	}{
		{"empty selection", nil, 900},
		{"zero fund", []string{"BTCUSDT"}, 0},
		{"negative fund", []string{"BTCUSDT"}, -5},
		{"nan fund", []string{"BTCUSDT"}, math.NaN()},
		{"duplicate symbol", []string{"BTCUSDT", "BTCUSDT"}, 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EqualWeight(tc.selection, tc.fund)
			assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
		})
	}
}
