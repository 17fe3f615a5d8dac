package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		qty      float64
		lot      *lotStep
		expected string
	}{
		{"no lot info", 0.012345, nil, "0.012345"},
		{"truncates to step", 0.12345, &lotStep{step: 0.001, decimals: 3}, "0.123"},
		{"exact multiple", 0.3, &lotStep{step: 0.1, decimals: 1}, "0.3"},
		{"integer step", 1234.9, &lotStep{step: 1, decimals: 0}, "1234"},
		{"below step", 0.0004, &lotStep{step: 0.001, decimals: 3}, "0.000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, formatQuantity(tc.qty, tc.lot))
		})
	}
}

func TestStepDecimals(t *testing.T) {
	assert.Equal(t, 3, stepDecimals("0.00100000"))
	assert.Equal(t, 0, stepDecimals("1"))
	assert.Equal(t, 0, stepDecimals("1.000"))
	assert.Equal(t, 1, stepDecimals("0.1"))
}

func TestTransformLotSizes_PrefersMarketLotSize(t *testing.T) {
	info := exchangeInfo{Symbols: []symbolInfo{
		{Symbol: "BTCUSDT", Filters: []symbolFilter{
			{FilterType: "LOT_SIZE", StepSize: "0.001"},
			{FilterType: "MARKET_LOT_SIZE", StepSize: "0.01"},
		}},
		{Symbol: "ETHUSDT", Filters: []symbolFilter{
			{FilterType: "MARKET_LOT_SIZE", StepSize: "0.01"},
			{FilterType: "LOT_SIZE", StepSize: "0.001"},
		}},
		{Symbol: "BADUSDT", Filters: []symbolFilter{{FilterType: "LOT_SIZE", StepSize: "0"}}},
	}}

	lots := transformLotSizes(info)
	assert.Equal(t, lotStep{step: 0.01, decimals: 2}, lots["BTCUSDT"])
	assert.Equal(t, lotStep{step: 0.01, decimals: 2}, lots["ETHUSDT"])
	_, ok := lots["BADUSDT"]
	assert.False(t, ok)
}
