package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingMean_UsesPartialWindows(t *testing.T) {
	got := RollingMean([]float64{1, 2, 3, 4}, 2)
	assert.InDeltaSlice(t, []float64{1, 1.5, 2.5, 3.5}, got, 1e-12)
}

func TestRollingMinMax(t *testing.T) {
	data := []float64{3, 1, 4, 1, 5}
	assert.Equal(t, []float64{3, 1, 1, 1, 1}, RollingMin(data, 3))
	assert.Equal(t, []float64{3, 3, 4, 4, 5}, RollingMax(data, 3))
}

func TestBias(t *testing.T) {
	got := Bias([]float64{1, 2, 3, 4}, 2)
	assert.InDeltaSlice(t, []float64{1, 2 / 1.5, 3 / 2.5, 4 / 3.5}, got, 1e-12)
}

func TestAcc(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}

	got := Acc(closes, 1)
	require.Len(t, got, len(closes))

	assert.True(t, math.IsNaN(got[0]), "first 2n bars are undefined")
	assert.True(t, math.IsNaN(got[1]), "first 2n bars are undefined")
	for i := 2; i < len(closes); i++ {
		expected := closes[i-1] / (closes[i-2] + closes[i]) * 2
		assert.InDelta(t, expected, got[i], 1e-12, "index %d", i)
	}
}

func TestAcc_TooShortIsAllMissing(t *testing.T) {
	got := Acc([]float64{1, 2, 3}, 5)
	for _, v := range got {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRSV(t *testing.T) {
	got := RSV([]float64{1, 3, 2}, 2)

	assert.True(t, math.IsNaN(got[0]), "single observation has no range")
	assert.InDelta(t, 1.0, got[1], 1e-12)
	assert.InDelta(t, 0.0, got[2], 1e-12)
}

func TestRSV_FlatSeriesIsMissingNotError(t *testing.T) {
	got := RSV([]float64{7, 7, 7, 7}, 3)
	for i, v := range got {
		assert.True(t, math.IsNaN(v), "index %d should be missing", i)
	}
}

func TestRSV_StaysWithinUnitInterval(t *testing.T) {
	closes := syntheticCloses(300)
	for _, n := range []int{5, 10, 20} {
		for i, v := range RSV(closes, n) {
			if math.IsNaN(v) {
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0, "n=%d index %d", n, i)
			assert.LessOrEqual(t, v, 1.0, "n=%d index %d", n, i)
		}
	}
}

func syntheticCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/5) + float64(i)*0.1
	}
	return out
}
