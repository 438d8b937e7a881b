package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"monotonic up", []float64{100, 101, 105}, 0},
		{"single dip", []float64{100, 120, 90, 130}, -25},
		{"two dips keeps worst", []float64{100, 80, 100, 95}, -20},
		{"nan ignored", []float64{100, math.NaN(), 50}, -50},
		{"flat", []float64{100, 100, 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.equity)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, got, 0.0)
		})
	}
}

func TestDrawdowns_ZeroAtPeak(t *testing.T) {
	dd := Drawdowns([]float64{100, 110, 99, 121})
	require.Len(t, dd, 4)
	assert.Equal(t, 0.0, dd[0])
	assert.Equal(t, 0.0, dd[1])
	assert.InDelta(t, -0.1, dd[2], 1e-12)
	assert.Equal(t, 0.0, dd[3])
}

func TestUndefinedOnEmpty(t *testing.T) {
	empty := []float64{}
	onlyNaN := []float64{math.NaN(), math.NaN()}

	for _, in := range [][]float64{nil, empty, onlyNaN} {
		assert.True(t, math.IsNaN(MaxDrawdown(in)))
		assert.True(t, math.IsNaN(AnnualizedReturn(in, 252)))
		assert.True(t, math.IsNaN(AnnualizedVolatility(in, 252)))
		assert.True(t, math.IsNaN(SharpeRatio(in, 0, 252)))
		assert.True(t, math.IsNaN(Volatility(in)))
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02}
	// sample std (n-1): sqrt((1+1+4+4)e-4 / 3)
	std := math.Sqrt(10e-4 / 3)

	assert.InDelta(t, std*100, Volatility(returns), 1e-9)
	assert.InDelta(t, std*math.Sqrt(252)*100, AnnualizedVolatility(returns, 252), 1e-9)
	assert.InDelta(t, std*math.Sqrt(365)*100, AnnualizedVolatility(returns, 365), 1e-9)

	// single observation has no sample std
	assert.True(t, math.IsNaN(AnnualizedVolatility([]float64{0.05}, 252)))
}

func TestAnnualizedReturn(t *testing.T) {
	// 252 periods of +0.1% compound to (1.001)^252 - 1
	returns := make([]float64, 252)
	for i := range returns {
		returns[i] = 0.001
	}
	want := (math.Pow(1.001, 252) - 1) * 100
	assert.InDelta(t, want, AnnualizedReturn(returns, 252), 1e-9)

	// half a year of growth is extrapolated geometrically
	half := returns[:126]
	assert.InDelta(t, want, AnnualizedReturn(half, 252), 1e-9)

	assert.InDelta(t, 0, AnnualizedReturn([]float64{0, 0, 0}, 252), 1e-12)
}

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.005, 0.015}

	mean := (0.01 + 0.02 - 0.005 + 0.015) / 4
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / 3)
	assert.InDelta(t, mean/std*math.Sqrt(252), SharpeRatio(returns, 0, 252), 1e-9)

	// constant risk-free shift lowers the mean only
	rf := 0.0252
	assert.InDelta(t, (mean-rf/252)/std*math.Sqrt(252), SharpeRatio(returns, rf, 252), 1e-9)
}

func TestSharpeRatio_ZeroVolatility(t *testing.T) {
	assert.True(t, math.IsNaN(SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252)))
	assert.True(t, math.IsNaN(SharpeRatio([]float64{0, 0, 0}, 0.02, 252)))
}

func TestCorrelationMatrix(t *testing.T) {
	a := []float64{0.01, 0.02, 0.03, 0.04}
	b := []float64{0.02, 0.04, 0.06, 0.08} // perfectly correlated with a
	c := []float64{-0.01, -0.02, -0.03, -0.04}
	flat := []float64{0, 0, 0, 0}

	m := CorrelationMatrix([][]float64{a, b, c, flat})
	require.Len(t, m, 4)

	assert.Equal(t, 1.0, m[0][0])
	assert.InDelta(t, 1.0, m[0][1], 1e-12)
	assert.InDelta(t, -1.0, m[0][2], 1e-12)
	assert.Equal(t, m[0][2], m[2][0])

	// constant series: undefined, never zero
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(m[3][i]))
		assert.True(t, math.IsNaN(m[i][3]))
	}
}

func TestCorrelationMatrix_PairwiseNaN(t *testing.T) {
	a := []float64{math.NaN(), 1, 2, 3}
	b := []float64{5, 2, 4, 6}

	m := CorrelationMatrix([][]float64{a, b})
	assert.InDelta(t, 1.0, m[0][1], 1e-12)
}

func TestCompute(t *testing.T) {
	returns := []float64{0, 0.10, -0.10, 0.2222222222222222}
	equity := []float64{100, 110, 99, 121}

	s := Compute(returns, equity, Options{PeriodsPerYear: 252})
	assert.InDelta(t, -10, s.MaxDrawdownPct, 1e-9)
	assert.False(t, math.IsNaN(s.AnnualizedReturnPct))
	assert.False(t, math.IsNaN(s.SharpeRatio))
}

func TestSnapshotJSON_NaNIsNull(t *testing.T) {
	s := Compute(nil, nil, Options{})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_drawdown_pct":null,"annualized_return_pct":null,"annualized_volatility_pct":null,"sharpe_ratio":null}`, string(data))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, Nullable(math.NaN()))
	assert.Nil(t, Nullable(math.Inf(-1)))
	require.NotNil(t, Nullable(0))
	assert.Equal(t, 0.0, *Nullable(0))
}
