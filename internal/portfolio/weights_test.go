package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumOf(w map[string]float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func TestNormalizeWeights_PositiveSum(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]float64
	}{
		{"already normalized", map[string]float64{"BTC": 0.5, "ETH": 0.3, "SOL": 0.2}},
		{"unnormalized", map[string]float64{"BTC": 2, "ETH": 1, "SOL": 1}},
		{"one zero", map[string]float64{"BTC": 3, "ETH": 0, "SOL": 1}},
		{"tiny", map[string]float64{"BTC": 1e-12, "ETH": 3e-12}},
		{"large", map[string]float64{"BTC": 1e9, "ETH": 7e9, "SOL": 2e9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWeights(tt.in)
			require.Len(t, got, len(tt.in))
			assert.InDelta(t, 1.0, sumOf(got), 1e-9)

			// ratios preserved
			inSum := sumOf(tt.in)
			for k, v := range tt.in {
				assert.InDelta(t, v/inSum, got[k], 1e-12)
			}
		})
	}
}

func TestNormalizeWeights_NonPositiveSumFallsBackToUniform(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]float64
	}{
		{"all zero", map[string]float64{"BTC": 0, "ETH": 0, "SOL": 0}},
		{"negative", map[string]float64{"BTC": -1, "ETH": 0.5}},
		{"nan", map[string]float64{"BTC": math.NaN(), "ETH": math.NaN(), "SOL": 0, "XRP": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWeights(tt.in)
			require.Len(t, got, len(tt.in))
			for k := range tt.in {
				assert.Equal(t, 1.0/float64(len(tt.in)), got[k])
			}
		})
	}
}

func TestNormalizeWeights_Empty(t *testing.T) {
	assert.Empty(t, NormalizeWeights(nil))
}

func TestNormalizeWeights_Deterministic(t *testing.T) {
	in := map[string]float64{"A": 0.1, "B": 0.2, "C": 0.3, "D": 0.7, "E": 1.1}
	first := NormalizeWeights(in)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, NormalizeWeights(in))
	}
}

func TestWeightsFor(t *testing.T) {
	// sparse mapping: SOL missing -> 0, extra key ignored
	got := WeightsFor([]string{"BTC", "ETH", "SOL"}, map[string]float64{"BTC": 3, "ETH": 1, "DOGE": 10})
	assert.InDeltaSlice(t, []float64{0.75, 0.25, 0}, got, 1e-12)

	got = WeightsFor([]string{"BTC", "ETH"}, nil)
	assert.Equal(t, []float64{0.5, 0.5}, got)
}

func TestEqualWeights(t *testing.T) {
	got := EqualWeights([]string{"BTC", "ETH", "SOL", "BTC"})
	require.Len(t, got, 3)
	assert.InDelta(t, 1.0/3, got["SOL"], 1e-12)
}

func TestValidateWeights(t *testing.T) {
	keys := []string{"BTC", "ETH", "SOL"}

	tests := []struct {
		name    string
		weights map[string]float64
		wantErr bool
	}{
		{"nil", nil, false},
		{"subset", map[string]float64{"BTC": 1}, false},
		{"zero allowed", map[string]float64{"BTC": 0, "ETH": 1, "SOL": 1}, false},
		{"negative", map[string]float64{"BTC": -0.5, "ETH": 1, "SOL": 1}, true},
		{"nan", map[string]float64{"BTC": math.NaN()}, true},
		{"inf", map[string]float64{"ETH": math.Inf(1)}, true},
		{"unknown key", map[string]float64{"BTC": 1, "DOGE": 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(keys, tt.weights)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeight)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
