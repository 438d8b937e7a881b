package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketdash/internal/contracts"
)

var start = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func frameOf(closes ...float64) *contracts.Frame {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{Time: start.AddDate(0, 0, i), Close: c}
	}
	return &contracts.Frame{Asset: "ETH", Bars: bars}
}

func TestTrend_Line(t *testing.T) {
	// y = 10 + 2x
	f, err := Trend(frameOf(10, 12, 14, 16), 3)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, f.Intercept, 1e-9)
	assert.InDelta(t, 2.0, f.Slope, 1e-9)
	require.Len(t, f.Points, 3)
	assert.InDelta(t, 18.0, f.Points[0].Price, 1e-9)
	assert.InDelta(t, 22.0, f.Points[2].Price, 1e-9)
	assert.Equal(t, start.AddDate(0, 0, 4), f.Points[0].Time)
	assert.Equal(t, DirectionUp, f.Direction)
}

func TestTrend_UsesLastThirty(t *testing.T) {
	closes := make([]float64, 0, 40)
	for i := 0; i < 10; i++ {
		closes = append(closes, 1000) // ignored
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 300-float64(i))
	}

	f, err := Trend(frameOf(closes...), DefaultDaysAhead)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, f.Slope, 1e-9)
	assert.InDelta(t, 300.0, f.Intercept, 1e-9)
	assert.InDelta(t, 266.0, f.Points[4].Price, 1e-9)
	assert.Equal(t, DirectionDown, f.Direction)
}

func TestTrend_Errors(t *testing.T) {
	_, err := Trend(frameOf(1), 5)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = Trend(nil, 5)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = Trend(frameOf(1, 2, 3), 0)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = Trend(frameOf(1, 2, 3), MaxDaysAhead+1)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestTrend_FlatIsDown(t *testing.T) {
	f, err := Trend(frameOf(5, 5, 5), 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, f.Slope, 1e-12)
	assert.Equal(t, DirectionDown, f.Direction)
}
