package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/pkg/logger"
)

func TestMemoryCache_TTL(t *testing.T) {
	now := t0
	c := NewMemoryCache(5*time.Minute, logger.Nop())
	c.now = func() time.Time { return now }

	frame := &contracts.Frame{Asset: "BTC", Bars: dailyBars(1, 2)}
	c.Set("a", frame)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Same(t, frame, got)

	now = now.Add(6 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entry is a miss")

	stats := c.Stats()
	assert.Equal(t, CacheStats{TotalCount: 1, FreshCount: 0, StaleCount: 1, BarCount: 2}, stats)

	assert.Equal(t, 1, c.CleanStale())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, nil)
	c.Set("a", &contracts.Frame{})
	c.Set("b", &contracts.Frame{})

	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.AddDate(0, 0, -7), PeriodStart("7d", now))
	assert.Equal(t, time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC), PeriodStart("1mo", now))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), PeriodStart("ytd", now))
	assert.True(t, PeriodStart("max", now).IsZero())
}
