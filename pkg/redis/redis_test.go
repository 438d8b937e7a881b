package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketdash/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on disabled client = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, err := New(&config.Config{})
	require.NoError(t, err)
	limiter := NewRateLimiter(client, "test")

	d, err := limiter.Allow(context.Background(), YahooRateLimit)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, YahooRateLimit.Limit, d.Remaining)

	require.NoError(t, limiter.Wait(context.Background(), YahooRateLimit))
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mockLimiter() (*RateLimiter, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(NewFromClient(db), "dash")
	limiter.now = func() time.Time { return fixedNow }
	return limiter, mock
}

func expectWindow(mock redismock.ClientMock, cfg RateLimitConfig, seq int) *redismock.ExpectedCmd {
	now := fixedNow.UnixMilli()
	return mock.ExpectEvalSha(slidingWindow.Hash(), []string{"dash:ratelimit:" + cfg.Key},
		now, fmt.Sprintf("%d-%d", now, seq), cfg.Window.Milliseconds(), cfg.Limit)
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter, mock := mockLimiter()
	cfg := RateLimitConfig{Key: "yahoo", Limit: 2, Window: time.Second}

	expectWindow(mock, cfg, 1).SetVal([]interface{}{int64(1), int64(1), int64(0)})
	expectWindow(mock, cfg, 2).SetVal([]interface{}{int64(0), int64(0), int64(250)})

	d, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 1}, d)

	d, err = limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 250*time.Millisecond, d.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_WaitRetriesAfterDenial(t *testing.T) {
	limiter, mock := mockLimiter()
	cfg := RateLimitConfig{Key: "yahoo", Limit: 1, Window: time.Second}

	expectWindow(mock, cfg, 1).SetVal([]interface{}{int64(0), int64(0), int64(10)})
	expectWindow(mock, cfg, 2).SetVal([]interface{}{int64(1), int64(0), int64(0)})

	require.NoError(t, limiter.Wait(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	limiter, mock := mockLimiter()
	cfg := RateLimitConfig{Key: "yahoo", Limit: 1, Window: time.Minute}

	expectWindow(mock, cfg, 1).SetVal([]interface{}{int64(0), int64(0), int64(60000)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, cfg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_ScriptError(t *testing.T) {
	limiter, mock := mockLimiter()

	expectWindow(mock, YahooRateLimit, 1).SetErr(errors.New("connection reset"))

	_, err := limiter.Allow(context.Background(), YahooRateLimit)
	assert.Error(t, err)
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
	assert.NoError(t, cache.Set(context.Background(), "key", "v", TTLShort))
	assert.NoError(t, cache.Delete(context.Background(), "key"))
}

type cachedFrame struct {
	Asset  string    `json:"asset"`
	Closes []float64 `json:"closes"`
}

func TestCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "dash")

	mock.ExpectGet("dash:cache:frame:BTC:7d:5m").SetVal(`{"asset":"BTC","closes":[1,2.5]}`)

	var got cachedFrame
	found, err := cache.Get(context.Background(), FrameKey("BTC", "7d", "5m"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedFrame{Asset: "BTC", Closes: []float64{1, 2.5}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "dash")

	mock.ExpectGet("dash:cache:latest:ETH").RedisNil()

	var got float64
	found, err := cache.Get(context.Background(), LatestPriceKey("ETH"), &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "dash")

	mock.ExpectGet("dash:cache:latest:ETH").SetErr(errors.New("connection reset"))

	var got float64
	found, err := cache.Get(context.Background(), LatestPriceKey("ETH"), &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCache_SetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "dash")

	mock.ExpectSet("dash:cache:latest:SOL", []byte(`142.5`), 5*time.Minute).SetVal("OK")
	mock.ExpectDel("dash:cache:latest:SOL").SetVal(1)

	require.NoError(t, cache.Set(context.Background(), LatestPriceKey("SOL"), 142.5, 5*time.Minute))
	require.NoError(t, cache.Delete(context.Background(), LatestPriceKey("SOL")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetOrSet_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "dash")

	mock.ExpectGet("dash:cache:latest:BTC").RedisNil()
	mock.ExpectSet("dash:cache:latest:BTC", []byte(`67250`), TTLShort).SetVal("OK")

	calls := 0
	var got float64
	err := cache.GetOrSet(context.Background(), LatestPriceKey("BTC"), &got, TTLShort, func() (interface{}, error) {
		calls++
		return 67250.0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 67250.0, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "FrameKey",
			fn:       func() string { return FrameKey("BTC", "1mo", "1d") },
			expected: "frame:BTC:1mo:1d",
		},
		{
			name:     "LatestPriceKey",
			fn:       func() string { return LatestPriceKey("ETH") },
			expected: "latest:ETH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
