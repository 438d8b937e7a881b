package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketdash/internal/assets"
	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/internal/external/yahoo"
	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/pkg/logger"
	"github.com/wonny/marketdash/pkg/redis"
)

var t0 = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]contracts.Bar
	err   error
	calls int
}

func (f *fakeSource) FetchChart(ctx context.Context, symbol, period, interval string) ([]contracts.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, yahoo.ErrNoData
	}
	return bars, nil
}

type fakeStore struct {
	saved map[string][]contracts.Bar
	err   error
}

func (f *fakeStore) SaveBars(ctx context.Context, asset, interval string, bars []contracts.Bar) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.saved == nil {
		f.saved = map[string][]contracts.Bar{}
	}
	f.saved[asset+"/"+interval] = append(f.saved[asset+"/"+interval], bars...)
	return int64(len(bars)), nil
}

func (f *fakeStore) LoadBars(ctx context.Context, asset, interval string, from, to time.Time) ([]contracts.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []contracts.Bar
	for _, b := range f.saved[asset+"/"+interval] {
		if !b.Time.Before(from) && !b.Time.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func dailyBars(closes ...float64) []contracts.Bar {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func newService(src ChartSource, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return t0.AddDate(0, 0, 3) })}, opts...)
	return NewService(assets.Defaults(), src, logger.Nop(), opts...)
}

func TestFetch_UnknownAsset(t *testing.T) {
	svc := newService(&fakeSource{})

	_, err := svc.Fetch(context.Background(), "DOGE", "7d", "1d")
	assert.ErrorIs(t, err, assets.ErrUnknownAsset)
}

func TestFetch_InvalidRange(t *testing.T) {
	svc := newService(&fakeSource{})

	_, err := svc.Fetch(context.Background(), "BTC", "week", "1d")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = svc.Fetch(context.Background(), "BTC", "7d", "daily")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestFetch_CachesFrames(t *testing.T) {
	src := &fakeSource{bars: map[string][]contracts.Bar{"BTC-USD": dailyBars(100, 101)}}
	m := observability.New()
	svc := newService(src, WithMetrics(m))

	first, err := svc.Fetch(context.Background(), "BTC", "7d", "1d")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", first.Symbol)
	assert.Equal(t, 2, first.Len())

	second, err := svc.Fetch(context.Background(), "BTC", "7d", "1d")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, src.calls)

	// other ranges are separate cache entries
	_, err = svc.Fetch(context.Background(), "BTC", "1mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestFetch_FailureDegradesToEmpty(t *testing.T) {
	src := &fakeSource{err: errors.New("dial tcp: i/o timeout")}
	svc := newService(src)

	frame, err := svc.Fetch(context.Background(), "ETH", "7d", "5m")
	require.NoError(t, err)
	assert.True(t, frame.Empty())
	assert.Equal(t, "ETH", frame.Asset)

	// empty results are not cached
	_, _ = svc.Fetch(context.Background(), "ETH", "7d", "5m")
	assert.Equal(t, 2, src.calls)
}

func TestFetch_FallbackToStore(t *testing.T) {
	store := &fakeStore{saved: map[string][]contracts.Bar{
		"SOL/1d": dailyBars(20, 21, 22),
	}}
	src := &fakeSource{err: errors.New("circuit breaker is open")}
	svc := newService(src, WithStore(store))

	frame, err := svc.Fetch(context.Background(), "SOL", "7d", "1d")
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 21, 22}, frame.CloseValues())
}

func TestFetch_FallbackStoreError(t *testing.T) {
	svc := newService(&fakeSource{err: errors.New("boom")}, WithStore(&fakeStore{err: errors.New("db down")}))

	frame, err := svc.Fetch(context.Background(), "SOL", "7d", "1d")
	require.NoError(t, err)
	assert.True(t, frame.Empty())
}

func TestLatestPrice(t *testing.T) {
	src := &fakeSource{bars: map[string][]contracts.Bar{"BTC-USD": dailyBars(100, 105.5)}}
	svc := newService(src)

	price, err := svc.LatestPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 105.5, price)

	price, err = svc.LatestPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 0.0, price)

	_, err = svc.LatestPrice(context.Background(), "XYZ")
	assert.ErrorIs(t, err, assets.ErrUnknownAsset)
}

func TestCollect(t *testing.T) {
	src := &fakeSource{bars: map[string][]contracts.Bar{"BTC-USD": dailyBars(1, 2, 3)}}

	_, err := newService(src).Collect(context.Background(), "BTC", "7d", "1d")
	assert.ErrorIs(t, err, ErrNoStore)

	store := &fakeStore{}
	svc := newService(src, WithStore(store))
	n, err := svc.Collect(context.Background(), "BTC", "7d", "1d")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Len(t, store.saved["BTC/1d"], 3)

	// collected frame is served from cache
	_, err = svc.Fetch(context.Background(), "BTC", "7d", "1d")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// no upstream data is not a collection failure
	n, err = svc.Collect(context.Background(), "ETH", "7d", "1d")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFetch_RedisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "dash")

	bars := dailyBars(100, 110)
	src := &fakeSource{bars: map[string][]contracts.Bar{"BTC-USD": bars}}
	svc := newService(src, WithRedisCache(cache), WithTTL(time.Minute))

	frame := &contracts.Frame{Asset: "BTC", Symbol: "BTC-USD", Period: "7d", Interval: "1d", Bars: bars}
	payload, err := json.Marshal(frame)
	require.NoError(t, err)

	mock.ExpectGet("dash:cache:frame:BTC:7d:1d").RedisNil()
	mock.ExpectSet("dash:cache:frame:BTC:7d:1d", payload, time.Minute).SetVal("OK")
	mock.ExpectGet("dash:cache:frame:BTC:7d:1d").SetVal(string(payload))

	got, err := svc.Fetch(context.Background(), "BTC", "7d", "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	cached, err := svc.Fetch(context.Background(), "BTC", "7d", "1d")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 110}, cached.CloseValues())
	assert.Equal(t, t0, cached.Bars[0].Time)

	assert.Equal(t, 1, src.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPrice_RedisHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "dash")

	src := &fakeSource{}
	svc := newService(src, WithRedisCache(cache))

	mock.ExpectGet("dash:cache:latest:BTC").SetVal("105.5")

	price, err := svc.LatestPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 105.5, price)
	assert.Zero(t, src.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
