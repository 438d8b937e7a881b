package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/marketdash/internal/assets"
	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/internal/external/yahoo"
	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/pkg/logger"
	"github.com/wonny/marketdash/pkg/redis"
)

var (
	ErrInvalidPeriod   = yahoo.ErrInvalidPeriod
	ErrInvalidInterval = yahoo.ErrInvalidInterval

	// ErrNoStore is returned by Collect when no database is configured
	ErrNoStore = errors.New("bar store not configured")
)

// ChartSource is the upstream candle provider (Yahoo in production)
type ChartSource interface {
	FetchChart(ctx context.Context, symbol, period, interval string) ([]contracts.Bar, error)
}

// Service is the data adapter: asset lookup, caching, upstream fetch and
// fallback to stored bars. Irrecoverable upstream failures degrade to an
// empty frame; only configuration errors are returned.
// ⭐ SSOT: 가격 데이터 조회는 이 서비스를 통해서만
type Service struct {
	registry *assets.Registry
	source   ChartSource
	remote   *redis.Cache
	local    *MemoryCache
	store    contracts.BarStore
	metrics  *observability.Metrics
	logger   *logger.Logger
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithRedisCache uses Redis as the frame cache (shared across processes)
func WithRedisCache(c *redis.Cache) Option {
	return func(s *Service) { s.remote = c }
}

// WithMemoryCache replaces the default in-process cache
func WithMemoryCache(c *MemoryCache) Option {
	return func(s *Service) { s.local = c }
}

// WithStore enables collection and fallback to stored bars
func WithStore(store contracts.BarStore) Option {
	return func(s *Service) { s.store = store }
}

// WithMetrics records fetch outcomes
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTTL sets the cache TTL
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock overrides time.Now (tests)
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the data adapter
func NewService(registry *assets.Registry, source ChartSource, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		registry: registry,
		source:   source,
		logger:   log.WithComponent("marketdata"),
		ttl:      redis.TTLMedium,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.local == nil {
		s.local = NewMemoryCache(s.ttl, log)
	}
	return s
}

// Registry returns the configured assets
func (s *Service) Registry() *assets.Registry {
	return s.registry
}

// Cache returns the in-process frame cache (cleanup job)
func (s *Service) Cache() *MemoryCache {
	return s.local
}

// HasStore reports whether bars can be collected
func (s *Service) HasStore() bool {
	return s.store != nil
}

// Fetch returns one asset's OHLCV frame.
// Unknown asset keys and invalid ranges are errors; everything else
// (timeouts, 5xx, open breaker, no candles) yields stored bars or an empty frame.
func (s *Service) Fetch(ctx context.Context, key, period, interval string) (*contracts.Frame, error) {
	asset, err := s.registry.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !yahoo.ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if !yahoo.ValidInterval(interval) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}

	start := s.now()
	cacheKey := redis.FrameKey(key, period, interval)

	if frame, ok := s.cacheGet(ctx, cacheKey); ok {
		s.metrics.ObserveFetch(key, observability.OutcomeCacheHit, 0)
		return frame, nil
	}

	bars, err := s.source.FetchChart(ctx, asset.Symbol, period, interval)
	if err == nil {
		frame := &contracts.Frame{
			Asset:    key,
			Symbol:   asset.Symbol,
			Period:   period,
			Interval: interval,
			Bars:     bars,
		}
		s.cacheSet(ctx, cacheKey, frame)
		s.metrics.ObserveFetch(key, observability.OutcomeFetched, s.now().Sub(start))
		return frame, nil
	}

	log := s.logger.WithFields(map[string]interface{}{
		"asset":    key,
		"symbol":   asset.Symbol,
		"period":   period,
		"interval": interval,
	}).WithError(err)

	if errors.Is(err, yahoo.ErrNoData) {
		log.Info("No upstream data")
	} else {
		log.Warn("Upstream fetch failed")
	}

	if frame, ok := s.fallback(ctx, key, asset.Symbol, period, interval); ok {
		log.WithField("bars", frame.Len()).Info("Serving stored bars")
		s.metrics.ObserveFetch(key, observability.OutcomeFallback, s.now().Sub(start))
		return frame, nil
	}

	s.metrics.ObserveFetch(key, observability.OutcomeEmpty, s.now().Sub(start))
	return contracts.EmptyFrame(key, asset.Symbol, period, interval), nil
}

// errNoPrice keeps "no price" out of the Redis latest-price cache
var errNoPrice = errors.New("no latest price")

// LatestPrice returns the last close of the intraday frame, 0 when unavailable.
// With Redis enabled the price is shared across processes for TTLShort.
func (s *Service) LatestPrice(ctx context.Context, key string) (float64, error) {
	if _, err := s.registry.Lookup(key); err != nil {
		return 0, err
	}
	if !s.remoteEnabled() {
		return s.latestPrice(ctx, key)
	}

	var price float64
	err := s.remote.GetOrSet(ctx, redis.LatestPriceKey(key), &price, redis.TTLShort, func() (interface{}, error) {
		p, err := s.latestPrice(ctx, key)
		if err != nil {
			return nil, err
		}
		if p == 0 {
			return nil, errNoPrice
		}
		return p, nil
	})
	switch {
	case err == nil:
		return price, nil
	case errors.Is(err, errNoPrice):
		return 0, nil
	default:
		s.logger.WithError(err).WithAsset(key).Warn("Latest price cache unavailable")
		return s.latestPrice(ctx, key)
	}
}

func (s *Service) latestPrice(ctx context.Context, key string) (float64, error) {
	frame, err := s.Fetch(ctx, key, "1d", "5m")
	if err != nil {
		return 0, err
	}
	last, ok := frame.Last()
	if !ok {
		return 0, nil
	}
	return last.Close, nil
}

// Collect fetches fresh bars upstream (bypassing the cache) and upserts them
func (s *Service) Collect(ctx context.Context, key, period, interval string) (int64, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}

	asset, err := s.registry.Lookup(key)
	if err != nil {
		return 0, err
	}

	bars, err := s.source.FetchChart(ctx, asset.Symbol, period, interval)
	if err != nil {
		if errors.Is(err, yahoo.ErrNoData) {
			return 0, nil
		}
		return 0, fmt.Errorf("collect %s: %w", key, err)
	}

	written, err := s.store.SaveBars(ctx, key, interval, bars)
	if err != nil {
		return written, fmt.Errorf("collect %s: %w", key, err)
	}

	s.cacheSet(ctx, redis.FrameKey(key, period, interval), &contracts.Frame{
		Asset:    key,
		Symbol:   asset.Symbol,
		Period:   period,
		Interval: interval,
		Bars:     bars,
	})

	return written, nil
}

func (s *Service) fallback(ctx context.Context, key, symbol, period, interval string) (*contracts.Frame, bool) {
	if s.store == nil {
		return nil, false
	}

	now := s.now()
	bars, err := s.store.LoadBars(ctx, key, interval, PeriodStart(period, now), now)
	if err != nil {
		s.logger.WithError(err).WithAsset(key).Warn("Failed to load stored bars")
		return nil, false
	}

	bars = contracts.NormalizeBars(bars)
	if len(bars) == 0 {
		return nil, false
	}

	return &contracts.Frame{
		Asset:    key,
		Symbol:   symbol,
		Period:   period,
		Interval: interval,
		Bars:     bars,
	}, true
}

func (s *Service) cacheGet(ctx context.Context, key string) (*contracts.Frame, bool) {
	if s.remote != nil {
		var frame contracts.Frame
		found, err := s.remote.Get(ctx, key, &frame)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		} else if s.remoteEnabled() {
			s.metrics.ObserveCache("redis", found)
			if found {
				return &frame, true
			}
			return nil, false
		}
	}

	frame, ok := s.local.Get(key)
	s.metrics.ObserveCache("memory", ok)
	return frame, ok
}

func (s *Service) cacheSet(ctx context.Context, key string, frame *contracts.Frame) {
	if frame.Empty() {
		return
	}
	if s.remoteEnabled() {
		if err := s.remote.Set(ctx, key, frame, s.ttl); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
		} else {
			return
		}
	}
	s.local.Set(key, frame)
}

func (s *Service) remoteEnabled() bool {
	return s.remote != nil && s.remote.Enabled()
}
