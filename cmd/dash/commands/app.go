package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/marketdash/internal/assets"
	"github.com/wonny/marketdash/internal/external/yahoo"
	"github.com/wonny/marketdash/internal/marketdata"
	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/internal/portfolio"
	"github.com/wonny/marketdash/internal/report"
	"github.com/wonny/marketdash/pkg/config"
	"github.com/wonny/marketdash/pkg/database"
	"github.com/wonny/marketdash/pkg/httputil"
	"github.com/wonny/marketdash/pkg/logger"
	"github.com/wonny/marketdash/pkg/redis"
)

// app holds the wired dependencies shared by all commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *observability.Metrics
	registry *assets.Registry
	yahoo    *yahoo.Client
	market   *marketdata.Service
	analyzer *portfolio.Analyzer
	reports  *report.Generator

	db    *database.DB
	redis *redis.Client
}

// newApp wires config -> logger -> storage -> data adapter -> analytics.
// Redis and Postgres are optional: without them the in-memory cache is used
// and there is no stored-bar fallback.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	m := observability.New()

	registry, err := assets.LoadOrDefault(cfg.Market.AssetsFile)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	a := &app{cfg: cfg, log: log, metrics: m, registry: registry}

	httpClient := httputil.New(cfg, log)
	opts := []marketdata.Option{
		marketdata.WithMetrics(m),
		marketdata.WithTTL(cfg.Market.CacheTTL),
	}

	// Redis: 공유 캐시 + 프로세스 간 레이트 리밋
	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-memory cache")
	} else if rc.Enabled() {
		a.redis = rc
		opts = append(opts, marketdata.WithRedisCache(redis.NewCache(rc, logger.ServiceName)))
		httpClient.WithRateLimiter(redis.NewRateLimiter(rc, logger.ServiceName), redis.YahooRateLimit)
		log.Info("Connected to Redis")
	}

	// Postgres: 수집된 봉 저장 + 폴백
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Debug("No database configured, bar store disabled")
	case err != nil:
		log.WithError(err).Warn("Database unavailable, bar store disabled")
	default:
		a.db = db
		repo := marketdata.NewBarRepository(db.Pool())
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		opts = append(opts, marketdata.WithStore(repo))
		log.Info("Connected to database")
	}

	a.yahoo = yahoo.NewClient(httpClient, log, cfg.Market.YahooBaseURL)
	a.market = marketdata.NewService(registry, a.yahoo, log, opts...)
	a.analyzer = portfolio.NewAnalyzer(a.market, log, m)
	a.reports = report.NewGenerator(a.market, cfg.Report.Dir, cfg.Report.Asset, log)

	return a, nil
}

// Close releases storage connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
