package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketdash/internal/api"
	"github.com/wonny/marketdash/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET /health                          - Health check
  GET /api/assets                      - 자산 목록
  GET /api/assets/{key}/prices         - OHLCV (period, interval)
  GET /api/assets/{key}/latest         - 최신가
  GET /api/assets/{key}/backtest       - 전략 백테스트 (strategy, short, long)
  GET /api/assets/{key}/backtest/chart - 백테스트 차트 (PNG)
  GET /api/assets/{key}/forecast       - 선형 추세 예측 (days)
  GET /api/portfolio                   - 포트폴리오 (assets, weights, rebalance)
  GET /api/portfolio/chart             - 포트폴리오 차트 (PNG)
  GET /api/reports/latest              - 최신 일일 리포트

Example:
  go run ./cmd/dash api
  go run ./cmd/dash api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "스케줄러를 같은 프로세스에서 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== marketdash API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	defaults := handlers.Defaults{
		Period:         cfg.Market.DefaultPeriod,
		Interval:       cfg.Market.DefaultInterval,
		RiskFreeRate:   cfg.Market.RiskFreeRate,
		PeriodsPerYear: cfg.Market.PeriodsPerYear,
	}

	router := api.NewRouter(api.Handlers{
		Market:    handlers.NewMarketHandler(a.market, defaults, log),
		Backtest:  handlers.NewBacktestHandler(a.market, defaults, log),
		Forecast:  handlers.NewForecastHandler(a.market, defaults, log),
		Portfolio: handlers.NewPortfolioHandler(a.analyzer, a.registry, defaults, log),
		Report:    handlers.NewReportHandler(cfg.Report.Dir, log),
	}, log, a.metrics)

	server := api.New(cfg, log, router, a.metrics)

	if apiWithScheduler {
		sched, err := buildScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	if cfg.MetricsEnabled {
		fmt.Printf("   Metrics on http://localhost:%s/metrics\n", cfg.MetricsPort)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
