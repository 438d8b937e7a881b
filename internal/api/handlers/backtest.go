package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/marketdash/internal/chart"
	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/internal/metrics"
	"github.com/wonny/marketdash/internal/strategy"
	"github.com/wonny/marketdash/pkg/logger"
)

// BacktestHandler handles single-asset strategy endpoints
type BacktestHandler struct {
	fetcher  contracts.FrameFetcher
	defaults Defaults
	logger   *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(fetcher contracts.FrameFetcher, defaults Defaults, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		fetcher:  fetcher,
		defaults: defaults,
		logger:   log,
	}
}

// PointResponse is one strategy row; undefined moving averages are null
type PointResponse struct {
	Time           time.Time `json:"time"`
	Close          float64   `json:"close"`
	Return         float64   `json:"return"`
	ShortMA        *float64  `json:"short_ma"`
	LongMA         *float64  `json:"long_ma"`
	Signal         int       `json:"signal"`
	Position       int       `json:"position"`
	StrategyReturn float64   `json:"strategy_return"`
	Equity         float64   `json:"equity"`
}

// BacktestResponse is a strategy run with its metrics
type BacktestResponse struct {
	Asset    string           `json:"asset"`
	Strategy string           `json:"strategy"`
	Period   string           `json:"period"`
	Interval string           `json:"interval"`
	NoData   bool             `json:"no_data"`
	Metrics  metrics.Snapshot `json:"metrics"`
	Points   []PointResponse  `json:"points"`
}

// GetBacktest runs a strategy over one asset
// GET /api/assets/{key}/backtest?strategy=ma_crossover&short=20&long=50&period=1y&interval=1d
func (h *BacktestHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	res, period, interval, err := h.run(r)
	if err != nil {
		respondDomainError(w, h.logger.WithAsset(assetKey(r)), err, "Failed to run backtest")
		return
	}

	resp := BacktestResponse{
		Asset:    assetKey(r),
		Strategy: res.Strategy,
		Period:   period,
		Interval: interval,
		NoData:   res.Empty(),
		Metrics: metrics.Compute(res.Returns(), res.Equity(), metrics.Options{
			RiskFreeRate:   h.defaults.RiskFreeRate,
			PeriodsPerYear: h.defaults.PeriodsPerYear,
		}),
		Points: make([]PointResponse, len(res.Points)),
	}
	for i, p := range res.Points {
		resp.Points[i] = PointResponse{
			Time:           p.Time,
			Close:          p.Close,
			Return:         p.Return,
			ShortMA:        metrics.Nullable(p.ShortMA),
			LongMA:         metrics.Nullable(p.LongMA),
			Signal:         p.Signal,
			Position:       p.Position,
			StrategyReturn: p.StrategyReturn,
			Equity:         p.Equity,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    resp,
	})
}

// GetBacktestChart renders the strategy equity against buy-and-hold as PNG
// GET /api/assets/{key}/backtest/chart?strategy=ma_crossover
func (h *BacktestHandler) GetBacktestChart(w http.ResponseWriter, r *http.Request) {
	res, _, _, err := h.run(r)
	if err != nil {
		respondDomainError(w, h.logger.WithAsset(assetKey(r)), err, "Failed to run backtest")
		return
	}
	if len(res.Points) < 2 {
		respondError(w, http.StatusNotFound, "not enough data to chart")
		return
	}

	series := []chart.Series{{Name: res.Strategy, Values: res.Equity()}}
	if res.Strategy != strategy.BuyAndHoldName {
		bench := strategy.BuyAndHold(&contracts.Frame{Bars: barsOf(res)}, 0)
		series = append(series, chart.Series{Name: strategy.BuyAndHoldName, Values: bench.Equity()})
	}

	png, err := chart.RenderLines(assetKey(r)+" equity", chart.Labels(res.Times()), series)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render backtest chart")
		respondError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}
	respondPNG(w, png)
}

func (h *BacktestHandler) run(r *http.Request) (*strategy.Result, string, string, error) {
	key := assetKey(r)
	period := queryOr(r, "period", h.defaults.Period)
	interval := queryOr(r, "interval", h.defaults.Interval)

	short, err := queryInt(r, "short", 0)
	if err != nil {
		return nil, "", "", err
	}
	long, err := queryInt(r, "long", 0)
	if err != nil {
		return nil, "", "", err
	}

	frame, err := h.fetcher.Fetch(r.Context(), key, period, interval)
	if err != nil {
		return nil, "", "", err
	}

	res, err := strategy.Run(frame, strategy.Params{
		Name:  queryOr(r, "strategy", strategy.BuyAndHoldName),
		Short: short,
		Long:  long,
	})
	if err != nil {
		return nil, "", "", err
	}
	res.Asset = key
	return res, period, interval, nil
}

func barsOf(res *strategy.Result) []contracts.Bar {
	bars := make([]contracts.Bar, len(res.Points))
	for i, p := range res.Points {
		bars[i] = contracts.Bar{Time: p.Time, Close: p.Close}
	}
	return bars
}
