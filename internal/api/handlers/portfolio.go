package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/marketdash/internal/assets"
	"github.com/wonny/marketdash/internal/chart"
	"github.com/wonny/marketdash/internal/metrics"
	"github.com/wonny/marketdash/internal/portfolio"
	"github.com/wonny/marketdash/pkg/logger"
)

// PortfolioAnalyzer runs the multi-asset view
type PortfolioAnalyzer interface {
	Analyze(ctx context.Context, req portfolio.Request) (*portfolio.Analysis, error)
}

// PortfolioHandler handles portfolio endpoints
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	analyzer PortfolioAnalyzer
	registry *assets.Registry
	defaults Defaults
	logger   *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(analyzer PortfolioAnalyzer, registry *assets.Registry, defaults Defaults, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		analyzer: analyzer,
		registry: registry,
		defaults: defaults,
		logger:   log,
	}
}

// PortfolioResponse is the JSON form of portfolio.Analysis (NaN -> null)
type PortfolioResponse struct {
	NoData    bool               `json:"no_data"`
	Skipped   []string           `json:"skipped"`
	Assets    []string           `json:"assets"`
	Weights   map[string]float64 `json:"weights"`
	Rebalance string             `json:"rebalance"`
	Period    string             `json:"period"`
	Interval  string             `json:"interval"`

	Times      []time.Time `json:"times"`
	Returns    []float64   `json:"returns"`
	Equity     []float64   `json:"equity"`
	Rebalances []bool      `json:"rebalances"`

	Metrics     metrics.Snapshot `json:"metrics"`
	Correlation [][]*float64     `json:"correlation"`

	AvgAssetVolatilityPct  *float64 `json:"avg_asset_volatility_pct"`
	PortfolioVolatilityPct *float64 `json:"portfolio_volatility_pct"`

	Normalized [][]float64 `json:"normalized"`
}

// GetPortfolio returns the simulated portfolio with metrics and correlation
// GET /api/portfolio?assets=BTC,ETH,SOL&weights=BTC:0.5,ETH:0.3,SOL:0.2&rebalance=W&period=7d&interval=5m
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r)
	if err != nil {
		respondDomainError(w, h.logger, err, "Invalid portfolio request")
		return
	}

	a, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to analyze portfolio")
		return
	}

	resp := PortfolioResponse{
		NoData:                 a.NoData,
		Skipped:                nonNil(a.Skipped),
		Assets:                 nonNil(a.Assets),
		Weights:                a.Weights,
		Rebalance:              string(req.Rebalance),
		Period:                 req.Period,
		Interval:               req.Interval,
		Metrics:                a.Metrics,
		AvgAssetVolatilityPct:  metrics.Nullable(a.AvgAssetVolatilityPct),
		PortfolioVolatilityPct: metrics.Nullable(a.PortfolioVolatilityPct),
		Normalized:             nonNil(a.Normalized),
		Times:                  []time.Time{},
		Returns:                []float64{},
		Equity:                 []float64{},
		Rebalances:             []bool{},
	}
	if sim := a.Simulation; sim != nil {
		resp.Times = nonNil(sim.Times)
		resp.Returns = nonNil(sim.Returns)
		resp.Equity = nonNil(sim.Equity)
		resp.Rebalances = nonNil(sim.Rebalances)
	}
	resp.Correlation = make([][]*float64, len(a.Correlation))
	for i, row := range a.Correlation {
		resp.Correlation[i] = make([]*float64, len(row))
		for j, c := range row {
			resp.Correlation[i][j] = metrics.Nullable(c)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    resp,
	})
}

// GetPortfolioChart renders the normalized asset prices and the portfolio equity as PNG
// GET /api/portfolio/chart?assets=BTC,ETH,SOL
func (h *PortfolioHandler) GetPortfolioChart(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r)
	if err != nil {
		respondDomainError(w, h.logger, err, "Invalid portfolio request")
		return
	}

	a, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to analyze portfolio")
		return
	}
	if a.NoData || len(a.Simulation.Times) < 2 {
		respondError(w, http.StatusNotFound, "not enough data to chart")
		return
	}

	series := make([]chart.Series, 0, len(a.Assets)+1)
	for j, key := range a.Assets {
		col := make([]float64, len(a.Normalized))
		for t := range a.Normalized {
			col[t] = a.Normalized[t][j]
		}
		series = append(series, chart.Series{Name: key, Values: col})
	}
	series = append(series, chart.Series{Name: "Portfolio", Values: a.Simulation.Equity})

	png, err := chart.RenderLines("Portfolio vs assets (base 100)", chart.Labels(a.Simulation.Times), series)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render portfolio chart")
		respondError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}
	respondPNG(w, png)
}

func (h *PortfolioHandler) request(r *http.Request) (portfolio.Request, error) {
	keys := queryList(r, "assets")
	if len(keys) == 0 {
		keys = h.registry.Keys()
	}

	weights, err := parseWeights(r.URL.Query().Get("weights"))
	if err != nil {
		return portfolio.Request{}, err
	}

	freq, err := portfolio.ParseFrequency(r.URL.Query().Get("rebalance"))
	if err != nil {
		return portfolio.Request{}, err
	}

	return portfolio.Request{
		Assets:         keys,
		Weights:        weights,
		Period:         queryOr(r, "period", h.defaults.Period),
		Interval:       queryOr(r, "interval", h.defaults.Interval),
		Rebalance:      freq,
		Base:           portfolio.DefaultBase,
		RiskFreeRate:   h.defaults.RiskFreeRate,
		PeriodsPerYear: h.defaults.PeriodsPerYear,
	}, nil
}

// nonNil keeps the no-data response the same shape ([] instead of null)
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
