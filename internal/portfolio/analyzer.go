package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/internal/metrics"
	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/pkg/logger"
)

// MinAssets is the smallest basket the portfolio view accepts
const MinAssets = 3

// ErrTooFewAssets is returned when fewer than MinAssets distinct assets are requested
var ErrTooFewAssets = errors.New("portfolio needs at least 3 assets")

// Request describes one portfolio view
type Request struct {
	Assets         []string
	Weights        map[string]float64 // nil -> equal weight
	Period         string
	Interval       string
	Rebalance      Frequency
	Base           float64
	RiskFreeRate   float64 // annual, decimal
	PeriodsPerYear int
}

// Analysis is the portfolio view: simulation, metrics, correlation and diversification
type Analysis struct {
	NoData  bool     `json:"no_data"`
	Skipped []string `json:"skipped"`

	Assets  []string           `json:"assets"`
	Weights map[string]float64 `json:"weights"` // normalized target

	Simulation  *Simulation      `json:"simulation"`
	Metrics     metrics.Snapshot `json:"metrics"`
	Correlation [][]float64      `json:"-"` // NaN entries, see handlers

	// 분산 효과: 자산 평균 변동성 vs 포트폴리오 변동성 (기간 기준, %)
	AvgAssetVolatilityPct  float64 `json:"-"`
	PortfolioVolatilityPct float64 `json:"-"`

	// prices rebased to 100 at the first row, [row][col]
	Normalized [][]float64 `json:"normalized"`
}

// Analyzer builds the multi-asset portfolio view
// ⭐ SSOT: 포트폴리오 분석 흐름 (매트릭스 → 가중치 → 시뮬레이션 → 지표)
type Analyzer struct {
	fetcher contracts.FrameFetcher
	logger  *logger.Logger
	metrics *observability.Metrics
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(fetcher contracts.FrameFetcher, log *logger.Logger, m *observability.Metrics) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{
		fetcher: fetcher,
		logger:  log.WithComponent("portfolio"),
		metrics: m,
	}
}

// Analyze runs the full portfolio pipeline.
// No data is reported as Analysis{NoData: true}, not as an error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveCompute("portfolio", time.Since(start)) }()

	keys := distinct(req.Assets)
	if len(keys) < MinAssets {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewAssets, len(keys))
	}

	if err := ValidateWeights(keys, req.Weights); err != nil {
		return nil, err
	}

	freq := req.Rebalance
	if freq == "" {
		freq = Weekly
	}
	if _, err := freq.bucketOf(time.Time{}); err != nil {
		return nil, err
	}

	weights := req.Weights
	if len(weights) == 0 {
		weights = EqualWeights(keys)
	}

	m, err := BuildPriceMatrix(ctx, a.fetcher, keys, req.Period, req.Interval)
	if err != nil {
		return nil, err
	}

	if len(m.Skipped) > 0 {
		a.logger.WithFields(map[string]interface{}{
			"skipped": m.Skipped,
			"period":  req.Period,
		}).Warn("Assets without data skipped")
	}

	out := &Analysis{
		Skipped: m.Skipped,
		Assets:  m.Assets,
	}
	if m.Empty() {
		out.NoData = true
		out.Weights = map[string]float64{}
		out.Metrics = metrics.Compute(nil, nil, metrics.Options{})
		out.AvgAssetVolatilityPct = math.NaN()
		out.PortfolioVolatilityPct = math.NaN()
		return out, nil
	}

	target := WeightsFor(m.Assets, weights)
	out.Weights = make(map[string]float64, len(target))
	for j, k := range m.Assets {
		out.Weights[k] = target[j]
	}

	sim, err := Simulate(m, out.Weights, freq, req.Base)
	if err != nil {
		return nil, err
	}
	out.Simulation = sim
	out.Metrics = metrics.Compute(sim.Returns, sim.Equity, metrics.Options{
		RiskFreeRate:   req.RiskFreeRate,
		PeriodsPerYear: req.PeriodsPerYear,
	})

	// 첫 행(정의상 0)은 상관/변동성 계산에서 제외
	assetReturns := m.Returns()
	columns := make([][]float64, len(m.Assets))
	for j := range m.Assets {
		col := make([]float64, 0, len(assetReturns))
		for t := 1; t < len(assetReturns); t++ {
			col = append(col, assetReturns[t][j])
		}
		columns[j] = col
	}
	out.Correlation = metrics.CorrelationMatrix(columns)
	out.AvgAssetVolatilityPct = averageVolatility(columns)
	out.PortfolioVolatilityPct = metrics.Volatility(sim.Returns)
	out.Normalized = m.Normalized(DefaultBase)

	a.logger.WithFields(map[string]interface{}{
		"assets":    m.Assets,
		"rows":      m.Rows(),
		"rebalance": string(freq),
		"duration":  time.Since(start),
	}).Debug("Portfolio analyzed")

	return out, nil
}

// averageVolatility is the mean of defined per-asset volatilities (NaN if none)
func averageVolatility(columns [][]float64) float64 {
	var sum float64
	var n int
	for _, c := range columns {
		if v := metrics.Volatility(c); !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func distinct(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
