// Package metrics computes risk/return statistics over return and equity series.
//
// Every function drops NaN observations first and returns NaN (never 0)
// when the result is undefined: empty input, too few points, zero variance.
package metrics

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultPeriodsPerYear is the annualization factor for daily bars
const DefaultPeriodsPerYear = 252

// Options controls annualization
type Options struct {
	RiskFreeRate   float64 // annual, decimal (0.02 = 2%)
	PeriodsPerYear int
}

func (o Options) periods() float64 {
	if o.PeriodsPerYear <= 0 {
		return DefaultPeriodsPerYear
	}
	return float64(o.PeriodsPerYear)
}

// Snapshot is the metrics set shown next to an equity curve.
// NaN means undefined.
type Snapshot struct {
	MaxDrawdownPct          float64
	AnnualizedReturnPct     float64
	AnnualizedVolatilityPct float64
	SharpeRatio             float64
}

// MarshalJSON encodes undefined metrics as null
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MaxDrawdownPct          *float64 `json:"max_drawdown_pct"`
		AnnualizedReturnPct     *float64 `json:"annualized_return_pct"`
		AnnualizedVolatilityPct *float64 `json:"annualized_volatility_pct"`
		SharpeRatio             *float64 `json:"sharpe_ratio"`
	}{
		MaxDrawdownPct:          Nullable(s.MaxDrawdownPct),
		AnnualizedReturnPct:     Nullable(s.AnnualizedReturnPct),
		AnnualizedVolatilityPct: Nullable(s.AnnualizedVolatilityPct),
		SharpeRatio:             Nullable(s.SharpeRatio),
	})
}

// Compute derives a Snapshot from one return series and its equity curve
func Compute(returns, equity []float64, opts Options) Snapshot {
	ppy := int(opts.periods())
	return Snapshot{
		MaxDrawdownPct:          MaxDrawdown(equity),
		AnnualizedReturnPct:     AnnualizedReturn(returns, ppy),
		AnnualizedVolatilityPct: AnnualizedVolatility(returns, ppy),
		SharpeRatio:             SharpeRatio(returns, opts.RiskFreeRate, ppy),
	}
}

// MaxDrawdown returns the most negative (equity - running peak) / running peak, in percent.
// Always <= 0; 0 when the curve never falls below a previous peak.
func MaxDrawdown(equity []float64) float64 {
	dd := Drawdowns(equity)
	if len(dd) == 0 {
		return math.NaN()
	}
	worst := 0.0
	for _, d := range dd {
		if d < worst {
			worst = d
		}
	}
	return worst * 100
}

// Drawdowns returns the drawdown fraction at each (non-NaN) point of the curve
func Drawdowns(equity []float64) []float64 {
	xs := dropNaN(equity)
	if len(xs) == 0 {
		return nil
	}
	out := make([]float64, len(xs))
	peak := xs[0]
	for i, v := range xs {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			out[i] = (v - peak) / peak
		}
	}
	return out
}

// Volatility is the sample standard deviation of per-period returns, in percent (not annualized)
func Volatility(returns []float64) float64 {
	xs := dropNaN(returns)
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil) * 100
}

// AnnualizedVolatility scales the sample std by sqrt(periodsPerYear), in percent
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	ppy := Options{PeriodsPerYear: periodsPerYear}.periods()
	return Volatility(returns) * math.Sqrt(ppy)
}

// AnnualizedReturn compounds geometrically: prod(1+r)^(ppy/n) - 1, in percent
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	xs := dropNaN(returns)
	if len(xs) == 0 {
		return math.NaN()
	}
	ppy := Options{PeriodsPerYear: periodsPerYear}.periods()

	growth := 1.0
	for _, r := range xs {
		growth *= 1 + r
	}
	return (math.Pow(growth, ppy/float64(len(xs))) - 1) * 100
}

// SharpeRatio = mean(excess) / std(excess) * sqrt(ppy), excess = r - rfAnnual/ppy.
// NaN when the excess std is zero or undefined.
func SharpeRatio(returns []float64, riskFreeAnnual float64, periodsPerYear int) float64 {
	xs := dropNaN(returns)
	if len(xs) < 2 {
		return math.NaN()
	}
	ppy := Options{PeriodsPerYear: periodsPerYear}.periods()
	rf := riskFreeAnnual / ppy

	excess := make([]float64, len(xs))
	for i, r := range xs {
		excess[i] = r - rf
	}

	if isConstant(excess) {
		return math.NaN()
	}

	mean, std := stat.MeanStdDev(excess, nil)
	if std == 0 || math.IsNaN(std) {
		return math.NaN()
	}
	return mean / std * math.Sqrt(ppy)
}

// CorrelationMatrix returns pairwise Pearson correlations between columns.
// Pairs use the rows where both columns are defined; a constant or
// too-short pair yields NaN, including on the diagonal.
func CorrelationMatrix(columns [][]float64) [][]float64 {
	n := len(columns)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := pairCorrelation(columns[i], columns[j])
			if i == j && !math.IsNaN(c) {
				c = 1
			}
			out[i][j] = c
			out[j][i] = c
		}
	}
	return out
}

func pairCorrelation(a, b []float64) float64 {
	m := len(a)
	if len(b) < m {
		m = len(b)
	}

	xs := make([]float64, 0, m)
	ys := make([]float64, 0, m)
	for k := 0; k < m; k++ {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		xs = append(xs, a[k])
		ys = append(ys, b[k])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if isConstant(xs) || isConstant(ys) {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func isConstant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Nullable maps undefined values (NaN, ±Inf) to nil for JSON encoding
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
