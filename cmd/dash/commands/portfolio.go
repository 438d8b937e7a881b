package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/marketdash/internal/portfolio"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "포트폴리오 시뮬레이션",
	Long: `다중 자산 포트폴리오를 시뮬레이션하고 지표를 출력합니다.

- 최소 3개 자산
- 가중치 미지정 시 동일 비중
- 리밸런싱: D(일) / W(주, 월요일 시작) / M(월)

Example:
  go run ./cmd/dash portfolio
  go run ./cmd/dash portfolio --assets BTC,ETH,SOL --weights BTC:0.5,ETH:0.3,SOL:0.2 --rebalance M --period 3mo --interval 1d`,
	RunE: runPortfolio,
}

var (
	pfAssets    string
	pfWeights   string
	pfRebalance string
	pfPeriod    string
	pfInterval  string
)

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVar(&pfAssets, "assets", "", "자산 키 (쉼표 구분, 기본: 전체)")
	portfolioCmd.Flags().StringVar(&pfWeights, "weights", "", "가중치 KEY:VALUE (쉼표 구분)")
	portfolioCmd.Flags().StringVar(&pfRebalance, "rebalance", "W", "리밸런싱 주기 (D|W|M)")
	portfolioCmd.Flags().StringVar(&pfPeriod, "period", "", "기간 (기본: MARKET_PERIOD)")
	portfolioCmd.Flags().StringVar(&pfInterval, "interval", "", "봉 간격 (기본: MARKET_INTERVAL)")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	keys := splitKeys(pfAssets)
	if len(keys) == 0 {
		keys = a.registry.Keys()
	}
	weights, err := parseWeightFlag(pfWeights)
	if err != nil {
		return err
	}
	freq, err := portfolio.ParseFrequency(pfRebalance)
	if err != nil {
		return err
	}

	req := portfolio.Request{
		Assets:         keys,
		Weights:        weights,
		Period:         orDefault(pfPeriod, a.cfg.Market.DefaultPeriod),
		Interval:       orDefault(pfInterval, a.cfg.Market.DefaultInterval),
		Rebalance:      freq,
		RiskFreeRate:   a.cfg.Market.RiskFreeRate,
		PeriodsPerYear: a.cfg.Market.PeriodsPerYear,
	}

	out, err := a.analyzer.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	PrintHeader("Portfolio Simulation",
		fmt.Sprintf("Assets    : %s", strings.Join(req.Assets, ", ")),
		fmt.Sprintf("Period    : %s / %s", req.Period, req.Interval),
		fmt.Sprintf("Rebalance : %s", req.Rebalance))

	if len(out.Skipped) > 0 {
		PrintWarning(fmt.Sprintf("No data, skipped: %s", strings.Join(out.Skipped, ", ")))
	}
	if out.NoData {
		PrintError("Not enough data for the selected assets")
		return nil
	}

	fmt.Println("\nWeights:")
	for _, k := range out.Assets {
		PrintKeyValue(k, fmt.Sprintf("%.1f%%", out.Weights[k]*100), 10)
	}

	sim := out.Simulation
	rebalances := 0
	for _, r := range sim.Rebalances {
		if r {
			rebalances++
		}
	}

	fmt.Println("\nPerformance:")
	PrintKeyValue("Final value", FormatFloat(sim.Equity[len(sim.Equity)-1]), 22)
	PrintKeyValue("Annualized return", FormatPct(out.Metrics.AnnualizedReturnPct), 22)
	PrintKeyValue("Annualized volatility", FormatPct(out.Metrics.AnnualizedVolatilityPct), 22)
	PrintKeyValue("Sharpe ratio", FormatFloat(out.Metrics.SharpeRatio), 22)
	PrintKeyValue("Max drawdown", FormatPct(out.Metrics.MaxDrawdownPct), 22)
	PrintKeyValue("Rebalances", strconv.Itoa(rebalances), 22)

	fmt.Println("\nDiversification (per period):")
	PrintKeyValue("Avg asset volatility", FormatPct(out.AvgAssetVolatilityPct), 22)
	PrintKeyValue("Portfolio volatility", FormatPct(out.PortfolioVolatilityPct), 22)

	fmt.Println("\nCorrelation:")
	widths := make([]int, len(out.Assets)+1)
	for i := range widths {
		widths[i] = 8
	}
	PrintTableHeader(append([]string{""}, out.Assets...), widths)
	for i, k := range out.Assets {
		row := []string{k}
		for _, c := range out.Correlation[i] {
			row = append(row, FormatFloat(c))
		}
		PrintTableRow(row, widths)
	}
	fmt.Println()
	return nil
}

func splitKeys(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseWeightFlag reads "BTC:0.5,ETH:0.3"
func parseWeightFlag(raw string) (map[string]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	out := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q (want KEY:VALUE)", part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", key, err)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = w
	}
	return out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
