package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/marketdash/internal/metrics"
	"github.com/wonny/marketdash/internal/strategy"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest [asset]",
	Short: "단일 자산 전략 백테스트",
	Long: `단일 자산에 대해 전략을 실행합니다.

전략:
  buy_and_hold  - 매수 후 보유
  ma_crossover  - 이동평균 교차 (단기 > 장기이면 보유, 신호는 다음 봉부터 적용)

Example:
  go run ./cmd/dash backtest BTC
  go run ./cmd/dash backtest ETH --strategy ma_crossover --short 10 --long 30 --period 1y --interval 1d`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

var (
	btStrategy string
	btShort    int
	btLong     int
	btPeriod   string
	btInterval string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btStrategy, "strategy", strategy.BuyAndHoldName, "전략 이름")
	backtestCmd.Flags().IntVar(&btShort, "short", strategy.DefaultShortWindow, "단기 이동평균 윈도우")
	backtestCmd.Flags().IntVar(&btLong, "long", strategy.DefaultLongWindow, "장기 이동평균 윈도우")
	backtestCmd.Flags().StringVar(&btPeriod, "period", "1y", "기간")
	backtestCmd.Flags().StringVar(&btInterval, "interval", "1d", "봉 간격")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	key := strings.ToUpper(args[0])
	frame, err := a.market.Fetch(cmd.Context(), key, btPeriod, btInterval)
	if err != nil {
		return err
	}

	res, err := strategy.Run(frame, strategy.Params{Name: btStrategy, Short: btShort, Long: btLong})
	if err != nil {
		return err
	}

	PrintHeader("Backtest",
		fmt.Sprintf("Asset     : %s (%s)", key, frame.Symbol),
		fmt.Sprintf("Strategy  : %s", res.Strategy),
		fmt.Sprintf("Period    : %s / %s", btPeriod, btInterval))

	if res.Empty() {
		PrintError("No data available")
		return nil
	}

	snap := metrics.Compute(res.Returns(), res.Equity(), metrics.Options{
		RiskFreeRate:   a.cfg.Market.RiskFreeRate,
		PeriodsPerYear: a.cfg.Market.PeriodsPerYear,
	})
	bench := strategy.BuyAndHold(frame, 0)
	equity := res.Equity()

	PrintKeyValue("Bars", fmt.Sprintf("%d", len(res.Points)), 22)
	PrintKeyValue("Final equity", FormatFloat(equity[len(equity)-1]), 22)
	PrintKeyValue("Buy & hold equity", FormatFloat(bench.Equity()[len(equity)-1]), 22)
	PrintKeyValue("Annualized return", FormatPct(snap.AnnualizedReturnPct), 22)
	PrintKeyValue("Annualized volatility", FormatPct(snap.AnnualizedVolatilityPct), 22)
	PrintKeyValue("Sharpe ratio", FormatFloat(snap.SharpeRatio), 22)
	PrintKeyValue("Max drawdown", FormatPct(snap.MaxDrawdownPct), 22)
	fmt.Println()
	return nil
}
