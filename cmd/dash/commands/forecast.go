package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/marketdash/internal/forecast"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast [asset]",
	Short: "선형 추세 예측",
	Long: `최근 30개 종가에 대한 선형 회귀로 향후 N일 가격을 추정합니다.

Example:
  go run ./cmd/dash forecast BTC
  go run ./cmd/dash forecast SOL --days 10 --period 3mo`,
	Args: cobra.ExactArgs(1),
	RunE: runForecast,
}

var (
	fcDays   int
	fcPeriod string
)

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().IntVar(&fcDays, "days", forecast.DefaultDaysAhead, "예측 일수")
	forecastCmd.Flags().StringVar(&fcPeriod, "period", "3mo", "기간 (일봉)")
}

func runForecast(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	key := strings.ToUpper(args[0])
	frame, err := a.market.Fetch(cmd.Context(), key, fcPeriod, "1d")
	if err != nil {
		return err
	}

	f, err := forecast.Trend(frame, fcDays)
	if err != nil {
		return err
	}

	PrintHeader("Linear Trend Forecast",
		fmt.Sprintf("Asset     : %s", key),
		fmt.Sprintf("Last close: %s", FormatPrice(f.LastClose)),
		fmt.Sprintf("Direction : %s", f.Direction))

	for _, p := range f.Points {
		PrintKeyValue(p.Time.Format("2006-01-02"), FormatPrice(p.Price), 10)
	}
	fmt.Println()
	return nil
}
