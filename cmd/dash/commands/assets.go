package commands

import (
	"github.com/spf13/cobra"
)

// assetsCmd represents the assets command
var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "자산 목록 및 최신가",
	Long: `설정된 자산 목록과 최신가를 출력합니다 (ASSETS_FILE 또는 기본 BTC/ETH/SOL).

Example:
  go run ./cmd/dash assets`,
	RunE: runAssets,
}

func init() {
	rootCmd.AddCommand(assetsCmd)
}

func runAssets(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	widths := []int{6, 12, 16, 14}
	PrintTableHeader([]string{"KEY", "SYMBOL", "NAME", "LATEST"}, widths)
	for _, asset := range a.registry.All() {
		price, err := a.market.LatestPrice(cmd.Context(), asset.Key)
		if err != nil {
			return err
		}
		PrintTableRow([]string{asset.Key, asset.Symbol, asset.Name, FormatPrice(price)}, widths)
	}
	return nil
}
