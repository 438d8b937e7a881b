package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFlag string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dash",
	Short: "marketdash - 크립토 시세 대시보드 백엔드",
	Long: `marketdash Unified CLI

Yahoo Finance 시세 기반 단일 자산 / 포트폴리오 분석 백엔드.
데이터 수집, 백테스트, 포트폴리오 시뮬레이션, 일일 리포트.

Usage:
  go run ./cmd/dash [command]

Examples:
  go run ./cmd/dash api
  go run ./cmd/dash portfolio --assets BTC,ETH,SOL --rebalance W
  go run ./cmd/dash backtest BTC --strategy ma_crossover --short 20 --long 50
  go run ./cmd/dash report generate`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 플래그는 환경변수로 전달 (config.Load가 유일한 읽기 지점)
		if cmd.Flags().Changed("env") {
			os.Setenv("ENV", envFlag)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
			os.Setenv("LOG_FORMAT", "console")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
