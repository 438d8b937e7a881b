package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/marketdash/internal/report"
	"github.com/wonny/marketdash/pkg/config"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "일일 리포트",
	Long: `일일 텍스트 리포트를 생성하거나 최신 리포트를 출력합니다.

Example:
  go run ./cmd/dash report generate
  go run ./cmd/dash report latest`,
}

var (
	reportGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "리포트 즉시 생성",
		RunE:  runReportGenerate,
	}

	reportLatestCmd = &cobra.Command{
		Use:   "latest",
		Short: "최신 리포트 출력",
		RunE:  runReportLatest,
	}
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportLatestCmd)
}

func runReportGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	path, _, err := a.reports.Generate(cmd.Context())
	if err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Report saved: %s", path))
	return nil
}

func runReportLatest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path, content, err := report.Latest(cfg.Report.Dir)
	if err != nil {
		return err
	}
	PrintHeader(path)
	fmt.Println(string(content))
	return nil
}
