package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketdash/internal/scheduler"
	"github.com/wonny/marketdash/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 즉시 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/dash scheduler start
  go run ./cmd/dash scheduler run daily_report`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_report: 매일 REPORT_SCHEDULE (기본 20:00, TIMEZONE 기준)
- price_collection: 15분마다 (DB 설정 시에만)
- cache_cleanup: 5분마다 (메모리 캐시 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// buildScheduler registers every job the configuration allows
func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, a.cfg.Location(), scheduler.WithMetrics(a.metrics))

	list := []scheduler.Job{
		jobs.NewDailyReportJob(a.reports, a.cfg.Report.Schedule, a.log),
		jobs.NewCacheCleanupJob(a.market.Cache(), a.log),
	}
	if a.market.HasStore() {
		list = append(list, jobs.NewPriceCollectionJob(a.market, a.registry.Keys(),
			a.cfg.Market.DefaultPeriod, a.cfg.Market.DefaultInterval, a.log))
	} else {
		a.log.Info("price_collection disabled (no database)")
	}

	for _, job := range list {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== marketdash Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %-18s next: %s\n", jobName, next.Format(time.RFC3339))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nStopping scheduler...")
	sched.Stop()
	fmt.Println("✅ Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	widths := []int{18, 16}
	PrintTableHeader([]string{"JOB", "SCHEDULE"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", args[0])
	res, err := sched.RunJobSync(args[0])
	if err != nil {
		return err
	}

	if !res.Success {
		PrintError(fmt.Sprintf("Job %s failed after %d attempts: %s", res.JobName, res.Attempts, res.Error))
		return fmt.Errorf("job %s failed", res.JobName)
	}
	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", res.JobName, res.Duration.Seconds()))
	return nil
}
