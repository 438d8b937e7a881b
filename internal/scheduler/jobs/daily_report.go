package jobs

import (
	"context"

	"github.com/wonny/marketdash/internal/report"
	"github.com/wonny/marketdash/pkg/logger"
)

// ReportGenerator writes one daily report
type ReportGenerator interface {
	Generate(ctx context.Context) (string, *report.Summary, error)
}

// DailyReportJob writes the daily text report
type DailyReportJob struct {
	generator ReportGenerator
	schedule  string
	logger    *logger.Logger
}

// NewDailyReportJob creates a new daily report job
func NewDailyReportJob(gen ReportGenerator, schedule string, log *logger.Logger) *DailyReportJob {
	if schedule == "" {
		schedule = "0 0 20 * * *" // 20:00 daily
	}
	return &DailyReportJob{
		generator: gen,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *DailyReportJob) Name() string {
	return "daily_report"
}

// Schedule returns the cron schedule
func (j *DailyReportJob) Schedule() string {
	return j.schedule
}

// Run generates the report
func (j *DailyReportJob) Run(ctx context.Context) error {
	path, _, err := j.generator.Generate(ctx)
	if err != nil {
		return err
	}
	j.logger.WithField("path", path).Debug("Daily report job done")
	return nil
}
