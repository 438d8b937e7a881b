package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/marketdash/pkg/logger"
)

// Collector fetches and stores bars for one asset
type Collector interface {
	Collect(ctx context.Context, asset, period, interval string) (int64, error)
}

// PriceCollectionJob stores bars for every registered asset
// ⭐ SSOT: 가격 수집 스케줄은 이 Job에서만
type PriceCollectionJob struct {
	collector Collector
	assets    []string
	period    string
	interval  string
	schedule  string
	logger    *logger.Logger
}

// NewPriceCollectionJob creates a new price collection job
func NewPriceCollectionJob(col Collector, assets []string, period, interval string, log *logger.Logger) *PriceCollectionJob {
	return &PriceCollectionJob{
		collector: col,
		assets:    assets,
		period:    period,
		interval:  interval,
		schedule:  "0 */15 * * * *",
		logger:    log,
	}
}

// WithSchedule overrides the default schedule (every 15 minutes)
func (j *PriceCollectionJob) WithSchedule(spec string) *PriceCollectionJob {
	j.schedule = spec
	return j
}

// Name returns the job name
func (j *PriceCollectionJob) Name() string {
	return "price_collection"
}

// Schedule returns the cron schedule
func (j *PriceCollectionJob) Schedule() string {
	return j.schedule
}

// Run collects every asset; one failing asset does not stop the others
func (j *PriceCollectionJob) Run(ctx context.Context) error {
	j.logger.WithField("assets", len(j.assets)).Info("Starting scheduled price collection")

	var total int64
	var errs []error
	for _, asset := range j.assets {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := j.collector.Collect(ctx, asset, j.period, j.interval)
		if err != nil {
			j.logger.WithError(err).WithAsset(asset).Warn("Price collection failed")
			errs = append(errs, fmt.Errorf("%s: %w", asset, err))
			continue
		}
		total += n
	}

	j.logger.WithFields(map[string]interface{}{
		"bars":   total,
		"failed": len(errs),
	}).Info("Scheduled price collection completed")

	// 전부 실패한 경우만 재시도 대상
	if len(errs) > 0 && len(errs) == len(j.assets) {
		return errors.Join(errs...)
	}
	return nil
}
