package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/marketdash/internal/report"
	"github.com/wonny/marketdash/pkg/logger"
)

type fakeCollector struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeCollector) Collect(ctx context.Context, asset, period, interval string) (int64, error) {
	f.calls = append(f.calls, asset+"/"+period+"/"+interval)
	if f.fail[asset] {
		return 0, errors.New("upstream down")
	}
	return 10, nil
}

func TestPriceCollectionJob(t *testing.T) {
	col := &fakeCollector{fail: map[string]bool{"ETH": true}}
	job := NewPriceCollectionJob(col, []string{"BTC", "ETH", "SOL"}, "7d", "5m", logger.Nop())

	assert.Equal(t, "price_collection", job.Name())
	assert.Equal(t, "0 */15 * * * *", job.Schedule())

	// partial failure is not a job failure
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"BTC/7d/5m", "ETH/7d/5m", "SOL/7d/5m"}, col.calls)
}

func TestPriceCollectionJob_AllFailed(t *testing.T) {
	col := &fakeCollector{fail: map[string]bool{"BTC": true, "ETH": true}}
	job := NewPriceCollectionJob(col, []string{"BTC", "ETH"}, "1d", "5m", logger.Nop()).WithSchedule("@hourly")

	err := job.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ETH")
	assert.Equal(t, "@hourly", job.Schedule())
}

func TestPriceCollectionJob_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	col := &fakeCollector{}
	err := NewPriceCollectionJob(col, []string{"BTC"}, "1d", "5m", logger.Nop()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, col.calls)
}

type fakeCleaner struct{ removed int }

func (f *fakeCleaner) CleanStale() int { return f.removed }

func TestCacheCleanupJob(t *testing.T) {
	job := NewCacheCleanupJob(&fakeCleaner{removed: 3}, logger.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}

type fakeGenerator struct{ err error }

func (f *fakeGenerator) Generate(ctx context.Context) (string, *report.Summary, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "reports/report_2024-06-03.txt", &report.Summary{Asset: "BTC"}, nil
}

func TestDailyReportJob(t *testing.T) {
	job := NewDailyReportJob(&fakeGenerator{}, "", logger.Nop())
	assert.Equal(t, "daily_report", job.Name())
	assert.Equal(t, "0 0 20 * * *", job.Schedule())
	assert.NoError(t, job.Run(context.Background()))

	failing := NewDailyReportJob(&fakeGenerator{err: report.ErrNoData}, "0 30 7 * * *", logger.Nop())
	assert.ErrorIs(t, failing.Run(context.Background()), report.ErrNoData)
}
