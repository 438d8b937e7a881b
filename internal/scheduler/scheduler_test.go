package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketdash/internal/observability"
	"github.com/wonny/marketdash/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // fail this many times first
	calls    int32
	panics   bool
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if j.panics {
		panic("boom")
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler(opts ...Option) *Scheduler {
	opts = append([]Option{WithRetry(2, 0)}, opts...)
	return New(logger.Nop(), time.UTC, opts...)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 */5 * * * *"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))

	err := s.AddJob(&countingJob{name: "a", schedule: "@every 1h"})
	assert.Error(t, err)

	err = s.AddJob(&countingJob{name: "bad", schedule: "not a spec"})
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRunJobSync_Retries(t *testing.T) {
	m := observability.New()
	s := newTestScheduler(WithMetrics(m))
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.NotNil(t, stats.LastSuccess)
	n, err := testutil.GatherAndCount(m.Registry(), "marketdash_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunJobSync_ExhaustsRetries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync("broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "transient", res.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))

	h, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Len(t, h.GetFailedResults(), 1)
}

func TestRunJobSync_Panic(t *testing.T) {
	s := newTestScheduler(WithRetry(0, 0))
	require.NoError(t, s.AddJob(&countingJob{name: "panicky", schedule: "@daily", panics: true}))

	res, err := s.RunJobSync("panicky")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panicked")
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "x", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("x"))
	assert.Error(t, s.RemoveJob("x"))

	_, err := s.RunJobSync("x")
	assert.Error(t, err)
	_, err = s.GetJobHistory("x")
	assert.Error(t, err)
}

func TestNextRun_Location(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	s := New(logger.Nop(), paris)
	require.NoError(t, s.AddJob(&countingJob{name: "report", schedule: "0 0 20 * * *"}))
	s.Start()
	defer s.Stop()

	next, err := s.NextRun("report")
	require.NoError(t, err)
	assert.Equal(t, 20, next.In(paris).Hour())
}

func TestJobHistory_Cap(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(3))
}
