package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig is one shared request budget
type RateLimitConfig struct {
	Key    string // budget name, e.g. "yahoo"
	Limit  int    // requests per window
	Window time.Duration
}

// YahooRateLimit is shared by every process hitting the chart API (unofficial endpoint, keep it low)
var YahooRateLimit = RateLimitConfig{Key: "yahoo", Limit: 60, Window: time.Minute}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // 0 when allowed
}

// slidingWindow keeps one sorted-set member per granted request.
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local member = ARGV[2]
	local window = tonumber(ARGV[3])
	local limit = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local wait = window
	if oldest[2] then
		wait = tonumber(oldest[2]) + window - now
	end
	return {0, 0, wait}
`)

// RateLimiter is a Redis sliding-window limiter shared across processes
// (API server and scheduler both call Yahoo)
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	now    func() time.Time
	seq    atomic.Uint64
}

// NewRateLimiter creates a limiter whose keys live under prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, now: time.Now}
}

func (r *RateLimiter) key(cfg RateLimitConfig) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
}

// Allow takes one slot from the budget if available.
// A disabled client grants everything.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: cfg.Limit}, nil
	}

	now := r.now().UnixMilli()
	// 같은 밀리초의 요청이 하나로 합쳐지지 않도록 시퀀스를 붙임
	member := fmt.Sprintf("%d-%d", now, r.seq.Add(1))

	res, err := slidingWindow.Run(ctx, r.client.Redis(), []string{r.key(cfg)},
		now, member, cfg.Window.Milliseconds(), cfg.Limit,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Wait blocks until a slot is granted or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		d, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}

		wait := d.RetryAfter
		if wait <= 0 || wait > cfg.Window {
			wait = cfg.Window
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
