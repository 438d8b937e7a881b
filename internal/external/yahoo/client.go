package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/pkg/httputil"
	"github.com/wonny/marketdash/pkg/logger"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

var (
	// ErrNoData means Yahoo answered but had no candles for the request
	ErrNoData = errors.New("yahoo: no data")

	// ErrInvalidPeriod / ErrInvalidInterval reject ranges Yahoo does not understand
	ErrInvalidPeriod   = errors.New("yahoo: invalid period")
	ErrInvalidInterval = errors.New("yahoo: invalid interval")
)

var validPeriods = map[string]bool{
	"1d": true, "5d": true, "7d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

var validIntervals = map[string]bool{
	"1m": true, "2m": true, "5m": true, "15m": true, "30m": true, "60m": true, "90m": true,
	"1h": true, "1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

// ValidPeriod reports whether p is a Yahoo range value
func ValidPeriod(p string) bool { return validPeriods[p] }

// ValidInterval reports whether i is a Yahoo interval value
func ValidInterval(i string) bool { return validIntervals[i] }

// Client handles communication with the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new Yahoo Finance client.
// Retries/timeouts are owned by httputil; the breaker stops hammering Yahoo after repeated failures.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("yahoo")

	st := gobreaker.Settings{
		Name:     "yahoo-chart",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 데이터 없음은 장애가 아님
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(2), 4), // 초당 2회, 버스트 4
		breaker:    gobreaker.NewCircuitBreaker(st),
	}
}

// WithLimiter replaces the local request limiter
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.limiter = l
	return c
}

// BreakerState exposes the circuit state for health checks
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// FetchChart downloads candles for symbol and returns normalized bars
func (c *Client) FetchChart(ctx context.Context, symbol, period, interval string) ([]contracts.Bar, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if !ValidInterval(interval) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("yahoo limiter: %w", err)
		}
	}

	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", interval)
	params.Set("includePrePost", "false")
	params.Set("events", "div,splits")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var resp chartResponse
		if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
			var statusErr *httputil.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
				return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
			}
			return nil, err
		}
		return parseChart(&resp)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	bars := out.([]contracts.Bar)
	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"period":   period,
		"interval": interval,
		"bars":     len(bars),
	}).Debug("Fetched chart")

	return bars, nil
}

// parseChart flattens the columnar payload into normalized bars.
// Candles without a close are dropped; missing open/high/low fall back to the close.
func parseChart(resp *chartResponse) ([]contracts.Bar, error) {
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	res := resp.Chart.Result[0]
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	q := res.Indicators.Quote[0]

	bars := make([]contracts.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx, ok := at(q.Close, i)
		if !ok {
			continue
		}
		bar := contracts.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: closePx,
		}
		bar.Open = valueOr(q.Open, i, closePx)
		bar.High = valueOr(q.High, i, closePx)
		bar.Low = valueOr(q.Low, i, closePx)
		bar.Volume = valueOr(q.Volume, i, 0)
		bars = append(bars, bar)
	}

	bars = contracts.NormalizeBars(bars)
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

func at(col []*float64, i int) (float64, bool) {
	if i >= len(col) || col[i] == nil {
		return 0, false
	}
	return *col[i], true
}

func valueOr(col []*float64, i int, fallback float64) float64 {
	if v, ok := at(col, i); ok {
		return v
	}
	return fallback
}
