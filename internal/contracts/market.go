package contracts

import (
	"math"
	"sort"
	"time"
)

// Bar is one OHLCV candle
// ⭐ SSOT: 데이터 어댑터가 정규화한 5개 필드 (Open, High, Low, Close, Volume)
type Bar struct {
	Time   time.Time `json:"time"` // UTC
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Frame is one asset's OHLCV history for a (period, interval) request.
// Bars are strictly increasing in time with no duplicate timestamps.
// An empty frame means "no data available", never an error.
type Frame struct {
	Asset    string `json:"asset"`  // asset key (BTC)
	Symbol   string `json:"symbol"` // external instrument id (BTC-USD)
	Period   string `json:"period"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"bars"`
}

// PricePoint is one (timestamp, close) pair of a price series
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// EmptyFrame returns the explicit no-data result for an asset
func EmptyFrame(asset, symbol, period, interval string) *Frame {
	return &Frame{
		Asset:    asset,
		Symbol:   symbol,
		Period:   period,
		Interval: interval,
		Bars:     []Bar{},
	}
}

// Empty reports whether the frame carries no bars
func (f *Frame) Empty() bool {
	return f == nil || len(f.Bars) == 0
}

// Len returns the number of bars
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Bars)
}

// Closes returns the close-price series
func (f *Frame) Closes() []PricePoint {
	if f.Empty() {
		return nil
	}
	out := make([]PricePoint, len(f.Bars))
	for i, b := range f.Bars {
		out[i] = PricePoint{Time: b.Time, Close: b.Close}
	}
	return out
}

// CloseValues returns closes without timestamps
func (f *Frame) CloseValues() []float64 {
	if f.Empty() {
		return nil
	}
	out := make([]float64, len(f.Bars))
	for i, b := range f.Bars {
		out[i] = b.Close
	}
	return out
}

// Times returns bar timestamps
func (f *Frame) Times() []time.Time {
	if f.Empty() {
		return nil
	}
	out := make([]time.Time, len(f.Bars))
	for i, b := range f.Bars {
		out[i] = b.Time
	}
	return out
}

// Last returns the most recent bar
func (f *Frame) Last() (Bar, bool) {
	if f.Empty() {
		return Bar{}, false
	}
	return f.Bars[len(f.Bars)-1], true
}

// NormalizeBars converts timestamps to UTC, drops bars without a usable close,
// sorts ascending and collapses duplicate timestamps (last one wins).
func NormalizeBars(bars []Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Time.IsZero() || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		b.Time = b.Time.UTC()
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}
