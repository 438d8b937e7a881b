package strategy

import (
	"fmt"
	"math"

	"github.com/wonny/marketdash/internal/contracts"
)

// MACrossover is long (1) while the short moving average is above the long one, flat (0) otherwise.
// The position during period t is the signal of t-1, so a signal never trades on its own bar.
func MACrossover(frame *contracts.Frame, short, long int, base float64) (*Result, error) {
	if short < 1 || long <= short {
		return nil, fmt.Errorf("%w: short=%d long=%d", ErrInvalidWindow, short, long)
	}

	res := &Result{Strategy: MACrossoverName, Asset: assetOf(frame)}
	if frame.Empty() {
		return res, nil
	}

	base = baseOrDefault(base)
	closes := frame.CloseValues()
	returns := simpleReturns(closes)
	shortMA := rollingMean(closes, short)
	longMA := rollingMean(closes, long)

	// 신호는 전체 구간에 대해 한 번만 계산
	signals := make([]int, len(closes))
	for i := range closes {
		// NaN 비교는 false → 윈도우가 차기 전에는 신호 없음
		if shortMA[i] > longMA[i] {
			signals[i] = 1
		}
	}

	res.Points = make([]Point, len(closes))
	equity := base
	for i, bar := range frame.Bars {
		position := 0
		if i > 0 {
			position = signals[i-1]
		}
		sr := float64(position) * returns[i]
		equity *= 1 + sr

		res.Points[i] = Point{
			Time:           bar.Time,
			Close:          closes[i],
			Return:         returns[i],
			ShortMA:        shortMA[i],
			LongMA:         longMA[i],
			Signal:         signals[i],
			Position:       position,
			StrategyReturn: sr,
			Equity:         equity,
		}
	}
	return res, nil
}

// rollingMean is the trailing mean over window values, NaN until the window is full
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}
