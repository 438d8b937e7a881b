package strategy

import (
	"math"

	"github.com/wonny/marketdash/internal/contracts"
)

// BuyAndHold holds the asset for the whole frame: strategy return = asset return
func BuyAndHold(frame *contracts.Frame, base float64) *Result {
	res := &Result{Strategy: BuyAndHoldName, Asset: assetOf(frame)}
	if frame.Empty() {
		return res
	}

	base = baseOrDefault(base)
	closes := frame.CloseValues()
	returns := simpleReturns(closes)

	res.Points = make([]Point, len(closes))
	equity := base
	for i, bar := range frame.Bars {
		equity *= 1 + returns[i]
		res.Points[i] = Point{
			Time:           bar.Time,
			Close:          closes[i],
			Return:         returns[i],
			ShortMA:        math.NaN(),
			LongMA:         math.NaN(),
			Signal:         1,
			Position:       1,
			StrategyReturn: returns[i],
			Equity:         equity,
		}
	}
	return res
}
