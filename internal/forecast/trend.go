package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/marketdash/internal/contracts"
)

const (
	// LookbackPoints is how many trailing closes the trend line is fitted on
	LookbackPoints = 30

	// DefaultDaysAhead is the default projection horizon
	DefaultDaysAhead = 5

	// MaxDaysAhead caps the horizon accepted from callers
	MaxDaysAhead = 90
)

// Direction of the projected move relative to the last close
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

var (
	// ErrNotEnoughData is returned when fewer than 2 closes are available
	ErrNotEnoughData = errors.New("not enough data for trend")

	// ErrInvalidHorizon is returned for days outside [1, MaxDaysAhead]
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
)

// Projection is one projected point
type Projection struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Forecast 선형 추세 예측 결과
type Forecast struct {
	Asset     string       `json:"asset"`
	Intercept float64      `json:"intercept"`
	Slope     float64      `json:"slope"` // price per step
	LastClose float64      `json:"last_close"`
	Points    []Projection `json:"points"`
	Direction Direction    `json:"direction"`
}

// Trend fits a least-squares line over the last LookbackPoints closes (x = 0..n-1)
// and projects it daysAhead steps. Projected dates are one calendar day apart.
// ⭐ SSOT: 가격 추세 예측은 여기서만
func Trend(frame *contracts.Frame, daysAhead int) (*Forecast, error) {
	if daysAhead < 1 || daysAhead > MaxDaysAhead {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, daysAhead)
	}
	if frame.Len() < 2 {
		return nil, ErrNotEnoughData
	}

	closes := frame.CloseValues()
	if len(closes) > LookbackPoints {
		closes = closes[len(closes)-LookbackPoints:]
	}

	xs := make([]float64, len(closes))
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, closes, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return nil, ErrNotEnoughData
	}

	last, _ := frame.Last()
	out := &Forecast{
		Asset:     frame.Asset,
		Intercept: alpha,
		Slope:     beta,
		LastClose: last.Close,
		Points:    make([]Projection, daysAhead),
	}

	lastX := float64(len(closes) - 1)
	for i := 1; i <= daysAhead; i++ {
		out.Points[i-1] = Projection{
			Time:  last.Time.AddDate(0, 0, i),
			Price: alpha + beta*(lastX+float64(i)),
		}
	}

	// 동일 가격은 하락으로 간주
	out.Direction = DirectionDown
	if out.Points[daysAhead-1].Price > last.Close {
		out.Direction = DirectionUp
	}
	return out, nil
}
