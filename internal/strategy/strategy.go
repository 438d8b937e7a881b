package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/marketdash/internal/contracts"
)

// DefaultBase is the starting equity of every strategy curve
const DefaultBase = 100.0

// Strategy names accepted by Run
const (
	BuyAndHoldName  = "buy_and_hold"
	MACrossoverName = "ma_crossover"
)

// Default MA windows (days)
const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
)

var (
	// ErrInvalidWindow is returned unless 1 <= short < long
	ErrInvalidWindow = errors.New("invalid moving average window")

	// ErrUnknownStrategy is returned by Run for an unsupported name
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Point is one period of a strategy run.
// ShortMA/LongMA are NaN until their window is filled (and always NaN for buy-and-hold).
type Point struct {
	Time           time.Time `json:"time"`
	Close          float64   `json:"close"`
	Return         float64   `json:"return"`
	ShortMA        float64   `json:"-"`
	LongMA         float64   `json:"-"`
	Signal         int       `json:"signal"`
	Position       int       `json:"position"`
	StrategyReturn float64   `json:"strategy_return"`
	Equity         float64   `json:"equity"`
}

// Result is the shared output shape of every strategy
type Result struct {
	Strategy string  `json:"strategy"`
	Asset    string  `json:"asset"`
	Points   []Point `json:"points"`
}

// Empty reports whether the run had no data
func (r *Result) Empty() bool {
	return r == nil || len(r.Points) == 0
}

// Returns is the per-period strategy return column
func (r *Result) Returns() []float64 {
	if r == nil {
		return nil
	}
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.StrategyReturn
	}
	return out
}

// Equity is the cumulative equity column
func (r *Result) Equity() []float64 {
	if r == nil {
		return nil
	}
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Equity
	}
	return out
}

// Times is the time column
func (r *Result) Times() []time.Time {
	if r == nil {
		return nil
	}
	out := make([]time.Time, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Time
	}
	return out
}

// Params selects and configures a strategy for Run
type Params struct {
	Name  string
	Short int
	Long  int
	Base  float64
}

// Run dispatches to the named strategy.
// An empty name runs buy-and-hold, zero windows use the defaults.
func Run(frame *contracts.Frame, p Params) (*Result, error) {
	switch p.Name {
	case "", BuyAndHoldName:
		return BuyAndHold(frame, p.Base), nil
	case MACrossoverName:
		short, long := p.Short, p.Long
		if short == 0 {
			short = DefaultShortWindow
		}
		if long == 0 {
			long = DefaultLongWindow
		}
		return MACrossover(frame, short, long, p.Base)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, p.Name)
	}
}

// simpleReturns is pct_change with the first (undefined) value set to 0
func simpleReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

func baseOrDefault(base float64) float64 {
	if base <= 0 {
		return DefaultBase
	}
	return base
}

func assetOf(frame *contracts.Frame) string {
	if frame == nil {
		return ""
	}
	return frame.Asset
}
