package portfolio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultBase is the starting equity value
const DefaultBase = 100.0

// ErrUnknownFrequency is returned for a rebalance rule other than D, W or M
var ErrUnknownFrequency = errors.New("unknown rebalance frequency")

// Frequency is the rebalance boundary rule
type Frequency string

const (
	Daily   Frequency = "D" // UTC calendar day
	Weekly  Frequency = "W" // ISO week, Monday start
	Monthly Frequency = "M" // calendar month
)

// ParseFrequency accepts D/W/M (any case) or daily/weekly/monthly.
// An empty string means Weekly.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Weekly, nil
	case "d", "daily":
		return Daily, nil
	case "w", "weekly":
		return Weekly, nil
	case "m", "monthly":
		return Monthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
}

type bucket struct {
	year, n int
}

func (f Frequency) bucketOf(t time.Time) (bucket, error) {
	t = t.UTC()
	switch f {
	case Daily:
		return bucket{t.Year(), t.YearDay()}, nil
	case Weekly:
		y, w := t.ISOWeek()
		return bucket{y, w}, nil
	case Monthly:
		return bucket{t.Year(), int(t.Month())}, nil
	default:
		return bucket{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(f))
	}
}

// RebalanceStarts marks the first observed row of every bucket, row 0 included.
// Computed once for the whole index so the simulation pass stays linear.
func RebalanceStarts(times []time.Time, f Frequency) ([]bool, error) {
	starts := make([]bool, len(times))
	seen := make(map[bucket]bool)
	for i, t := range times {
		b, err := f.bucketOf(t)
		if err != nil {
			return nil, err
		}
		if !seen[b] {
			seen[b] = true
			starts[i] = true
		}
	}
	return starts, nil
}

// Simulation is one portfolio run over a price matrix
type Simulation struct {
	Assets     []string    `json:"assets"`
	Times      []time.Time `json:"times"`
	Returns    []float64   `json:"returns"`
	Equity     []float64   `json:"equity"`
	Rebalances []bool      `json:"rebalances"`
	Weights    [][]float64 `json:"weights"` // weights used for each period's return
}

// Empty reports a run over an empty matrix
func (s *Simulation) Empty() bool {
	return s == nil || len(s.Times) == 0
}

// Simulate walks the matrix once: reset to target at bucket starts, take the
// weighted return, then drift weights by (1+r) and renormalize. A non-positive
// post-drift sum leaves the weights unchanged. Equity = base * cumprod(1+r).
// A non-positive base falls back to DefaultBase.
func Simulate(m *Matrix, weights map[string]float64, freq Frequency, base float64) (*Simulation, error) {
	if _, err := freq.bucketOf(time.Time{}); err != nil {
		return nil, err
	}
	if !(base > 0) || math.IsInf(base, 0) {
		base = DefaultBase
	}

	sim := &Simulation{
		Times:      []time.Time{},
		Returns:    []float64{},
		Equity:     []float64{},
		Rebalances: []bool{},
		Weights:    [][]float64{},
	}
	if m.Empty() {
		return sim, nil
	}
	sim.Assets = append([]string(nil), m.Assets...)

	returns := m.Returns()
	starts, err := RebalanceStarts(m.Times, freq)
	if err != nil {
		return nil, err
	}
	target := WeightsFor(m.Assets, weights)

	rows := m.Rows()
	sim.Times = append(sim.Times, m.Times...)
	sim.Returns = make([]float64, rows)
	sim.Equity = make([]float64, rows)
	sim.Rebalances = starts
	sim.Weights = make([][]float64, rows)

	// current is the fold accumulator (portfolio state)
	current := append([]float64(nil), target...)
	drifted := make([]float64, len(current))
	equity := base

	for t := 0; t < rows; t++ {
		if starts[t] {
			copy(current, target)
		}
		sim.Weights[t] = append([]float64(nil), current...)

		r := returns[t]
		pr := 0.0
		for j, w := range current {
			pr += w * r[j]
		}
		sim.Returns[t] = pr

		equity *= 1 + pr
		sim.Equity[t] = equity

		sum := 0.0
		for j, w := range current {
			drifted[j] = w * (1 + r[j])
			sum += drifted[j]
		}
		if sum > 0 {
			for j := range current {
				current[j] = drifted[j] / sum
			}
		}
	}

	return sim, nil
}
