package portfolio

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

// ErrInvalidWeight is returned for a requested weight that is negative, undefined
// or keyed by an asset outside the requested set
var ErrInvalidWeight = errors.New("invalid weight")

// ValidateWeights checks user supplied target weights against the requested assets.
// Keys are compared as given; callers upper-case them.
func ValidateWeights(keys []string, weights map[string]float64) error {
	names := make([]string, 0, len(weights))
	for k := range weights {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		w := weights[k]
		if !slices.Contains(keys, k) {
			return fmt.Errorf("%w: %s is not in the requested assets", ErrInvalidWeight, k)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: %s=%v (want a finite number >= 0)", ErrInvalidWeight, k, w)
		}
	}
	return nil
}

// NormalizeWeights rescales weights to sum to 1 over exactly the input keys.
// A non-positive (or undefined) sum falls back to 1/N for every key.
// Keys are summed in sorted order so the result does not depend on map iteration.
func NormalizeWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	if len(weights) == 0 {
		return out
	}

	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sum := 0.0
	for _, k := range keys {
		sum += clean(weights[k])
	}

	if !(sum > 0) || math.IsInf(sum, 0) {
		uniform := 1.0 / float64(len(keys))
		for _, k := range keys {
			out[k] = uniform
		}
		return out
	}

	for _, k := range keys {
		out[k] = clean(weights[k]) / sum
	}
	return out
}

// EqualWeights returns 1/N for each distinct key
func EqualWeights(keys []string) map[string]float64 {
	w := make(map[string]float64, len(keys))
	for _, k := range keys {
		w[k] = 1
	}
	return NormalizeWeights(w)
}

// WeightsFor projects a sparse mapping onto columns (missing keys -> 0),
// normalizes it and returns the vector in column order.
func WeightsFor(columns []string, weights map[string]float64) []float64 {
	projected := make(map[string]float64, len(columns))
	for _, c := range columns {
		projected[c] = weights[c]
	}
	norm := NormalizeWeights(projected)

	out := make([]float64, len(columns))
	for j, c := range columns {
		out[j] = norm[c]
	}
	return out
}

// NaN counts as a missing weight
func clean(w float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	return w
}
