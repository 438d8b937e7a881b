package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/marketdash/internal/contracts"
)

// Matrix is a time-aligned close-price table.
// Rows are strictly increasing UTC timestamps shared by every column,
// columns follow the requested asset order, and no cell is missing.
// ⭐ SSOT: 가격 매트릭스 정렬 규칙은 여기서만 (inner join, forward-fill 없음)
type Matrix struct {
	Times   []time.Time `json:"times"`
	Assets  []string    `json:"assets"`
	Values  [][]float64 `json:"values"`  // [row][col]
	Skipped []string    `json:"skipped"` // requested assets without data
}

// Empty reports the "no data" result
func (m *Matrix) Empty() bool {
	return m == nil || len(m.Times) == 0 || len(m.Assets) == 0
}

// Rows returns the number of timestamps
func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return len(m.Times)
}

// Column returns one asset's prices
func (m *Matrix) Column(j int) []float64 {
	out := make([]float64, m.Rows())
	for i := range out {
		out[i] = m.Values[i][j]
	}
	return out
}

// Returns computes per-period simple returns, r[0] = 0 for every asset
func (m *Matrix) Returns() [][]float64 {
	rows := m.Rows()
	out := make([][]float64, rows)
	for t := 0; t < rows; t++ {
		out[t] = make([]float64, len(m.Assets))
		if t == 0 {
			continue
		}
		for j := range m.Assets {
			prev := m.Values[t-1][j]
			if prev != 0 {
				out[t][j] = m.Values[t][j]/prev - 1
			}
		}
	}
	return out
}

// Normalized rebases every column to base at the first row
func (m *Matrix) Normalized(base float64) [][]float64 {
	rows := m.Rows()
	out := make([][]float64, rows)
	for t := 0; t < rows; t++ {
		out[t] = make([]float64, len(m.Assets))
		for j := range m.Assets {
			if first := m.Values[0][j]; first != 0 {
				out[t][j] = m.Values[t][j] / first * base
			}
		}
	}
	return out
}

// BuildPriceMatrix fetches every asset independently and aligns the close series.
// Assets with no data are skipped (listed in Skipped); configuration errors abort.
func BuildPriceMatrix(ctx context.Context, fetcher contracts.FrameFetcher, keys []string, period, interval string) (*Matrix, error) {
	series := make(map[string][]contracts.PricePoint, len(keys))
	for _, k := range keys {
		frame, err := fetcher.Fetch(ctx, k, period, interval)
		if err != nil {
			return nil, fmt.Errorf("build price matrix: %w", err)
		}
		series[k] = frame.Closes()
	}
	return AlignSeries(keys, series), nil
}

// AlignSeries inner-joins close series on timestamp.
// The result keeps key order for columns and sorts rows ascending.
func AlignSeries(keys []string, series map[string][]contracts.PricePoint) *Matrix {
	m := &Matrix{
		Times:   []time.Time{},
		Assets:  []string{},
		Values:  [][]float64{},
		Skipped: []string{},
	}

	seen := make(map[string]bool, len(keys))
	lookup := make([]map[int64]float64, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true

		pts := series[k]
		if len(pts) == 0 {
			m.Skipped = append(m.Skipped, k)
			continue
		}
		byTime := make(map[int64]float64, len(pts))
		for _, p := range pts {
			byTime[p.Time.UnixNano()] = p.Close
		}
		m.Assets = append(m.Assets, k)
		lookup = append(lookup, byTime)
	}

	if len(lookup) == 0 {
		return m
	}

	// 첫 자산 기준으로 교집합 계산
	common := make([]int64, 0, len(lookup[0]))
	for ts := range lookup[0] {
		inAll := true
		for _, other := range lookup[1:] {
			if _, ok := other[ts]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, ts)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	for _, ts := range common {
		row := make([]float64, len(lookup))
		for j, byTime := range lookup {
			row[j] = byTime[ts]
		}
		m.Times = append(m.Times, time.Unix(0, ts).UTC())
		m.Values = append(m.Values, row)
	}

	return m
}
