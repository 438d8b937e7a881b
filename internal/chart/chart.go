package chart

import (
	"errors"
	"math"
	"time"

	charts "github.com/vicanso/go-charts/v2"
)

const (
	width  = 1000
	height = 560
	split  = 10
)

var (
	// ErrNoSeries is returned when there is nothing to draw
	ErrNoSeries = errors.New("no series to render")

	// ErrLengthMismatch is returned when a series does not match the label count
	ErrLengthMismatch = errors.New("series length does not match labels")
)

// Series is one named line
type Series struct {
	Name   string
	Values []float64
}

// RenderLines draws all series on one PNG line chart with a shared x axis.
// NaN gaps are filled from the neighbouring values so lines stay continuous.
func RenderLines(title string, labels []string, series []Series) ([]byte, error) {
	if len(series) == 0 || len(labels) < 2 {
		return nil, ErrNoSeries
	}

	values := make([][]float64, 0, len(series))
	names := make([]string, 0, len(series))
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return nil, ErrLengthMismatch
		}
		filled, ok := fillGaps(s.Values)
		if !ok {
			continue
		}
		for _, v := range filled {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
		values = append(values, filled)
		names = append(names, s.Name)
	}
	if len(values) == 0 {
		return nil, ErrNoSeries
	}

	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(yMax)*0.01, 1)
	}
	yMin -= pad
	yMax += pad

	p, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// Labels formats times for the x axis (date only for daily data)
func Labels(times []time.Time) []string {
	layout := "01-02 15:04"
	if len(times) > 1 && times[len(times)-1].Sub(times[0]) >= 7*24*time.Hour {
		layout = "2006-01-02"
	}
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.UTC().Format(layout)
	}
	return out
}

// fillGaps forward-fills NaN/Inf, leading gaps take the first defined value.
// ok is false when no value is defined.
func fillGaps(in []float64) ([]float64, bool) {
	out := make([]float64, len(in))
	first := -1
	for i, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, false
	}

	last := in[first]
	for i, v := range in {
		if i < first || math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = last
			continue
		}
		last = v
		out[i] = v
	}
	return out, true
}
