// Package chart renders dashboard figures to SVG on the server.
//
// The browser draws panels with its own plotting library; this package gives
// the same figures a static form for /charts/{id}.svg, e.g. for embedding in
// wikis or chat messages.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/jpalmerr/ecoboard/internal/panel"
)

// ErrNothingToPlot is returned when a figure has no drawable points.
var ErrNothingToPlot = errors.New("figure has no plottable points")

// RenderSVG writes fig as an SVG document of the given size.
//
// Figures containing a bar trace render as a single bar chart whose bars are
// labelled "{x} {trace}" in trace-grouped order. All other figures render
// their scatter traces as time series; null y values are skipped, but their
// x values still count toward the visible time range.
func RenderSVG(w io.Writer, fig panel.Figure, width, height int) error {
	if hasBars(fig) {
		return renderBars(w, fig, width, height)
	}
	return renderTimeSeries(w, fig, width, height)
}

func hasBars(fig panel.Figure) bool {
	for _, tr := range fig.Data {
		if tr.Type == panel.TraceBar {
			return true
		}
	}
	return false
}

func renderTimeSeries(w io.Writer, fig panel.Figure, width, height int) error {
	var (
		series     []gochart.Series
		xr         timeRange
		minY, maxY = math.Inf(1), math.Inf(-1)
	)

	for _, tr := range fig.Data {
		if tr.Type != panel.TraceScatter {
			continue
		}

		var xs []time.Time
		var ys []float64
		for i, xv := range tr.X {
			x, ok := xv.(time.Time)
			if !ok {
				continue
			}
			xr.include(x)

			if i >= len(tr.Y) {
				continue
			}
			y, ok := toFloat(tr.Y[i])
			if !ok {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, y)
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}

		if len(xs) == 0 {
			continue
		}
		series = append(series, gochart.TimeSeries{
			Name:    tr.Name,
			XValues: xs,
			YValues: ys,
			Style:   gochart.Style{StrokeWidth: 2, DotWidth: 3},
		})
	}

	if len(series) == 0 {
		return ErrNothingToPlot
	}

	minX, maxX := xr.bounds()
	yRange := paddedRange(minY, maxY)

	ch := gochart.Chart{
		Title:  fig.Layout.Title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: gochart.XAxis{
			Name:           fig.Layout.XAxis.Title,
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04:05"),
			Range: &gochart.ContinuousRange{
				Min: gochart.TimeToFloat64(minX),
				Max: gochart.TimeToFloat64(maxX),
			},
		},
		YAxis: gochart.YAxis{
			Name:  fig.Layout.YAxis.Title,
			Range: yRange,
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render %q: %w", fig.Layout.Title, err)
	}
	return nil
}

// timeRange tracks the x extent of a time series. The zero time is a valid
// member: unparseable timestamps decode to it and are still plotted.
type timeRange struct {
	min, max time.Time
	set      bool
}

func (r *timeRange) include(t time.Time) {
	if !r.set || t.Before(r.min) {
		r.min = t
	}
	if !r.set || t.After(r.max) {
		r.max = t
	}
	r.set = true
}

// bounds returns the range widened by a minute on each side when it covers a
// single instant, since go-chart rejects a zero delta.
func (r timeRange) bounds() (time.Time, time.Time) {
	if !r.max.After(r.min) {
		return r.min.Add(-time.Minute), r.max.Add(time.Minute)
	}
	return r.min, r.max
}

func renderBars(w io.Writer, fig panel.Figure, width, height int) error {
	var (
		bars       []gochart.Value
		minY, maxY = math.Inf(1), math.Inf(-1)
	)

	for _, tr := range fig.Data {
		if tr.Type != panel.TraceBar {
			continue
		}
		for i, xv := range tr.X {
			if i >= len(tr.Y) {
				break
			}
			y, ok := toFloat(tr.Y[i])
			if !ok {
				continue
			}
			bars = append(bars, gochart.Value{
				Label: fmt.Sprintf("%v %s", xv, tr.Name),
				Value: y,
			})
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}
	}

	if len(bars) == 0 {
		return ErrNothingToPlot
	}

	barWidth := width / (2 * len(bars))
	if barWidth < 4 {
		barWidth = 4
	}

	bc := gochart.BarChart{
		Title:  fig.Layout.Title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		YAxis: gochart.YAxis{
			Name:  fig.Layout.YAxis.Title,
			Range: paddedRange(math.Min(minY, 0), maxY),
		},
		Bars: bars,
	}

	if err := bc.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render %q: %w", fig.Layout.Title, err)
	}
	return nil
}

// paddedRange returns a range covering [lo, hi] that is never empty.
func paddedRange(lo, hi float64) *gochart.ContinuousRange {
	if hi <= lo {
		lo, hi = lo-1, hi+1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

// toFloat reports the plottable value of a y entry; nil, NaN and infinities
// are gaps.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
