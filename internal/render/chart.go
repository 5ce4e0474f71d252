// Package render rasterizes plot figures with go-chart.
package render

import (
	"bytes"
	"math"

	"github.com/pkg/errors"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/shaunagostinho/cellscope/internal/plot"
)

const autoMargin = 0.05

// PNG renders fig to PNG bytes.
func PNG(fig *plot.Figure) ([]byte, error) {
	c := Build(fig)
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "render png")
	}
	return buf.Bytes(), nil
}

// Build converts a figure into a go-chart chart with explicit axis ranges.
func Build(fig *plot.Figure) chart.Chart {
	xr, yr := axisRanges(fig)

	var series []chart.Series
	for i, s := range fig.Series {
		xs, ys := s.X, s.Y
		if n := min(len(xs), len(ys)); n < len(xs) || n < len(ys) {
			xs, ys = xs[:n], ys[:n]
		}
		if len(xs) == 0 {
			continue
		}
		if len(xs) == 1 {
			// go-chart needs two points to draw anything
			xs = []float64{xs[0], xs[0]}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   seriesStyle(s.Style, i),
		})
	}
	for _, l := range fig.Lines {
		series = append(series, refLineSeries(l, xr, yr))
	}
	if len(series) == 0 {
		// go-chart refuses to render without a visible series
		series = append(series, chart.ContinuousSeries{
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1},
			XValues: []float64{xr.Min, xr.Max},
			YValues: []float64{yr.Min, yr.Max},
		})
	}

	grid := chart.Style{Hidden: true}
	if fig.ShowGrid {
		grid = chart.Style{StrokeColor: drawing.ColorFromHex("dddddd"), StrokeWidth: 1}
	}

	c := chart.Chart{
		Title:      fig.Title,
		Width:      fig.Width,
		Height:     fig.Height,
		DPI:        100,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           fig.XLabel,
			Range:          xr,
			GridMajorStyle: grid,
			GridMinorStyle: chart.Style{Hidden: true},
		},
		YAxis: chart.YAxis{
			Name:           fig.YLabel,
			Range:          yr,
			GridMajorStyle: grid,
			GridMinorStyle: chart.Style{Hidden: true},
		},
		Series: series,
	}
	if fig.ShowLegend {
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}
	return c
}

func refLineSeries(l plot.RefLine, xr, yr *chart.ContinuousRange) chart.ContinuousSeries {
	st := seriesStyle(l.Style, 0)
	if l.Style.Color == "" && l.Style.Format == "" {
		st.StrokeColor = drawing.ColorFromHex("444444")
	}
	s := chart.ContinuousSeries{Name: l.Style.Label, Style: st}
	from, to := l.From, l.To
	if l.Horizontal {
		if l.Span {
			from, to = xr.Min, xr.Max
		}
		s.XValues, s.YValues = []float64{from, to}, []float64{l.At, l.At}
	} else {
		if l.Span {
			from, to = yr.Min, yr.Max
		}
		s.XValues, s.YValues = []float64{l.At, l.At}, []float64{from, to}
	}
	return s
}

// axisRanges uses explicit limits when set and otherwise fits the data with
// a 5% margin. Ranges are never empty.
func axisRanges(fig *plot.Figure) (x, y *chart.ContinuousRange) {
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, s := range fig.Series {
		for _, v := range s.X {
			xlo, xhi = math.Min(xlo, v), math.Max(xhi, v)
		}
		for _, v := range s.Y {
			ylo, yhi = math.Min(ylo, v), math.Max(yhi, v)
		}
	}
	for _, l := range fig.Lines {
		if l.Horizontal {
			ylo, yhi = math.Min(ylo, l.At), math.Max(yhi, l.At)
			if !l.Span {
				xlo, xhi = math.Min(xlo, math.Min(l.From, l.To)), math.Max(xhi, math.Max(l.From, l.To))
			}
		} else {
			xlo, xhi = math.Min(xlo, l.At), math.Max(xhi, l.At)
			if !l.Span {
				ylo, yhi = math.Min(ylo, math.Min(l.From, l.To)), math.Max(yhi, math.Max(l.From, l.To))
			}
		}
	}
	return fitRange(fig.XLim, xlo, xhi), fitRange(fig.YLim, ylo, yhi)
}

func fitRange(explicit plot.AxisRange, lo, hi float64) *chart.ContinuousRange {
	if explicit.Set {
		lo, hi = explicit.Lo, explicit.Hi
		if lo > hi {
			lo, hi = hi, lo
		}
	} else if !math.IsInf(lo, 0) && !math.IsInf(hi, 0) {
		pad := (hi - lo) * autoMargin
		lo, hi = lo-pad, hi+pad
	} else {
		lo, hi = 0, 1
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = 0, 1
	}
	if hi-lo == 0 {
		d := math.Max(math.Abs(lo)*autoMargin, 0.5)
		lo, hi = lo-d, hi+d
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}
