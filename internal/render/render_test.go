package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/shaunagostinho/cellscope/internal/plot"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleFigure() *plot.Figure {
	fig := plot.NewFigure(plot.DefaultWidth, plot.DefaultHeight)
	fig.SetTitle("sample")
	fig.SetXLabel("Time [s]")
	fig.Grid(true)
	fig.Legend(true)
	fig.Plot([]float64{0, 1, 2, 3}, [][]float64{{0, 1, 4, 9}, {1, 1, 1, 1}}, plot.Style{Format: "r--", Label: "sq"})
	fig.AxHLine(5, plot.Style{Color: "k", LineStyle: ":"})
	fig.VLines(1.5, 0, 3, plot.Style{})
	return fig
}

func TestPNG(t *testing.T) {
	data, err := PNG(sampleFigure())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	// an empty figure still renders
	data, err = PNG(plot.NewFigure(200, 100))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	// a single point is widened to a visible range
	fig := plot.NewFigure(200, 100)
	fig.Plot([]float64{1}, [][]float64{{2}}, plot.Style{Marker: "o"})
	data, err = PNG(fig)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestBuild(t *testing.T) {
	c := Build(sampleFigure())
	assert.Equal(t, "sample", c.Title)
	assert.Equal(t, plot.DefaultWidth, c.Width)
	assert.Equal(t, plot.DefaultHeight, c.Height)
	// two data series plus two reference lines
	assert.Len(t, c.Series, 4)
	assert.Equal(t, "Time [s]", c.XAxis.Name)
}

func TestFitRange(t *testing.T) {
	r := fitRange(plot.AxisRange{Lo: 5, Hi: 1, Set: true}, 0, 100)
	assert.Equal(t, 1.0, r.Min)
	assert.Equal(t, 5.0, r.Max)

	r = fitRange(plot.AxisRange{}, 0, 10)
	assert.InDelta(t, -0.5, r.Min, 1e-9)
	assert.InDelta(t, 10.5, r.Max, 1e-9)

	r = fitRange(plot.AxisRange{}, 3, 3)
	assert.Less(t, r.Min, 3.0)
	assert.Greater(t, r.Max, 3.0)

	r = fitRange(plot.AxisRange{}, 0, 0)
	assert.Equal(t, -0.5, r.Min)
	assert.Equal(t, 0.5, r.Max)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want format
	}{
		{"", format{}},
		{"r--", format{color: "r", lineStyle: "--"}},
		{"o", format{marker: "o"}},
		{"b-.x", format{color: "b", lineStyle: "-.", marker: "x"}},
		{":k", format{color: "k", lineStyle: ":"}},
		{"g^-", format{color: "g", lineStyle: "-", marker: "^"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFormat(tt.in), tt.in)
	}
}

func TestSeriesStyle(t *testing.T) {
	st := seriesStyle(plot.Style{Format: "r--"}, 0)
	assert.Equal(t, drawing.ColorFromHex(namedColors["r"]), st.StrokeColor)
	assert.Equal(t, []float64{6, 4}, st.StrokeDashArray)

	// keyword settings win over the format string
	st = seriesStyle(plot.Style{Format: "r--", Color: "blue", LineWidth: 3}, 0)
	assert.Equal(t, drawing.ColorFromHex(namedColors["blue"]), st.StrokeColor)
	assert.Equal(t, 3.0, st.StrokeWidth)

	// a marker-only format hides the line
	st = seriesStyle(plot.Style{Format: "o"}, 2)
	assert.Equal(t, drawing.ColorTransparent, st.StrokeColor)
	assert.Equal(t, drawing.ColorFromHex(palette[2]), st.DotColor)

	st = seriesStyle(plot.Style{Color: "#00ff00"}, 0)
	assert.Equal(t, drawing.ColorFromHex("00ff00"), st.StrokeColor)

	st = seriesStyle(plot.Style{}, 11)
	assert.Equal(t, drawing.ColorFromHex(palette[1]), st.StrokeColor)
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	s := NewFileSink(dir, nil)

	fig := sampleFigure()
	h, err := s.Create(fig)
	require.NoError(t, err)
	require.NotEmpty(t, h)

	first, err := os.ReadFile(s.Path(h))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, pngMagic))

	fig.SetTitle("changed")
	fig.Plot([]float64{0, 1}, [][]float64{{-5, 20}}, plot.Style{})
	require.NoError(t, s.Update(h, fig))
	second, err := os.ReadFile(s.Path(h))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	h2, err := s.Create(plot.NewFigure(100, 100))
	require.NoError(t, err)
	assert.NotEqual(t, h, h2)
}

func TestFileSinkEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, nil)
	var stdout, stderr bytes.Buffer
	p := plot.NewProcessor(plot.DefaultOptions(), sink, &plot.WriterOutput{Out: &stdout, Err: &stderr})

	p.HandleLine(plot.EncodeArrayPayload("", nil, nil, 1))
	p.Finish()

	assert.Empty(t, stderr.String())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}
