package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirective(t *testing.T) {
	d, err := ParseDirective("--update")
	require.NoError(t, err)
	assert.True(t, d.Update)

	d, err = ParseDirective(`title("Demo")`)
	require.NoError(t, err)
	assert.Equal(t, "title", d.Name)
	assert.Equal(t, []Arg{{Str: "Demo"}}, d.Args)

	d, err = ParseDirective("xlim(0, 10.5)")
	require.NoError(t, err)
	assert.Equal(t, []Arg{{Num: 0, IsNum: true}, {Num: 10.5, IsNum: true}}, d.Args)

	d, err = ParseDirective("axhline(0.5, {'color': 'r', 'linestyle': '--'})")
	require.NoError(t, err)
	assert.Equal(t, []Arg{{Num: 0.5, IsNum: true}}, d.Args)
	assert.Equal(t, Mapping{"color": "r", "linestyle": "--"}, d.Kwargs)

	d, err = ParseDirective("hlines(1, 0, 5){'label': 'limit'}")
	require.NoError(t, err)
	assert.Len(t, d.Args, 3)
	assert.Equal(t, Mapping{"label": "limit"}, d.Kwargs)

	d, err = ParseDirective("legend({})")
	require.NoError(t, err)
	assert.Empty(t, d.Args)
	assert.Nil(t, d.Kwargs)

	for _, bad := range []string{
		"title",
		"(1)",
		"xlim(0, 1",
		"xlim(0, 1) junk",
		"xlim(1.2.3, 4)",
		"plot(1, {'a': [1]})",
	} {
		_, err := ParseDirective(bad)
		assert.Error(t, err, bad)
	}
}

func TestDirectiveOperation(t *testing.T) {
	tests := []struct {
		body string
		want Op
	}{
		{"legend()", LegendOp{On: true}},
		{"grid()", GridOp{On: true}},
		{"grid(False)", GridOp{On: false}},
		{"grid({'visible': False})", GridOp{On: false}},
		{"xlim(0, 10)", XLimOp{Lo: 0, Hi: 10}},
		{"set_ylim(-1, 1)", YLimOp{Lo: -1, Hi: 1}},
		{`xlabel("phase [rad]")`, XLabelOp{Text: "phase [rad]"}},
		{"set_ylabel('volts')", YLabelOp{Text: "volts"}},
		{"set_title('Run 1')", TitleOp{Text: "Run 1"}},
		{"axhline(0.5, {'color': 'r'})", AxHLineOp{Y: 0.5, Style: Style{Color: "r"}}},
		{"axvline(2)", AxVLineOp{X: 2}},
		{"hlines(1, 0, 5)", HLinesOp{Y: 1, From: 0, To: 5}},
		{"vlines(3, -1, 1, {'linewidth': 2, 'unknown': 'ignored'})", VLinesOp{X: 3, From: -1, To: 1, Style: Style{LineWidth: 2}}},
	}
	for _, tt := range tests {
		d, err := ParseDirective(tt.body)
		require.NoError(t, err, tt.body)
		op, err := d.Operation()
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, op, tt.body)
	}

	for _, bad := range []string{
		"savefig('x.png')",
		"xlim(0)",
		"xlim('a', 'b')",
		"title()",
		"legend(1)",
		"grid(maybe)",
		"axhline(1, {'linewidth': 'thick'})",
	} {
		d, err := ParseDirective(bad)
		require.NoError(t, err, bad)
		_, err = d.Operation()
		assert.Error(t, err, bad)
	}
}

func TestOperationsApplyToFigure(t *testing.T) {
	fig := NewFigure(0, 0)
	assert.Equal(t, DefaultWidth, fig.Width)
	assert.Equal(t, DefaultHeight, fig.Height)

	for _, body := range []string{
		"title('T')",
		"xlabel('x')",
		"ylabel('y')",
		"grid()",
		"legend()",
		"xlim(0, 1)",
		"ylim(2, 3)",
		"axhline(0.5)",
		"vlines(1, 0, 2)",
	} {
		d, err := ParseDirective(body)
		require.NoError(t, err)
		op, err := d.Operation()
		require.NoError(t, err)
		op.Apply(fig)
	}

	assert.Equal(t, "T", fig.Title)
	assert.Equal(t, "x", fig.XLabel)
	assert.Equal(t, "y", fig.YLabel)
	assert.True(t, fig.ShowGrid)
	assert.True(t, fig.ShowLegend)
	assert.Equal(t, AxisRange{Lo: 0, Hi: 1, Set: true}, fig.XLim)
	assert.Equal(t, AxisRange{Lo: 2, Hi: 3, Set: true}, fig.YLim)
	assert.Equal(t, []RefLine{
		{Horizontal: true, At: 0.5, Span: true},
		{At: 1, From: 0, To: 2},
	}, fig.Lines)
}
