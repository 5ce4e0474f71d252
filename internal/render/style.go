package render

import (
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/shaunagostinho/cellscope/internal/plot"
)

// palette is the default series color cycle.
var palette = []string{
	"1f77b4", "ff7f0e", "2ca02c", "d62728", "9467bd",
	"8c564b", "e377c2", "7f7f7f", "bcbd22", "17becf",
}

// namedColors covers the single-letter and common named colors.
var namedColors = map[string]string{
	"b": "1f77b4", "blue": "1f77b4",
	"g": "2ca02c", "green": "2ca02c",
	"r": "d62728", "red": "d62728",
	"c": "17becf", "cyan": "17becf",
	"m": "e377c2", "magenta": "e377c2",
	"y": "bcbd22", "yellow": "bcbd22",
	"k": "000000", "black": "000000",
	"w": "ffffff", "white": "ffffff",
	"orange": "ff7f0e", "purple": "9467bd", "brown": "8c564b",
	"pink": "e377c2", "gray": "7f7f7f", "grey": "7f7f7f",
}

const fmtMarkers = ".,ov^<>1234sp*hH+xDd|_"

// format is a parsed matplotlib format string: [marker][line][color] in any order.
type format struct {
	color     string
	lineStyle string
	marker    string
}

func parseFormat(s string) format {
	var f format
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '-' && i+1 < len(s) && (s[i+1] == '-' || s[i+1] == '.'):
			f.lineStyle = s[i : i+2]
			i++
		case c == '-' || c == ':':
			f.lineStyle = string(c)
		case strings.IndexByte("bgrcmykw", c) >= 0:
			f.color = string(c)
		case strings.IndexByte(fmtMarkers, c) >= 0:
			f.marker = string(c)
		}
	}
	return f
}

func resolveColor(name string, index int) drawing.Color {
	name = strings.ToLower(strings.TrimSpace(name))
	if hex, ok := namedColors[name]; ok {
		return drawing.ColorFromHex(hex)
	}
	if strings.HasPrefix(name, "#") && (len(name) == 7 || len(name) == 4) {
		return drawing.ColorFromHex(name[1:])
	}
	return drawing.ColorFromHex(palette[index%len(palette)])
}

func dashes(lineStyle string) []float64 {
	switch lineStyle {
	case "--", "dashed":
		return []float64{6, 4}
	case ":", "dotted":
		return []float64{1.5, 3}
	case "-.", "dashdot":
		return []float64{6, 3, 1.5, 3}
	}
	return nil
}

// seriesStyle maps a payload style onto go-chart. Explicit keyword settings
// win over the format string.
func seriesStyle(st plot.Style, index int) chart.Style {
	f := parseFormat(st.Format)
	color, lineStyle, marker := f.color, f.lineStyle, f.marker
	if st.Color != "" {
		color = st.Color
	}
	if st.LineStyle != "" {
		lineStyle = st.LineStyle
	}
	if st.Marker != "" {
		marker = st.Marker
	}
	if st.Format != "" && f.lineStyle == "" && f.marker != "" && st.LineStyle == "" {
		lineStyle = "None"
	}

	c := resolveColor(color, index)
	out := chart.Style{
		StrokeColor:     c,
		StrokeWidth:     1.5,
		StrokeDashArray: dashes(lineStyle),
	}
	if st.LineWidth > 0 {
		out.StrokeWidth = st.LineWidth
	}
	if strings.EqualFold(lineStyle, "none") || lineStyle == " " {
		out.StrokeColor = drawing.ColorTransparent
	}
	if marker != "" && marker != "None" {
		out.DotColor = c
		out.DotWidth = 3
	}
	return out
}
