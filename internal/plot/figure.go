package plot

// Default artifact size, matching the 600x400 images the notebook host expects.
const (
	DefaultWidth  = 600
	DefaultHeight = 400
)

// Style is the line styling carried by a data payload or a reference-line
// directive. Format is a matplotlib-style format string such as "r--o".
type Style struct {
	Format    string  `json:"fmt,omitempty"`
	Color     string  `json:"color,omitempty"`
	LineStyle string  `json:"linestyle,omitempty"`
	LineWidth float64 `json:"linewidth,omitempty"`
	Marker    string  `json:"marker,omitempty"`
	Label     string  `json:"label,omitempty"`
}

// styleKeys are the style settings understood in payloads and directives.
// Anything else is ignored.
var styleKeys = []string{"color", "linestyle", "linewidth", "marker", "label"}

func styleFromMapping(m Mapping) (Style, error) {
	var st Style
	var err error
	if st.Format, _, err = m.Str("fmt"); err != nil {
		return Style{}, err
	}
	for _, key := range styleKeys {
		switch key {
		case "color":
			st.Color, _, err = m.Str(key)
		case "linestyle":
			st.LineStyle, _, err = m.Str(key)
		case "linewidth":
			st.LineWidth, _, err = m.Float(key)
		case "marker":
			st.Marker, _, err = m.Str(key)
		case "label":
			st.Label, _, err = m.Str(key)
		}
		if err != nil {
			return Style{}, err
		}
	}
	return st, nil
}

// Series is one plotted line.
type Series struct {
	Name  string    `json:"name,omitempty"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Style Style     `json:"style"`
}

// RefLine is a horizontal or vertical reference line. Span lines cover the
// whole axis; otherwise From and To bound the segment.
type RefLine struct {
	Horizontal bool    `json:"horizontal"`
	At         float64 `json:"at"`
	Span       bool    `json:"span"`
	From       float64 `json:"from,omitempty"`
	To         float64 `json:"to,omitempty"`
	Style      Style   `json:"style"`
}

// AxisRange is an explicit axis limit.
type AxisRange struct {
	Lo  float64 `json:"lo"`
	Hi  float64 `json:"hi"`
	Set bool    `json:"set"`
}

// Chart is the set of operations a control directive can perform. Each
// directive variant maps to exactly one method.
type Chart interface {
	Legend(on bool)
	Grid(on bool)
	SetXLim(lo, hi float64)
	SetYLim(lo, hi float64)
	SetXLabel(text string)
	SetYLabel(text string)
	SetTitle(text string)
	AxHLine(y float64, st Style)
	AxVLine(x float64, st Style)
	HLines(y, from, to float64, st Style)
	VLines(x, from, to float64, st Style)
}

// Figure is the render context handed to a Sink. It is a plain data model;
// rasterization happens on the sink side.
type Figure struct {
	Title      string    `json:"title,omitempty"`
	XLabel     string    `json:"xlabel,omitempty"`
	YLabel     string    `json:"ylabel,omitempty"`
	XLim       AxisRange `json:"xlim"`
	YLim       AxisRange `json:"ylim"`
	ShowGrid   bool      `json:"grid"`
	ShowLegend bool      `json:"legend"`
	Series     []Series  `json:"series"`
	Lines      []RefLine `json:"lines,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

var _ Chart = (*Figure)(nil)

// NewFigure returns an empty figure of the given pixel size. Non-positive
// sizes fall back to the defaults.
func NewFigure(width, height int) *Figure {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Figure{Width: width, Height: height}
}

// Plot adds one series per y column, all sharing x.
func (f *Figure) Plot(x []float64, columns [][]float64, st Style) {
	for _, col := range columns {
		f.Series = append(f.Series, Series{Name: st.Label, X: x, Y: col, Style: st})
	}
}

func (f *Figure) Legend(on bool)         { f.ShowLegend = on }
func (f *Figure) Grid(on bool)           { f.ShowGrid = on }
func (f *Figure) SetXLim(lo, hi float64) { f.XLim = AxisRange{Lo: lo, Hi: hi, Set: true} }
func (f *Figure) SetYLim(lo, hi float64) { f.YLim = AxisRange{Lo: lo, Hi: hi, Set: true} }
func (f *Figure) SetXLabel(text string)  { f.XLabel = text }
func (f *Figure) SetYLabel(text string)  { f.YLabel = text }
func (f *Figure) SetTitle(text string)   { f.Title = text }

func (f *Figure) AxHLine(y float64, st Style) {
	f.Lines = append(f.Lines, RefLine{Horizontal: true, At: y, Span: true, Style: st})
}

func (f *Figure) AxVLine(x float64, st Style) {
	f.Lines = append(f.Lines, RefLine{At: x, Span: true, Style: st})
}

func (f *Figure) HLines(y, from, to float64, st Style) {
	f.Lines = append(f.Lines, RefLine{Horizontal: true, At: y, From: from, To: to, Style: st})
}

func (f *Figure) VLines(x, from, to float64, st Style) {
	f.Lines = append(f.Lines, RefLine{At: x, From: from, To: to, Style: st})
}
