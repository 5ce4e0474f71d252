package plot

import "strings"

// Prefixes the device-side plotting module writes in front of chart
// directives and packed array payloads.
const (
	ControlPrefix = "%matplotlib --"
	DataPrefix    = "%matplotlibdata --"
)

// LineKind tags one line of device output.
type LineKind int

const (
	Plain LineKind = iota
	Control
	Data
)

func (k LineKind) String() string {
	switch k {
	case Control:
		return "control"
	case Data:
		return "data"
	default:
		return "plain"
	}
}

// Classify tags a line of device output. For Control and Data lines the
// returned body is the text after the prefix; plain lines come back unchanged.
func Classify(line string) (LineKind, string) {
	trimmed := strings.TrimLeft(strings.TrimRight(line, "\r\n"), " \t")
	switch {
	case strings.HasPrefix(trimmed, DataPrefix):
		return Data, trimmed[len(DataPrefix):]
	case strings.HasPrefix(trimmed, ControlPrefix):
		return Control, trimmed[len(ControlPrefix):]
	}
	return Plain, line
}
