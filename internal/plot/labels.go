package plot

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoReadings is returned for lines with no label/value content.
var ErrNoReadings = errors.New("no numeric readings")

// Reading is one decoded label/value line. Labels keep first-seen order.
type Reading struct {
	Labels []string
	Values []float64
}

// DecodeLabelValues decodes human-readable telemetry such as
//
//	Random walk: 3.2 just random: -1.7
//
// A value starts right after a space, at a digit or at a sign or decimal
// point followed by a digit, and runs to the next space or the end of the
// line. Everything between the previous value and this one is its label,
// with surrounding whitespace and a trailing ':' removed. A repeated label
// keeps its first position and takes the last value.
func DecodeLabelValues(line string) (Reading, error) {
	var r Reading
	index := make(map[string]int)
	labelStart := 0
	for i := 0; i < len(line); i++ {
		if !valueStartsAt(line, i) {
			continue
		}
		end := strings.IndexByte(line[i:], ' ')
		if end < 0 {
			end = len(line)
		} else {
			end += i
		}
		v, err := strconv.ParseFloat(line[i:end], 64)
		if err != nil {
			return Reading{}, &DecodeError{Line: line, Err: errors.Wrapf(err, "value at column %d", i)}
		}
		label := trimLabel(line[labelStart:i])
		if k, ok := index[label]; ok {
			r.Values[k] = v
		} else {
			index[label] = len(r.Labels)
			r.Labels = append(r.Labels, label)
			r.Values = append(r.Values, v)
		}
		labelStart = end
		i = end
	}
	if len(r.Labels) == 0 {
		return Reading{}, ErrNoReadings
	}
	return r, nil
}

func valueStartsAt(s string, i int) bool {
	if i == 0 || s[i-1] != ' ' {
		return false
	}
	switch c := s[i]; {
	case isDigit(c):
		return true
	case c == '-' || c == '+':
		return i+1 < len(s) && (isDigit(s[i+1]) || (s[i+1] == '.' && i+2 < len(s) && isDigit(s[i+2])))
	case c == '.':
		return i+1 < len(s) && isDigit(s[i+1])
	}
	return false
}

func trimLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}
