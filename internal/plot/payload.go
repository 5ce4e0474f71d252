package plot

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// maxColumns caps the second shape dimension of a payload.
const maxColumns = 1024

// ArrayPayload is a decoded packed-binary data line.
type ArrayPayload struct {
	X     []float64
	Y     [][]float64 // Y[column][row]
	Rows  int
	Cols  int
	Style Style
}

// DecodeError reports a data line that could not be turned into samples.
// The caller falls back to passing Line through as text.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %q: %v", e.Line, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeArrayPayload decodes the body of a data line (prefix already removed):
//
//	body := settings payload
//	settings := mapping literal, ends at the last '}'
//	payload := ['['] '[' hex ']' ', ' '[' hex ']' [']'] '(' shape ')'
//
// The first hex run is little-endian float32 x samples. The second is the y
// samples laid out row-major per the shape, as float32 or, when the byte
// count says so, float64.
func DecodeArrayPayload(body string) (*ArrayPayload, error) {
	p, err := decodeArrayPayload(body)
	if err != nil {
		return nil, &DecodeError{Line: body, Err: err}
	}
	return p, nil
}

func decodeArrayPayload(body string) (*ArrayPayload, error) {
	brace := strings.LastIndexByte(body, '}')
	if brace < 0 {
		return nil, errors.New("missing style settings")
	}
	settings, err := ParseMapping(body[:brace+1])
	if err != nil {
		return nil, errors.Wrap(err, "style settings")
	}
	st, err := styleFromMapping(settings)
	if err != nil {
		return nil, errors.Wrap(err, "style settings")
	}

	data := strings.TrimSpace(body[brace+1:])
	open := strings.LastIndexByte(data, '(')
	if open < 0 {
		return nil, errors.New("missing shape")
	}
	shape, err := ParseShape(data[open:])
	if err != nil {
		return nil, errors.Wrap(err, "shape")
	}
	arrays := strings.TrimSpace(data[:open])
	if strings.HasPrefix(arrays, "[[") && strings.HasSuffix(arrays, "]]") {
		arrays = arrays[1 : len(arrays)-1]
	}
	sep := strings.Index(arrays, "], [")
	if sep < 0 || !strings.HasPrefix(arrays, "[") || !strings.HasSuffix(arrays, "]") {
		return nil, errors.New("expected two bracketed hex arrays")
	}
	xRaw, err := hex.DecodeString(arrays[1:sep])
	if err != nil {
		return nil, errors.Wrap(err, "x samples")
	}
	yRaw, err := hex.DecodeString(arrays[sep+4 : len(arrays)-1])
	if err != nil {
		return nil, errors.Wrap(err, "y samples")
	}

	rows, cols := shape[0], 1
	switch len(shape) {
	case 1:
	case 2:
		cols = shape[1]
	default:
		return nil, errors.Errorf("shape %v: only 1-D and 2-D arrays are supported", shape)
	}
	if cols < 1 || cols > maxColumns {
		return nil, errors.Errorf("shape %v: column count must be between 1 and %d", shape, maxColumns)
	}
	if rows > 0 && cols > len(yRaw)/4/rows {
		return nil, errors.Errorf("y has %d bytes, too few for shape %v", len(yRaw), shape)
	}
	if len(xRaw)%4 != 0 {
		return nil, errors.Errorf("x samples: %d bytes is not a whole number of float32", len(xRaw))
	}
	x := float32s(xRaw)
	if len(x) != rows {
		return nil, errors.Errorf("x has %d samples, shape %v expects %d", len(x), shape, rows)
	}

	var flat []float64
	switch n := rows * cols; len(yRaw) {
	case n * 4:
		flat = float32s(yRaw)
	case n * 8:
		flat = float64s(yRaw)
	default:
		return nil, errors.Errorf("y has %d bytes, shape %v expects %d float32 values", len(yRaw), shape, n)
	}

	y := make([][]float64, cols)
	for c := range y {
		y[c] = make([]float64, rows)
		for r := 0; r < rows; r++ {
			y[c][r] = flat[r*cols+c]
		}
	}
	return &ArrayPayload{X: x, Y: y, Rows: rows, Cols: cols, Style: st}, nil
}

func float32s(b []byte) []float64 {
	out := make([]float64, len(b)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return out
}

func float64s(b []byte) []float64 {
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

// EncodeArrayPayload builds a complete data line the way the device-side
// plotting module writes it. y is row-major with cols columns; settings is a
// mapping literal such as "{'fmt': 'r--'}" (empty means "{}").
func EncodeArrayPayload(settings string, x, y []float32, cols int) string {
	if settings == "" {
		settings = "{}"
	}
	if cols < 1 {
		cols = 1
	}
	shape := fmt.Sprintf("(%d,)", len(x))
	if cols > 1 {
		shape = fmt.Sprintf("(%d, %d)", len(x), cols)
	}
	return fmt.Sprintf("%s%s[[%s], [%s]]%s", DataPrefix, settings, packFloat32s(x), packFloat32s(y), shape)
}

func packFloat32s(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return hex.EncodeToString(b)
}
