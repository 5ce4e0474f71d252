package plot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Mapping is a flat key/value literal such as {'color': 'r', 'linewidth': 2}.
// Values are float64, string, bool or nil.
type Mapping map[string]any

// Str returns the value under key when it is a string.
func (m Mapping) Str(key string) (string, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, errors.Errorf("%s: expected a string, got %v", key, v)
	}
	return s, true, nil
}

// Float returns the value under key when it is a number.
func (m Mapping) Float(key string) (float64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	f, isNum := v.(float64)
	if !isNum {
		return 0, false, errors.Errorf("%s: expected a number, got %q", key, v)
	}
	return f, true, nil
}

// Bool returns the value under key when it is a boolean.
func (m Mapping) Bool(key string) (bool, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, false, errors.Errorf("%s: expected True or False, got %v", key, v)
	}
	return b, true, nil
}

// ParseMapping parses a flat mapping literal. Only numbers, quoted strings,
// True/False/None and bare or quoted keys are accepted; anything nested is
// rejected.
//
//	mapping := '{' [ key ':' value { ',' key ':' value } [','] ] '}'
func ParseMapping(src string) (Mapping, error) {
	p := &literalParser{src: src}
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	m := Mapping{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			break
		}
		key, err := p.key()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		m[key] = val

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseShape parses an array shape tuple such as (64,) or (64, 2).
//
//	shape := '(' int { ',' int } [','] ')'
func ParseShape(src string) ([]int, error) {
	p := &literalParser{src: src}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var dims []int
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		f, ok := v.(float64)
		if !ok || f < 0 || f != float64(int(f)) {
			return nil, errors.Errorf("shape %q: dimension %v is not a non-negative integer", src, v)
		}
		dims = append(dims, int(f))

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, p.errorf("expected ',' or ')'")
		}
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, errors.Errorf("shape %q: empty", src)
	}
	return dims, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return errors.Errorf("literal %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *literalParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *literalParser) end() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return p.errorf("unexpected trailing text")
	}
	return nil
}

func (p *literalParser) key() (string, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.quoted()
	case isIdentStart(c):
		return p.ident(), nil
	}
	return "", p.errorf("expected a key")
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '\'' || c == '"':
		return p.quoted()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		switch word := p.ident(); word {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		default:
			return nil, errors.Errorf("literal %q: bare name %q is not a value", p.src, word)
		}
	case c == '{' || c == '[' || c == '(':
		return nil, p.errorf("nested literals are not supported")
	}
	return nil, p.errorf("expected a value")
}

func (p *literalParser) quoted() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch {
		case c == quote:
			return b.String(), nil
		case c == '\\' && p.pos < len(p.src):
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !isDigit(c) && c != '.' && c != '-' && c != '+' && c != 'e' && c != 'E' {
			break
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "literal %q: number %q", p.src, text)
	}
	return f, nil
}

func (p *literalParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && (isIdentStart(p.src[p.pos]) || isDigit(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
