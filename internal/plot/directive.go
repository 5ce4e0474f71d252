package plot

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Arg is one positional directive argument: a number when the token has no
// letters in it, otherwise a string with its quotes stripped.
type Arg struct {
	Num   float64
	Str   string
	IsNum bool
}

func (a Arg) String() string {
	if a.IsNum {
		return strconv.FormatFloat(a.Num, 'g', -1, 64)
	}
	return a.Str
}

// Directive is a parsed control line.
type Directive struct {
	Name   string
	Args   []Arg
	Kwargs Mapping
	Update bool
}

// ParseDirective parses the body of a control line (prefix removed):
//
//	directive := '--update' | name '(' [ arg { ', ' arg } ] ')' [ mapping ]
//
// The mapping may also appear as the last argument inside the parentheses.
func ParseDirective(body string) (Directive, error) {
	body = strings.TrimSpace(body)
	if body == "--update" || body == "update" {
		return Directive{Update: true}, nil
	}
	open := strings.IndexByte(body, '(')
	if open <= 0 {
		return Directive{}, errors.Errorf("directive %q: expected name(args)", body)
	}
	d := Directive{Name: strings.TrimSpace(body[:open])}
	rest := body[open:]

	if i := strings.IndexByte(rest, '{'); i >= 0 {
		j := strings.LastIndexByte(rest, '}')
		if j < i {
			return Directive{}, errors.Errorf("directive %q: unbalanced braces", body)
		}
		lit := rest[i : j+1]
		if strings.TrimSpace(lit[1:len(lit)-1]) != "" {
			kw, err := ParseMapping(lit)
			if err != nil {
				return Directive{}, errors.Wrapf(err, "directive %q", body)
			}
			d.Kwargs = kw
		}
		rest = rest[:i] + rest[j+1:]
	}

	closing := strings.LastIndexByte(rest, ')')
	if closing < 0 {
		return Directive{}, errors.Errorf("directive %q: missing ')'", body)
	}
	if strings.TrimSpace(rest[closing+1:]) != "" {
		return Directive{}, errors.Errorf("directive %q: unexpected text after ')'", body)
	}
	inner := strings.TrimSpace(rest[1:closing])
	inner = strings.TrimSpace(strings.TrimSuffix(inner, ","))
	if inner == "" {
		return d, nil
	}
	for _, tok := range strings.Split(inner, ", ") {
		if strings.IndexFunc(tok, unicode.IsLetter) >= 0 {
			d.Args = append(d.Args, Arg{Str: strings.NewReplacer(`"`, "", `'`, "").Replace(tok)})
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return Directive{}, errors.Wrapf(err, "directive %q: argument %q", body, tok)
		}
		d.Args = append(d.Args, Arg{Num: f, IsNum: true})
	}
	return d, nil
}

// Op is one resolved chart operation.
type Op interface {
	Apply(c Chart)
}

type (
	LegendOp struct{ On bool }
	GridOp   struct{ On bool }
	XLimOp   struct{ Lo, Hi float64 }
	YLimOp   struct{ Lo, Hi float64 }
	XLabelOp struct{ Text string }
	YLabelOp struct{ Text string }
	TitleOp  struct{ Text string }
)

type (
	AxHLineOp struct {
		Y     float64
		Style Style
	}
	AxVLineOp struct {
		X     float64
		Style Style
	}
	HLinesOp struct {
		Y, From, To float64
		Style       Style
	}
	VLinesOp struct {
		X, From, To float64
		Style       Style
	}
)

func (o LegendOp) Apply(c Chart)  { c.Legend(o.On) }
func (o GridOp) Apply(c Chart)    { c.Grid(o.On) }
func (o XLimOp) Apply(c Chart)    { c.SetXLim(o.Lo, o.Hi) }
func (o YLimOp) Apply(c Chart)    { c.SetYLim(o.Lo, o.Hi) }
func (o XLabelOp) Apply(c Chart)  { c.SetXLabel(o.Text) }
func (o YLabelOp) Apply(c Chart)  { c.SetYLabel(o.Text) }
func (o TitleOp) Apply(c Chart)   { c.SetTitle(o.Text) }
func (o AxHLineOp) Apply(c Chart) { c.AxHLine(o.Y, o.Style) }
func (o AxVLineOp) Apply(c Chart) { c.AxVLine(o.X, o.Style) }
func (o HLinesOp) Apply(c Chart)  { c.HLines(o.Y, o.From, o.To, o.Style) }
func (o VLinesOp) Apply(c Chart)  { c.VLines(o.X, o.From, o.To, o.Style) }

// operations maps directive names to their typed variants. The set_* names
// are accepted as aliases of the short forms.
var operations = map[string]func(Directive) (Op, error){
	"legend":     resolveLegend,
	"grid":       resolveGrid,
	"xlim":       resolveLimits(func(lo, hi float64) Op { return XLimOp{lo, hi} }),
	"set_xlim":   resolveLimits(func(lo, hi float64) Op { return XLimOp{lo, hi} }),
	"ylim":       resolveLimits(func(lo, hi float64) Op { return YLimOp{lo, hi} }),
	"set_ylim":   resolveLimits(func(lo, hi float64) Op { return YLimOp{lo, hi} }),
	"xlabel":     resolveText(func(s string) Op { return XLabelOp{s} }),
	"set_xlabel": resolveText(func(s string) Op { return XLabelOp{s} }),
	"ylabel":     resolveText(func(s string) Op { return YLabelOp{s} }),
	"set_ylabel": resolveText(func(s string) Op { return YLabelOp{s} }),
	"title":      resolveText(func(s string) Op { return TitleOp{s} }),
	"set_title":  resolveText(func(s string) Op { return TitleOp{s} }),
	"axhline": resolveLine(1, func(v []float64, st Style) Op {
		return AxHLineOp{Y: v[0], Style: st}
	}),
	"axvline": resolveLine(1, func(v []float64, st Style) Op {
		return AxVLineOp{X: v[0], Style: st}
	}),
	"hlines": resolveLine(3, func(v []float64, st Style) Op {
		return HLinesOp{Y: v[0], From: v[1], To: v[2], Style: st}
	}),
	"vlines": resolveLine(3, func(v []float64, st Style) Op {
		return VLinesOp{X: v[0], From: v[1], To: v[2], Style: st}
	}),
}

// Operation resolves the directive against the operation table and checks
// its arguments.
func (d Directive) Operation() (Op, error) {
	resolve, ok := operations[d.Name]
	if !ok {
		return nil, errors.Errorf("unknown chart operation %q", d.Name)
	}
	op, err := resolve(d)
	if err != nil {
		return nil, errors.Wrap(err, d.Name)
	}
	return op, nil
}

func resolveLegend(d Directive) (Op, error) {
	if len(d.Args) > 0 {
		return nil, errors.Errorf("takes no positional arguments, got %d", len(d.Args))
	}
	return LegendOp{On: true}, nil
}

func resolveGrid(d Directive) (Op, error) {
	on := true
	switch len(d.Args) {
	case 0:
	case 1:
		switch strings.ToLower(d.Args[0].String()) {
		case "true", "on", "1":
		case "false", "off", "0":
			on = false
		default:
			return nil, errors.Errorf("cannot interpret %q as on/off", d.Args[0].String())
		}
	default:
		return nil, errors.Errorf("takes at most 1 argument, got %d", len(d.Args))
	}
	if v, ok, err := d.Kwargs.Bool("visible"); err != nil {
		return nil, err
	} else if ok {
		on = v
	}
	return GridOp{On: on}, nil
}

func resolveLimits(build func(lo, hi float64) Op) func(Directive) (Op, error) {
	return func(d Directive) (Op, error) {
		v, err := numericArgs(d.Args, 2)
		if err != nil {
			return nil, err
		}
		return build(v[0], v[1]), nil
	}
}

func resolveText(build func(string) Op) func(Directive) (Op, error) {
	return func(d Directive) (Op, error) {
		if len(d.Args) != 1 {
			return nil, errors.Errorf("expects 1 argument, got %d", len(d.Args))
		}
		return build(d.Args[0].String()), nil
	}
}

func resolveLine(n int, build func([]float64, Style) Op) func(Directive) (Op, error) {
	return func(d Directive) (Op, error) {
		v, err := numericArgs(d.Args, n)
		if err != nil {
			return nil, err
		}
		st, err := styleFromMapping(d.Kwargs)
		if err != nil {
			return nil, err
		}
		return build(v, st), nil
	}
}

func numericArgs(args []Arg, n int) ([]float64, error) {
	if len(args) != n {
		return nil, errors.Errorf("expects %d numeric arguments, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		if !a.IsNum {
			return nil, errors.Errorf("argument %d: %q is not a number", i+1, a.Str)
		}
		out[i] = a.Num
	}
	return out, nil
}
