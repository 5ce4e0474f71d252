// Package cell runs one unit of user input against the device: it applies
// the leading %-magics, sends the code and feeds the output through the plot
// engine.
package cell

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/shaunagostinho/cellscope/internal/capture"
	"github.com/shaunagostinho/cellscope/internal/plot"
)

// Cell is user input split into its leading magic lines and the code that
// follows them.
type Cell struct {
	Magics []string
	Code   string
}

// Split peels %-lines off the start of src. Blank lines and '#' comment
// lines before a magic are dropped with it; a single blank line after the
// last magic is dropped too.
func Split(src string) Cell {
	var c Cell
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	i := 0
	for {
		j := i
		for j < len(lines) && isSkippable(lines[j]) {
			j++
		}
		if j >= len(lines) || !strings.HasPrefix(strings.TrimSpace(lines[j]), "%") {
			break
		}
		c.Magics = append(c.Magics, strings.TrimSpace(lines[j]))
		i = j + 1
	}
	if len(c.Magics) > 0 && i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	c.Code = strings.Join(lines[i:], "\n")
	if strings.TrimSpace(c.Code) == "" {
		c.Code = ""
	}
	return c
}

func isSkippable(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "#")
}

// plotArgs are the flags of the %plot magic.
type plotArgs struct {
	Mode       string  `help:"Plot mode: off, matplotlib, live, livescroll or scope." default:"${mode}"`
	TriggerLvl float64 `name:"trigger_lvl" help:"Scope trigger level." default:"${trigger_lvl}"`
	Type       string  `help:"Scope trigger edge, RISE or FALL." default:"${edge}"`
	Chan       int     `help:"Scope trigger channel, 1-based." default:"${chan}"`
}

// captureArgs are the flags of the %capture magic.
type captureArgs struct {
	Quiet    bool   `short:"q" help:"Show a running count of captured lines instead of the lines."`
	QuietAll bool   `name:"QUIET" short:"Q" help:"Show only the final count of captured lines."`
	File     string `arg:"" name:"outputfilename" help:"File to write the captured output to."`
}

// CaptureTarget is a parsed %capture magic.
type CaptureTarget struct {
	Path string
	Mode capture.Mode
}

// Fields splits a magic line into its words, honouring shell quoting.
func Fields(magic string) ([]string, error) {
	f, err := shlex.Split(magic)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", magic)
	}
	return f, nil
}

// ParsePlot applies %plot flags on top of defaults. An unrecognized mode
// selects the default mode rather than failing, as does a missing one.
func ParsePlot(args []string, defaults plot.Options) (plot.Options, error) {
	var a plotArgs
	vars := kong.Vars{
		"mode":        defaults.Mode.String(),
		"trigger_lvl": strconv.FormatFloat(defaults.TriggerLevel, 'g', -1, 64),
		"edge":        defaults.TriggerEdge.String(),
		"chan":        strconv.Itoa(defaults.TriggerChannel),
	}
	if err := parseMagic("%plot", &a, args, vars); err != nil {
		return defaults, err
	}

	opts := defaults
	mode, err := plot.ParseMode(a.Mode)
	if err != nil {
		mode = plot.DefaultMode
	}
	opts.Mode = mode
	if mode != plot.ModeScope {
		return opts, nil
	}
	edge, err := plot.ParseEdge(a.Type)
	if err != nil {
		return defaults, err
	}
	opts.TriggerLevel = a.TriggerLvl
	opts.TriggerEdge = edge
	opts.TriggerChannel = a.Chan
	return opts, nil
}

// ParseCapture parses %capture flags.
func ParseCapture(args []string) (CaptureTarget, error) {
	var a captureArgs
	if err := parseMagic("%capture", &a, args, nil); err != nil {
		return CaptureTarget{}, err
	}
	target := CaptureTarget{Path: a.File, Mode: capture.Verbose}
	switch {
	case a.QuietAll:
		target.Mode = capture.Silent
	case a.Quiet:
		target.Mode = capture.Quiet
	}
	return target, nil
}

func parseMagic(name string, target any, args []string, vars kong.Vars) error {
	var usage bytes.Buffer
	options := []kong.Option{
		kong.Name(name),
		kong.NoDefaultHelp(),
		kong.Exit(func(int) {}),
		kong.Writers(&usage, &usage),
	}
	if vars != nil {
		options = append(options, vars)
	}
	parser, err := kong.New(target, options...)
	if err != nil {
		return errors.Wrap(err, name)
	}
	if _, err := parser.Parse(args); err != nil {
		return errors.Wrap(err, name)
	}
	return nil
}
