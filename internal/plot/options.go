package plot

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode is the plotting policy for one command.
type Mode int

const (
	ModeOff Mode = iota
	ModeSnapshot
	ModeLive
	ModeLiveScroll
	ModeScope
)

// DefaultMode is restored after every command.
const DefaultMode = ModeSnapshot

var modeNames = map[Mode]string{
	ModeOff:        "off",
	ModeSnapshot:   "matplotlib-snapshot",
	ModeLive:       "live",
	ModeLiveScroll: "live-scroll",
	ModeScope:      "scope",
}

var modeAliases = map[string]Mode{
	"off":                 ModeOff,
	"none":                ModeOff,
	"matplotlib-snapshot": ModeSnapshot,
	"matplotlib":          ModeSnapshot,
	"snapshot":            ModeSnapshot,
	"live":                ModeLive,
	"live-scroll":         ModeLiveScroll,
	"livescroll":          ModeLiveScroll,
	"scope":               ModeScope,
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	return []Mode{ModeOff, ModeSnapshot, ModeLive, ModeLiveScroll, ModeScope}
}

// Aliases returns the accepted spellings of m other than its canonical name.
func (m Mode) Aliases() []string {
	var out []string
	for _, name := range []string{"none", "matplotlib", "snapshot", "livescroll"} {
		if modeAliases[name] == m {
			out = append(out, name)
		}
	}
	return out
}

// Describe is a one-line summary of the mode's rendering policy.
func (m Mode) Describe() string {
	switch m {
	case ModeOff:
		return "print device output unchanged"
	case ModeSnapshot:
		return "accumulate array payloads, render on --update and at the end"
	case ModeLive:
		return "append every reading and re-render, unbounded"
	case ModeLiveScroll:
		return "append every reading and re-render, last 100 frames"
	case ModeScope:
		return "triggered capture, buffer restarts on every edge"
	}
	return ""
}

// ParseMode accepts the canonical mode names and the short aliases.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return DefaultMode, errors.Errorf("unknown plot mode %q", s)
}

// Edge selects the trigger direction.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) String() string {
	if e == EdgeFalling {
		return "falling"
	}
	return "rising"
}

// ParseEdge accepts rising/falling as well as RISE/FALL.
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rising", "rise", "":
		return EdgeRising, nil
	case "falling", "fall":
		return EdgeFalling, nil
	}
	return EdgeRising, errors.Errorf("unknown trigger edge %q", s)
}

// Options is the mode selection for one command.
type Options struct {
	Mode           Mode
	TriggerLevel   float64
	TriggerEdge    Edge
	TriggerChannel int
}

// DefaultOptions returns snapshot mode with a rising trigger at 1.0 on channel 1.
func DefaultOptions() Options {
	return Options{
		Mode:           DefaultMode,
		TriggerLevel:   1.0,
		TriggerEdge:    EdgeRising,
		TriggerChannel: 1,
	}
}
