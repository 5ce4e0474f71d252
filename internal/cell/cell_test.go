package cell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaunagostinho/cellscope/internal/capture"
	"github.com/shaunagostinho/cellscope/internal/device"
	"github.com/shaunagostinho/cellscope/internal/plot"
)

type countingSink struct {
	creates int
	updates int
}

func (s *countingSink) Create(fig *plot.Figure) (plot.Handle, error) {
	s.creates++
	return plot.Handle("h"), nil
}

func (s *countingSink) Update(h plot.Handle, fig *plot.Figure) error {
	s.updates++
	return nil
}

type recordingOutput struct {
	text []string
	diag []string
}

func (o *recordingOutput) Text(line string)       { o.text = append(o.text, line) }
func (o *recordingOutput) Diagnostic(line string) { o.diag = append(o.diag, line) }

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		magics []string
		code   string
	}{
		{"no magics", "print(1)\nprint(2)", nil, "print(1)\nprint(2)"},
		{"one magic", "%plot --mode live\nrun()", []string{"%plot --mode live"}, "run()"},
		{"comments before magics", "# setup\n\n%plot --mode scope\n%capture out.txt\n\nrun()", []string{"%plot --mode scope", "%capture out.txt"}, "run()"},
		{"magic only", "%plot --mode live\n", []string{"%plot --mode live"}, ""},
		{"comment without magic is kept", "# hi\nrun()", nil, "# hi\nrun()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Split(tt.src)
			assert.Equal(t, tt.magics, c.Magics)
			assert.Equal(t, tt.code, c.Code)
		})
	}
}

func TestParsePlot(t *testing.T) {
	defaults := plot.DefaultOptions()

	t.Run("no flags keeps defaults", func(t *testing.T) {
		o, err := ParsePlot(nil, defaults)
		require.NoError(t, err)
		assert.Equal(t, defaults, o)
	})

	t.Run("modes and aliases", func(t *testing.T) {
		for arg, want := range map[string]plot.Mode{
			"none":       plot.ModeOff,
			"matplotlib": plot.ModeSnapshot,
			"live":       plot.ModeLive,
			"livescroll": plot.ModeLiveScroll,
			"scope":      plot.ModeScope,
		} {
			o, err := ParsePlot([]string{"--mode", arg}, defaults)
			require.NoError(t, err, arg)
			assert.Equal(t, want, o.Mode, arg)
		}
	})

	t.Run("unknown mode falls back to snapshot", func(t *testing.T) {
		o, err := ParsePlot([]string{"--mode", "bogus"}, plot.Options{Mode: plot.ModeLive})
		require.NoError(t, err)
		assert.Equal(t, plot.ModeSnapshot, o.Mode)
	})

	t.Run("scope trigger settings", func(t *testing.T) {
		o, err := ParsePlot([]string{"--mode", "scope", "--trigger_lvl", "2.5", "--type", "FALL", "--chan", "2"}, defaults)
		require.NoError(t, err)
		assert.Equal(t, plot.ModeScope, o.Mode)
		assert.Equal(t, 2.5, o.TriggerLevel)
		assert.Equal(t, plot.EdgeFalling, o.TriggerEdge)
		assert.Equal(t, 2, o.TriggerChannel)
	})

	t.Run("trigger settings are ignored outside scope", func(t *testing.T) {
		o, err := ParsePlot([]string{"--mode", "live", "--trigger_lvl", "9"}, defaults)
		require.NoError(t, err)
		assert.Equal(t, defaults.TriggerLevel, o.TriggerLevel)
	})

	t.Run("rejects unknown flags", func(t *testing.T) {
		_, err := ParsePlot([]string{"--speed", "3"}, defaults)
		assert.Error(t, err)
	})

	t.Run("rejects bad edge", func(t *testing.T) {
		_, err := ParsePlot([]string{"--mode", "scope", "--type", "SIDEWAYS"}, defaults)
		assert.Error(t, err)
	})
}

func TestParseCapture(t *testing.T) {
	target, err := ParseCapture([]string{"out.txt"})
	require.NoError(t, err)
	assert.Equal(t, CaptureTarget{Path: "out.txt", Mode: capture.Verbose}, target)

	target, err = ParseCapture([]string{"-q", "out.txt"})
	require.NoError(t, err)
	assert.Equal(t, capture.Quiet, target.Mode)

	target, err = ParseCapture([]string{"--QUIET", "out.txt"})
	require.NoError(t, err)
	assert.Equal(t, capture.Silent, target.Mode)

	_, err = ParseCapture(nil)
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	f, err := Fields(`%capture "my file.txt"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"%capture", "my file.txt"}, f)
}

func TestConsoleExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("live mode renders every reading and restores defaults", func(t *testing.T) {
		sink := &countingSink{}
		out := &recordingOutput{}
		dev := device.NewDemoProvider(device.DemoConfig{Lines: 20})
		c := NewConsole(dev, sink, out, WithClock(clock.NewMock()))

		require.NoError(t, c.Execute(ctx, "%plot --mode live\nrun()"))
		assert.Equal(t, 1, sink.creates)
		assert.Equal(t, 19, sink.updates)
		assert.Empty(t, out.text)

		// Next cell runs in snapshot mode: readings are plain text again.
		require.NoError(t, c.Execute(ctx, "run()"))
		assert.Equal(t, 1, sink.creates)
		assert.Len(t, out.text, 20)
	})

	t.Run("snapshot mode with array payloads", func(t *testing.T) {
		sink := &countingSink{}
		out := &recordingOutput{}
		dev := device.NewDemoProvider(device.DemoConfig{Kind: device.DemoArrays, Lines: 20})
		c := NewConsole(dev, sink, out)

		require.NoError(t, c.Execute(ctx, "run()"))
		assert.Equal(t, 1, sink.creates)
		// two --update directives plus the final render
		assert.Equal(t, 3, sink.updates)
		assert.Empty(t, out.diag)
	})

	t.Run("capture records plain output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cap.txt")
		out := &recordingOutput{}
		dev := device.NewDemoProvider(device.DemoConfig{Lines: 3})
		c := NewConsole(dev, &countingSink{}, out)

		require.NoError(t, c.Execute(ctx, "%capture -Q "+path+"\nrun()"))
		assert.Equal(t, []string{"3 lines captured."}, out.text)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 3, strings.Count(string(data), "Random walk"))
	})

	t.Run("no device", func(t *testing.T) {
		out := &recordingOutput{}
		c := NewConsole(nil, &countingSink{}, out)
		require.NoError(t, c.Execute(ctx, "%plot --mode live\nrun()"))
		assert.Equal(t, []string{"No device connected"}, out.diag)
	})

	t.Run("unknown magic", func(t *testing.T) {
		out := &recordingOutput{}
		c := NewConsole(device.NewDemoProvider(device.DemoConfig{}), &countingSink{}, out)
		require.NoError(t, c.Execute(ctx, "%frobnicate\nrun()"))
		assert.Equal(t, []string{"Unrecognized magic %frobnicate"}, out.diag)
	})

	t.Run("empty code sends nothing", func(t *testing.T) {
		sink := &countingSink{}
		out := &recordingOutput{}
		c := NewConsole(device.NewDemoProvider(device.DemoConfig{}), sink, out)
		require.NoError(t, c.Execute(ctx, "%plot --mode live\n"))
		assert.Zero(t, sink.creates)
		assert.Empty(t, out.text)
	})
}
