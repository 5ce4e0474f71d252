package plot

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	creates  int
	updates  int
	failNext int
	lastFig  Figure
}

func (s *countingSink) Create(fig *Figure) (Handle, error) {
	if s.failNext > 0 {
		s.failNext--
		return "", io.ErrClosedPipe
	}
	s.creates++
	s.lastFig = *fig
	return Handle(fmt.Sprintf("h%d", s.creates)), nil
}

func (s *countingSink) Update(h Handle, fig *Figure) error {
	if s.failNext > 0 {
		s.failNext--
		return io.ErrClosedPipe
	}
	s.updates++
	s.lastFig = *fig
	return nil
}

type recordingOutput struct {
	text  []string
	diags []string
}

func (o *recordingOutput) Text(line string)       { o.text = append(o.text, line) }
func (o *recordingOutput) Diagnostic(line string) { o.diags = append(o.diags, line) }

func newTestProcessor(mode Mode) (*Processor, *countingSink, *recordingOutput, *clock.Mock) {
	opts := DefaultOptions()
	opts.Mode = mode
	sink := &countingSink{}
	out := &recordingOutput{}
	mock := clock.NewMock()
	return NewProcessor(opts, sink, out, WithClock(mock), WithFigureSize(300, 200)), sink, out, mock
}

func arrayLine(label string, y ...float32) string {
	x := make([]float32, len(y))
	for i := range x {
		x[i] = float32(i)
	}
	return EncodeArrayPayload(fmt.Sprintf("{'label': '%s'}", label), x, y, 1)
}

func TestSnapshotMode(t *testing.T) {
	p, sink, out, _ := newTestProcessor(ModeSnapshot)

	p.HandleLine(ControlPrefix + "title('dropped')")
	assert.Empty(t, out.text)
	assert.Empty(t, out.diags)

	p.HandleLine(arrayLine("a", 1, 2, 3))
	p.HandleLine("booting")
	p.HandleLine(arrayLine("b", 3, 2, 1))
	p.HandleLine(arrayLine("c", 0, 0, 0))
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 0, sink.updates)
	assert.Equal(t, StateSnapshot, p.State())

	p.HandleLine(ControlPrefix + "title('Run')")
	p.HandleLine(ControlPrefix + "--update")
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 1, sink.updates)
	assert.Equal(t, "Run", sink.lastFig.Title)
	assert.Len(t, sink.lastFig.Series, 3)
	assert.Equal(t, 300, sink.lastFig.Width)

	// readings are not plotted in snapshot mode
	p.HandleLine("v: 1")
	assert.Equal(t, []string{"booting", "v: 1"}, out.text)

	p.Finish()
	assert.Equal(t, 2, sink.updates)
	assert.Equal(t, StateUninitialized, p.State())
	assert.Nil(t, p.Session())
}

func TestSnapshotCorruptPayloadPassesThrough(t *testing.T) {
	p, sink, out, _ := newTestProcessor(ModeSnapshot)
	line := arrayLine("a", 1, 2)
	bad := line[:len(line)-12] + "zz" + line[len(line)-10:]

	p.HandleLine(bad)
	assert.Equal(t, []string{bad}, out.text)
	assert.Equal(t, 0, sink.creates)
	assert.Equal(t, StateUninitialized, p.State())
}

func TestBadDirectives(t *testing.T) {
	p, _, out, _ := newTestProcessor(ModeSnapshot)
	p.HandleLine(arrayLine("a", 1))

	p.HandleLine(ControlPrefix + "title")
	p.HandleLine(ControlPrefix + "savefig('x.png')")
	require.Len(t, out.diags, 2)
	assert.Equal(t, ControlPrefix+"title", out.diags[0])
	assert.Contains(t, out.diags[1], "savefig")
}

func TestOffMode(t *testing.T) {
	p, sink, out, _ := newTestProcessor(ModeOff)
	lines := []string{"v: 1", arrayLine("a", 1), ControlPrefix + "--update", "hello"}
	for _, l := range lines {
		p.HandleLine(l)
	}
	p.Finish()
	assert.Equal(t, lines, out.text)
	assert.Zero(t, sink.creates+sink.updates)
}

func TestLiveMode(t *testing.T) {
	p, sink, out, mock := newTestProcessor(ModeLive)

	p.HandleLine("Random walk: 5 just random: 0.5")
	mock.Add(time.Second)
	p.HandleLine("not a reading")
	p.HandleLine("Random walk: 1 just random: 0.5")
	mock.Add(time.Second)
	p.HandleLine("Random walk: 3 just random: 0.5")

	assert.Equal(t, []string{"not a reading"}, out.text)
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 2, sink.updates)
	assert.Equal(t, StateLiveUnbounded, p.State())

	s := p.Session()
	assert.Equal(t, []string{"Random walk", "just random"}, s.Labels())
	assert.Equal(t, 3, s.Buffer().Len())
	assert.Equal(t, []float64{0, 1, 2}, s.Buffer().Times())
	b := s.Bounds()
	assert.Equal(t, 0.5, b.YMin)
	assert.Equal(t, 5.0, b.YMax)

	fig := sink.lastFig
	assert.Equal(t, "Time [s]", fig.XLabel)
	assert.True(t, fig.ShowLegend)
	require.Len(t, fig.Series, 2)
	assert.Equal(t, "Random walk", fig.Series[0].Name)
	assert.Equal(t, []float64{5, 1, 3}, fig.Series[0].Y)
	assert.True(t, fig.YLim.Set)
	assert.InDelta(t, 5+0.45, fig.YLim.Hi, 1e-9)
	assert.InDelta(t, 0.5-0.45, fig.YLim.Lo, 1e-9)

	p.HandleLine(ControlPrefix + "ylabel('units')")
	assert.Equal(t, "units", s.Figure().YLabel)

	p.Finish()
	assert.Equal(t, 2, sink.updates)
	assert.Equal(t, StateUninitialized, p.State())
}

func TestLiveChannelMismatch(t *testing.T) {
	p, sink, out, _ := newTestProcessor(ModeLive)
	p.HandleLine("a: 1 b: 2")
	p.HandleLine("a: 3")
	p.HandleLine("a: 3 b: 4 c: 5")
	p.HandleLine("x: 7 y: 8")

	assert.Equal(t, []string{"a: 3", "a: 3 b: 4 c: 5"}, out.text)
	assert.Equal(t, 2, p.Session().Buffer().Len())
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 1, sink.updates)
}

func TestLiveScrollMode(t *testing.T) {
	p, _, _, mock := newTestProcessor(ModeLiveScroll)
	for i := 0; i < 150; i++ {
		p.HandleLine(fmt.Sprintf("v: %d", i))
		mock.Add(100 * time.Millisecond)
	}
	s := p.Session()
	assert.Equal(t, StateLiveScrolling, p.State())
	assert.Equal(t, ScrollDepth, s.Buffer().Len())
	assert.Equal(t, 50.0, s.Buffer().Column(0)[0])
	// bounds follow the window, not the whole history
	assert.Equal(t, 50.0, s.Bounds().YMin)
	assert.Equal(t, 149.0, s.Bounds().YMax)
	// the scrolling window leaves legend headroom above the data
	assert.InDelta(t, 149+2*9.9, s.Figure().YLim.Hi, 1e-9)
	assert.InDelta(t, 50-9.9, s.Figure().YLim.Lo, 1e-9)
}

func TestScopeMode(t *testing.T) {
	p, sink, _, mock := newTestProcessor(ModeScope)

	values := []float64{0.5, 0.5, 1.5, 0.3, 1.2}
	states := make([]State, 0, len(values))
	for _, v := range values {
		p.HandleLine(fmt.Sprintf("ch1: %g ch2: 0", v))
		states = append(states, p.State())
		mock.Add(time.Second)
	}

	assert.Equal(t, []State{
		StateScopeArmed,
		StateScopeArmed,
		StateScopeTriggered,
		StateScopeArmed,
		StateScopeTriggered,
	}, states)
	// nothing is drawn before the first trigger
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 2, sink.updates)

	s := p.Session()
	require.Equal(t, 1, s.Buffer().Len())
	assert.Equal(t, []float64{0}, s.Buffer().Times())
	assert.Equal(t, 1.2, s.Bounds().YMax)
	assert.Equal(t, 0.0, s.Bounds().YMin)
}

func TestScopeTriggerChannelClamped(t *testing.T) {
	opts := Options{Mode: ModeScope, TriggerLevel: 0, TriggerEdge: EdgeRising, TriggerChannel: 9}
	p := NewProcessor(opts, &countingSink{}, &recordingOutput{})
	p.HandleLine("a: 5 b: -1")
	assert.Equal(t, 2, p.Session().Trigger().Channel())
}

func TestRenderFailureRetriesCreate(t *testing.T) {
	p, sink, out, _ := newTestProcessor(ModeSnapshot)
	sink.failNext = 1

	p.HandleLine(arrayLine("a", 1, 2))
	require.Len(t, out.diags, 1)
	assert.Contains(t, out.diags[0], "render failed")
	assert.Equal(t, 0, sink.creates)

	p.Finish()
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 0, sink.updates)
	assert.Equal(t, StateUninitialized, p.State())
}

type panickingSource struct {
	lines []string
}

func (s *panickingSource) Next(ctx context.Context) (string, error) {
	if len(s.lines) == 0 {
		panic("link dropped")
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestRunFinishesOnPanic(t *testing.T) {
	p, sink, _, _ := newTestProcessor(ModeSnapshot)
	src := &panickingSource{lines: []string{arrayLine("a", 1, 2)}}

	assert.Panics(t, func() { _ = Run(context.Background(), p, src) })
	assert.Equal(t, StateUninitialized, p.State())
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, 1, sink.updates)
}

func TestRun(t *testing.T) {
	p, sink, out, _ := newTestProcessor(ModeLive)
	src := &SliceSource{Lines: []string{"hi", "v: 1", "v: 2"}}

	require.NoError(t, Run(context.Background(), p, src))
	assert.Equal(t, []string{"hi"}, out.text)
	assert.Equal(t, 1, sink.creates)
	assert.Equal(t, StateUninitialized, p.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _, _, _ = newTestProcessor(ModeLive)
	err := Run(ctx, p, &SliceSource{Lines: []string{"v: 1"}})
	assert.ErrorIs(t, err, context.Canceled)
}
