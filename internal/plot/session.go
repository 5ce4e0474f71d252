package plot

import "time"

// State is the lifecycle state of the plot session.
type State int

const (
	StateUninitialized State = iota
	StateSnapshot
	StateLiveUnbounded
	StateLiveScrolling
	StateScopeArmed
	StateScopeTriggered
)

func (s State) String() string {
	switch s {
	case StateSnapshot:
		return "snapshot"
	case StateLiveUnbounded:
		return "live-unbounded"
	case StateLiveScrolling:
		return "live-scrolling"
	case StateScopeArmed:
		return "scope-armed"
	case StateScopeTriggered:
		return "scope-triggered"
	}
	return "uninitialized"
}

// Session is everything one command's plotting owns. It is created on the
// first decoded frame and dropped when the command finishes.
type Session struct {
	mode     Mode
	labels   []string
	channels int
	buffer   *Buffer
	trigger  *Trigger
	handle   Handle
	started  time.Time
	bounds   Bounds
	figure   *Figure
}

func newSnapshotSession(now time.Time, fig *Figure) *Session {
	return &Session{mode: ModeSnapshot, started: now, figure: fig}
}

// newLiveSession fixes the channel layout from the first reading and clamps
// the trigger channel to it.
func newLiveSession(opts Options, first Reading, now time.Time, fig *Figure) *Session {
	s := &Session{
		mode:     opts.Mode,
		labels:   append([]string(nil), first.Labels...),
		channels: len(first.Values),
		started:  now,
		figure:   fig,
	}
	depth := 0
	if opts.Mode == ModeLiveScroll {
		depth = ScrollDepth
	}
	s.buffer = NewBuffer(depth)
	if opts.Mode == ModeScope {
		ch := opts.TriggerChannel
		if ch < 1 {
			ch = 1
		}
		if ch > s.channels {
			ch = s.channels
		}
		s.trigger = NewTrigger(TriggerConfig{Channel: ch, Level: opts.TriggerLevel, Edge: opts.TriggerEdge})
	}
	fig.SetXLabel("Time [s]")
	fig.Grid(true)
	fig.Legend(true)
	return s
}

func (s *Session) State() State {
	switch s.mode {
	case ModeSnapshot:
		return StateSnapshot
	case ModeLive:
		return StateLiveUnbounded
	case ModeLiveScroll:
		return StateLiveScrolling
	case ModeScope:
		if s.trigger.Triggered() && !s.trigger.Armed() {
			return StateScopeTriggered
		}
		return StateScopeArmed
	}
	return StateUninitialized
}

func (s *Session) Mode() Mode         { return s.mode }
func (s *Session) Labels() []string   { return s.labels }
func (s *Session) Handle() Handle     { return s.handle }
func (s *Session) Figure() *Figure    { return s.figure }
func (s *Session) Bounds() Bounds     { return s.bounds }
func (s *Session) Started() time.Time { return s.started }
func (s *Session) Trigger() *Trigger  { return s.trigger }

// Buffer is nil for snapshot sessions.
func (s *Session) Buffer() *Buffer { return s.buffer }

// record adds a reading taken at now. It reports whether the frame was kept;
// scope sessions drop everything until the first trigger.
func (s *Session) record(values []float64, now time.Time) bool {
	if s.trigger != nil {
		if s.trigger.Observe(values[s.trigger.Channel()-1]) {
			s.buffer.Reset()
			s.bounds = Bounds{}
			s.started = now
		}
		if !s.trigger.Triggered() {
			return false
		}
	}
	f := Frame{Elapsed: now.Sub(s.started).Seconds(), Values: append([]float64(nil), values...)}
	s.buffer.Append(f)
	if s.mode == ModeLiveScroll {
		s.bounds = WindowBounds(s.buffer.Frames())
	} else {
		s.bounds.Include(f)
	}
	return true
}

// layout rebuilds the live figure's series and limits from the buffer.
func (s *Session) layout() {
	times := s.buffer.Times()
	series := make([]Series, s.channels)
	for c := range series {
		series[c] = Series{Name: s.labels[c], X: times, Y: s.buffer.Column(c)}
	}
	s.figure.Series = series
	if !s.bounds.Empty() {
		// only the scrolling window reserves legend headroom
		xlo, xhi, ylo, yhi := s.bounds.Limits(s.mode == ModeLiveScroll)
		s.figure.SetXLim(xlo, xhi)
		s.figure.SetYLim(ylo, yhi)
	}
}
