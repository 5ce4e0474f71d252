package plot

import (
	"context"
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Processor routes one command's device output through the decoders and
// into a Sink. It holds at most one Session, which Finish always drops.
type Processor struct {
	opts    Options
	sink    Sink
	out     Output
	clock   clock.Clock
	log     *zap.SugaredLogger
	width   int
	height  int
	session *Session
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithClock sets the clock used for frame timestamps.
func WithClock(c clock.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.log = l.Named("plot").Sugar()
		}
	}
}

// WithFigureSize sets the pixel size of created figures.
func WithFigureSize(width, height int) ProcessorOption {
	return func(p *Processor) { p.width, p.height = width, height }
}

func NewProcessor(opts Options, sink Sink, out Output, options ...ProcessorOption) *Processor {
	p := &Processor{
		opts:  opts,
		sink:  sink,
		out:   out,
		clock: clock.New(),
		log:   zap.NewNop().Sugar(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Options returns the mode selection the processor was built with.
func (p *Processor) Options() Options { return p.opts }

// Session returns the active session, or nil when none has started.
func (p *Processor) Session() *Session { return p.session }

func (p *Processor) State() State {
	if p.session == nil {
		return StateUninitialized
	}
	return p.session.State()
}

// HandleLine processes one line of device output.
func (p *Processor) HandleLine(line string) {
	if p.opts.Mode == ModeOff {
		p.out.Text(line)
		return
	}
	kind, body := Classify(line)
	switch {
	case kind == Control:
		p.handleDirective(line, body)
	case kind == Data && p.opts.Mode == ModeSnapshot:
		p.handleArray(line, body)
	case kind == Plain && p.opts.Mode != ModeSnapshot:
		p.handleReading(line)
	default:
		p.out.Text(line)
	}
}

func (p *Processor) handleDirective(line, body string) {
	s := p.session
	if s == nil {
		p.log.Debugf("no open chart, dropping %q", line)
		return
	}
	d, err := ParseDirective(body)
	if err != nil {
		p.log.Debugf("bad directive: %v", err)
		p.out.Diagnostic(line)
		return
	}
	if d.Update {
		p.render(s)
		return
	}
	op, err := d.Operation()
	if err != nil {
		p.out.Diagnostic(fmt.Sprintf("plot: %v", err))
		return
	}
	op.Apply(s.figure)
	p.log.Debugf("applied %s", d.Name)
}

func (p *Processor) handleArray(line, body string) {
	payload, err := DecodeArrayPayload(body)
	if err != nil {
		p.log.Debugf("%v", err)
		p.out.Text(line)
		return
	}
	s := p.session
	created := s == nil
	if created {
		s = newSnapshotSession(p.clock.Now(), NewFigure(p.width, p.height))
		p.session = s
		p.log.Debugf("snapshot session started")
	}
	s.figure.Plot(payload.X, payload.Y, payload.Style)
	if created {
		p.render(s)
	}
}

func (p *Processor) handleReading(line string) {
	r, err := DecodeLabelValues(line)
	if err != nil {
		if !errors.Is(err, ErrNoReadings) {
			p.log.Debugf("%v", err)
		}
		p.out.Text(line)
		return
	}
	now := p.clock.Now()
	s := p.session
	if s == nil {
		s = newLiveSession(p.opts, r, now, NewFigure(p.width, p.height))
		p.session = s
		p.log.Debugf("%s session started with channels %q", p.opts.Mode, s.labels)
	} else if len(r.Values) != s.channels {
		p.log.Debugf("%v", &DecodeError{Line: line, Err: errors.Errorf("%d channels, session has %d", len(r.Values), s.channels)})
		p.out.Text(line)
		return
	}
	if !s.record(r.Values, now) {
		return
	}
	s.layout()
	p.render(s)
}

// render creates the session's artifact on first use and updates it after
// that. A failed create is retried on the next render.
func (p *Processor) render(s *Session) {
	if s.handle == "" {
		h, err := p.sink.Create(s.figure)
		if err != nil {
			p.renderFailed(err)
			return
		}
		s.handle = h
		return
	}
	if err := p.sink.Update(s.handle, s.figure); err != nil {
		p.renderFailed(err)
	}
}

func (p *Processor) renderFailed(err error) {
	p.log.Warnf("render failed: %v", err)
	p.out.Diagnostic(fmt.Sprintf("plot: render failed: %v", err))
}

// Finish ends the command: a snapshot session gets its final render, then the
// session is dropped whatever happened before.
func (p *Processor) Finish() {
	s := p.session
	p.session = nil
	if s == nil {
		return
	}
	if s.mode == ModeSnapshot {
		p.render(s)
	}
	p.log.Debugf("%s session finished", s.mode)
}

// Run feeds src through p until the source is exhausted, fails, or ctx is
// done. Finish runs on every exit path, including panics.
func Run(ctx context.Context, p *Processor, src LineSource) error {
	defer p.Finish()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		p.HandleLine(line)
	}
}
