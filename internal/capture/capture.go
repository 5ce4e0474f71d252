// Package capture records the plain-text output of a command to a file.
package capture

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shaunagostinho/cellscope/internal/plot"
)

// Mode controls how much of the captured output is still shown.
type Mode int

const (
	// Verbose shows every captured line.
	Verbose Mode = iota
	// Quiet shows a running line count, at most once per reportInterval.
	Quiet
	// Silent shows only the final count.
	Silent
)

const reportInterval = time.Second

// Recorder is a plot.Output that appends every plain-text line to a file
// before (optionally) forwarding it. Diagnostics are never captured.
type Recorder struct {
	mu    sync.Mutex
	inner plot.Output
	mode  Mode
	clock clock.Clock
	log   *zap.SugaredLogger

	path       string
	file       *os.File
	writer     *bufio.Writer
	lines      int
	lastReport time.Time
}

var _ plot.Output = (*Recorder)(nil)

// Option customizes a Recorder.
type Option func(*Recorder)

// WithClock sets the clock used to pace Quiet progress reports.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l.Named("capture").Sugar()
		}
	}
}

// Open creates (or truncates) path and returns a Recorder that forwards to
// inner.
func Open(path string, mode Mode, inner plot.Output, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		inner: inner,
		mode:  mode,
		clock: clock.New(),
		log:   zap.NewNop().Sugar(),
		path:  path,
	}
	for _, o := range opts {
		o(r)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "mkdir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	r.file = f
	r.writer = bufio.NewWriter(f)
	r.lastReport = r.clock.Now()
	r.log.Infof("capturing to %s", path)
	return r, nil
}

// Text records line and forwards it according to the mode.
func (r *Recorder) Text(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		if _, err := r.writer.WriteString(line + "\n"); err != nil {
			r.log.Warnf("write failed: %v", err)
		} else {
			r.lines++
		}
	}

	switch r.mode {
	case Verbose:
		r.inner.Text(line)
	case Quiet:
		if now := r.clock.Now(); now.Sub(r.lastReport) >= reportInterval {
			r.lastReport = now
			r.inner.Text(r.summary())
		}
	}
}

// Diagnostic is forwarded unchanged.
func (r *Recorder) Diagnostic(line string) {
	r.inner.Diagnostic(line)
}

// Lines returns how many lines have been captured so far.
func (r *Recorder) Lines() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lines
}

// Path returns the capture file.
func (r *Recorder) Path() string { return r.path }

// Close flushes and closes the file. Quiet and Silent recorders finish by
// reporting the final count.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.writer.Flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	r.writer = nil

	if r.mode != Verbose {
		r.inner.Text(r.summary())
	}
	r.log.Infof("%s closed", r.summary())
	return errors.Wrapf(err, "close %s", r.path)
}

func (r *Recorder) summary() string {
	return fmt.Sprintf("%d lines captured.", r.lines)
}
