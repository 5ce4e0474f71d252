package plot

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Handle identifies a rendered artifact so later renders replace it in place.
type Handle string

// Sink turns a figure into a displayed artifact. Create is called once per
// session; Update re-renders the artifact behind an earlier handle. Both are
// synchronous.
type Sink interface {
	Create(fig *Figure) (Handle, error)
	Update(h Handle, fig *Figure) error
}

// Output receives text that is not plotted: plain device output and
// diagnostics. Lines carry no trailing newline.
type Output interface {
	Text(line string)
	Diagnostic(line string)
}

// LineSource yields device output one line at a time. Next returns io.EOF
// once the command's output is exhausted.
type LineSource interface {
	Next(ctx context.Context) (string, error)
}

// WriterOutput writes plain text to Out and diagnostics to Err.
type WriterOutput struct {
	mu  sync.Mutex
	Out io.Writer
	Err io.Writer
}

func (w *WriterOutput) Text(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.Out, line)
}

func (w *WriterOutput) Diagnostic(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.Err, line)
}

// SliceSource replays a fixed list of lines.
type SliceSource struct {
	Lines []string
	pos   int
}

func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.Lines) {
		return "", io.EOF
	}
	s.pos++
	return s.Lines[s.pos-1], nil
}
