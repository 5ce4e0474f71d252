package device

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

// EOT is the raw REPL end-of-output marker. It is delivered as a line of its
// own so a command's end is seen even when the device does not finish with a
// newline.
const EOT = "\x04"

const maxLineSize = 4 << 20

// splitLines is a bufio.SplitFunc that splits on '\n', strips a trailing
// '\r', and emits every EOT byte as a separate token.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	nl := bytes.IndexByte(data, '\n')
	eot := bytes.IndexByte(data, EOT[0])
	switch {
	case eot == 0:
		return 1, data[:1], nil
	case eot > 0 && (nl < 0 || eot < nl):
		return eot, bytes.TrimSuffix(data[:eot], []byte("\r")), nil
	case nl >= 0:
		return nl + 1, bytes.TrimSuffix(data[:nl], []byte("\r")), nil
	}
	if atEOF {
		return len(data), bytes.TrimSuffix(data, []byte("\r")), nil
	}
	return 0, nil, nil
}

// lineReader pumps an io.Reader into a channel of lines from a goroutine so
// that Next can honour context cancellation on links with blocking reads.
type lineReader struct {
	ch   chan string
	quit chan struct{}
	once sync.Once
	err  error // valid once ch is closed
}

func newLineReader(r io.Reader) *lineReader {
	l := &lineReader{
		ch:   make(chan string, 256),
		quit: make(chan struct{}),
	}
	go l.run(r)
	return l
}

func (l *lineReader) run(r io.Reader) {
	defer close(l.ch)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	sc.Split(splitLines)
	for sc.Scan() {
		select {
		case l.ch <- sc.Text():
		case <-l.quit:
			return
		}
	}
	l.err = sc.Err()
}

func (l *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.ch:
		if !ok {
			if l.err != nil {
				return "", l.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// stop releases the pump goroutine. The underlying reader must be closed
// separately to unblock a pending read.
func (l *lineReader) stop() {
	l.once.Do(func() { close(l.quit) })
}
