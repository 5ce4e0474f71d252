package device

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// TranscriptProvider replays recorded device output from a file, one command
// per file. It does not accept code.
type TranscriptProvider struct {
	path string

	mu    sync.Mutex
	file  *os.File
	lines *lineReader
}

func NewTranscript(path string) *TranscriptProvider {
	return &TranscriptProvider{path: path}
}

func (t *TranscriptProvider) Name() string { return "Transcript " + t.path }

func (t *TranscriptProvider) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.Open(t.path)
	if err != nil {
		return errors.Wrapf(err, "transcript: open %s", t.path)
	}
	t.file = f
	t.lines = newLineReader(f)
	return nil
}

func (t *TranscriptProvider) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lines != nil {
		t.lines.stop()
		t.lines = nil
	}
	if t.file != nil {
		err := t.file.Close()
		t.file = nil
		return err
	}
	return nil
}

func (t *TranscriptProvider) Next(ctx context.Context) (string, error) {
	t.mu.Lock()
	lines := t.lines
	t.mu.Unlock()
	if lines == nil {
		return "", errors.New("transcript: not open")
	}
	return lines.next(ctx)
}
