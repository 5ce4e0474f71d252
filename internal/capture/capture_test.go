package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOutput struct {
	text []string
	diag []string
}

func (o *recordingOutput) Text(line string)       { o.text = append(o.text, line) }
func (o *recordingOutput) Diagnostic(line string) { o.diag = append(o.diag, line) }

func TestRecorder(t *testing.T) {
	t.Run("verbose forwards and records every line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "out.txt")
		out := &recordingOutput{}
		r, err := Open(path, Verbose, out)
		require.NoError(t, err)

		r.Text("one")
		r.Text("two")
		r.Diagnostic("plot: bad")
		require.NoError(t, r.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", string(data))
		assert.Equal(t, []string{"one", "two"}, out.text)
		assert.Equal(t, []string{"plot: bad"}, out.diag)
		assert.Equal(t, 2, r.Lines())
	})

	t.Run("quiet reports a running count at most once a second", func(t *testing.T) {
		mock := clock.NewMock()
		out := &recordingOutput{}
		r, err := Open(filepath.Join(t.TempDir(), "out.txt"), Quiet, out, WithClock(mock))
		require.NoError(t, err)

		r.Text("a")
		r.Text("b")
		assert.Empty(t, out.text)

		mock.Add(time.Second)
		r.Text("c")
		r.Text("d")
		assert.Equal(t, []string{"3 lines captured."}, out.text)

		require.NoError(t, r.Close())
		assert.Equal(t, []string{"3 lines captured.", "4 lines captured."}, out.text)
	})

	t.Run("silent only reports the final count", func(t *testing.T) {
		mock := clock.NewMock()
		out := &recordingOutput{}
		r, err := Open(filepath.Join(t.TempDir(), "out.txt"), Silent, out, WithClock(mock))
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			r.Text("x")
			mock.Add(2 * time.Second)
		}
		require.NoError(t, r.Close())
		assert.Equal(t, []string{"5 lines captured."}, out.text)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		out := &recordingOutput{}
		r, err := Open(filepath.Join(t.TempDir(), "out.txt"), Silent, out)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.NoError(t, r.Close())
		assert.Equal(t, []string{"0 lines captured."}, out.text)
	})

	t.Run("fails on an unwritable path", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))
		_, err := Open(filepath.Join(blocker, "out.txt"), Verbose, &recordingOutput{})
		assert.Error(t, err)
	})
}
