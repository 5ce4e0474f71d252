package device

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Raw REPL control sequences.
const (
	interrupt    = "\r\x03\x03"
	enterRawREPL = "\x01"
	execute      = "\r\x04"
)

// Command is the output of one piece of code run on a raw REPL. Output
// starts after the device's "OK" acknowledgement; the first EOT ends normal
// output and the second ends error output, after which Next returns io.EOF.
type Command struct {
	src   Provider
	acked bool
	marks int
}

// Exec sends code to the device and returns the source of its output. Links
// that do not accept code (recordings, demo streams without a REPL) are
// returned as is and are read until they end.
func Exec(p Provider, code string) (*Command, error) {
	s, ok := p.(Sender)
	if !ok {
		return &Command{src: p, acked: true, marks: -1}, nil
	}
	code = strings.ReplaceAll(code, "\r\n", "\n")
	if err := s.Send(code + execute); err != nil {
		return nil, errors.Wrapf(err, "%s: send", p.Name())
	}
	return &Command{src: p}, nil
}

// Next returns the next line of command output.
func (c *Command) Next(ctx context.Context) (string, error) {
	for {
		if c.marks >= 2 {
			return "", io.EOF
		}
		line, err := c.src.Next(ctx)
		if err != nil {
			return "", err
		}
		if c.marks < 0 {
			return line, nil
		}
		if !c.acked {
			// Skip the banner, the previous prompt and any end markers left
			// over from an interrupted command until the acknowledgement.
			i := strings.Index(line, "OK")
			if i < 0 {
				continue
			}
			c.acked = true
			line = line[i+2:]
			if line == "" {
				continue
			}
		}
		if line == EOT {
			c.marks++
			continue
		}
		return line, nil
	}
}
