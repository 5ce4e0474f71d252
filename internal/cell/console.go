package cell

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shaunagostinho/cellscope/internal/capture"
	"github.com/shaunagostinho/cellscope/internal/device"
	"github.com/shaunagostinho/cellscope/internal/plot"
)

// Console executes cells one at a time against a device. Plot options set by
// a %plot magic last for that cell only.
type Console struct {
	mu       sync.Mutex
	dev      device.Provider
	sink     plot.Sink
	out      plot.Output
	defaults plot.Options
	clock    clock.Clock
	log      *zap.Logger
	width    int
	height   int
	capDir   string
}

// ConsoleOption customizes a Console.
type ConsoleOption func(*Console)

// WithDefaults sets the options a cell starts from.
func WithDefaults(o plot.Options) ConsoleOption {
	return func(c *Console) { c.defaults = o }
}

// WithClock sets the clock handed to the plot engine and capture files.
func WithClock(cl clock.Clock) ConsoleOption {
	return func(c *Console) { c.clock = cl }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ConsoleOption {
	return func(c *Console) {
		if l != nil {
			c.log = l
		}
	}
}

// WithFigureSize sets the pixel size of rendered figures.
func WithFigureSize(width, height int) ConsoleOption {
	return func(c *Console) { c.width, c.height = width, height }
}

// WithCaptureDir sets the directory relative %capture paths resolve against.
func WithCaptureDir(dir string) ConsoleOption {
	return func(c *Console) { c.capDir = dir }
}

// NewConsole creates a console. dev may be nil until a device is attached.
func NewConsole(dev device.Provider, sink plot.Sink, out plot.Output, opts ...ConsoleOption) *Console {
	c := &Console{
		dev:      dev,
		sink:     sink,
		out:      out,
		defaults: plot.DefaultOptions(),
		clock:    clock.New(),
		log:      zap.NewNop(),
		width:    plot.DefaultWidth,
		height:   plot.DefaultHeight,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Attach replaces the device cells are sent to.
func (c *Console) Attach(dev device.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dev = dev
}

// Defaults returns the options every cell starts from.
func (c *Console) Defaults() plot.Options { return c.defaults }

// Execute runs one cell. Problems with the cell itself (bad magics, no
// device) are reported on the console output and return nil; the returned
// error is reserved for link failures and cancellation.
func (c *Console) Execute(ctx context.Context, src string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cell := Split(src)
	opts := c.defaults
	var capTarget *CaptureTarget

	for _, magic := range cell.Magics {
		fields, err := Fields(magic)
		if err != nil || len(fields) == 0 {
			c.out.Diagnostic(fmt.Sprintf("Unparsable magic %q", magic))
			return nil
		}
		switch fields[0] {
		case "%plot":
			o, err := ParsePlot(fields[1:], c.defaults)
			if err != nil {
				c.out.Diagnostic(err.Error())
				return nil
			}
			opts = o
		case "%capture":
			target, err := ParseCapture(fields[1:])
			if err != nil {
				c.out.Diagnostic(err.Error())
				return nil
			}
			capTarget = &target
		default:
			c.out.Diagnostic(fmt.Sprintf("Unrecognized magic %s", fields[0]))
			return nil
		}
	}

	if c.dev == nil {
		c.out.Diagnostic("No device connected")
		return nil
	}
	if _, ok := c.dev.(device.Sender); ok && cell.Code == "" {
		return nil
	}

	out := c.out
	if capTarget != nil {
		path := capTarget.Path
		if c.capDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(c.capDir, path)
		}
		rec, err := capture.Open(path, capTarget.Mode, c.out,
			capture.WithClock(c.clock), capture.WithLogger(c.log))
		if err != nil {
			c.out.Diagnostic(err.Error())
			return nil
		}
		defer func() {
			if err := rec.Close(); err != nil {
				c.out.Diagnostic(err.Error())
			}
		}()
		out = rec
	}

	cmd, err := device.Exec(c.dev, cell.Code)
	if err != nil {
		return err
	}
	p := plot.NewProcessor(opts, c.sink, out,
		plot.WithClock(c.clock),
		plot.WithLogger(c.log),
		plot.WithFigureSize(c.width, c.height),
	)
	return errors.Wrap(plot.Run(ctx, p, cmd), c.dev.Name())
}
