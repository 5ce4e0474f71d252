package device

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/shaunagostinho/cellscope/internal/plot"
)

// Demo output kinds.
const (
	DemoReadings = "readings" // label-value lines for the live modes
	DemoArrays   = "arrays"   // array payloads and chart directives for snapshot mode
)

// DemoConfig holds configuration for the simulated board.
type DemoConfig struct {
	Kind       string `yaml:"kind" json:"kind"`
	Lines      int    `yaml:"lines" json:"lines"` // output lines per command
	IntervalMs int    `yaml:"interval_ms" json:"intervalMs"`
}

// DemoProvider simulates a board behind a raw REPL for development and
// testing. Every command it is sent produces a burst of telemetry framed the
// way a real raw REPL frames output.
type DemoProvider struct {
	cfg   DemoConfig
	clock clock.Clock
	rng   *rand.Rand

	mu      sync.Mutex
	pending []string
	walk    float64
	t       float64 // virtual time accumulator
	emitted int
}

func NewDemoProvider(cfg DemoConfig) *DemoProvider {
	if cfg.Kind == "" {
		cfg.Kind = DemoReadings
	}
	if cfg.Lines <= 0 {
		cfg.Lines = 200
	}
	return &DemoProvider{
		cfg:   cfg,
		clock: clock.New(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock replaces the pacing clock.
func (d *DemoProvider) WithClock(c clock.Clock) *DemoProvider {
	d.clock = c
	return d
}

func (d *DemoProvider) Name() string   { return "Demo (Simulated)" }
func (d *DemoProvider) Connect() error { return nil }
func (d *DemoProvider) Close() error   { return nil }

// Send starts a new command. The code itself is ignored.
func (d *DemoProvider) Send(data string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = []string{"OK"}
	d.emitted = 0
	return nil
}

func (d *DemoProvider) Next(ctx context.Context) (string, error) {
	d.mu.Lock()
	if len(d.pending) == 0 {
		if d.emitted < 0 {
			d.mu.Unlock()
			return "", io.EOF
		}
		d.refill()
	}
	line := d.pending[0]
	d.pending = d.pending[1:]
	pace := line != "OK" && line != EOT && d.cfg.IntervalMs > 0
	d.mu.Unlock()

	if pace {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-d.clock.After(time.Duration(d.cfg.IntervalMs) * time.Millisecond):
		}
	}
	return line, nil
}

// refill queues the next lines of the current command, or the end markers
// once it has produced its quota. Called with mu held.
func (d *DemoProvider) refill() {
	if d.emitted >= d.cfg.Lines {
		d.pending = []string{EOT, EOT}
		d.emitted = -1
		return
	}
	d.emitted++
	if d.cfg.Kind == DemoArrays {
		d.pending = d.arrayLines()
		return
	}
	d.t += 0.05
	d.walk += d.rng.Float64() - 0.5
	d.pending = []string{fmt.Sprintf("Random walk: %.3f just random: %.3f", d.walk, d.rng.Float64()*2)}
}

// arrayLines draws one noisy sine per call; the first call also sets the
// chart up and every tenth asks for an intermediate render.
func (d *DemoProvider) arrayLines() []string {
	const n = 64
	x := make([]float32, n)
	y := make([]float32, n)
	phase := float64(d.emitted) * 0.4
	for i := range x {
		x[i] = float32(i) / n * 2 * math.Pi
		y[i] = float32(math.Sin(float64(x[i])+phase) + (d.rng.Float64()-0.5)*0.1)
	}
	out := []string{plot.EncodeArrayPayload(fmt.Sprintf("{'label': 'trace %d'}", d.emitted), x, y, 1)}
	if d.emitted == 1 {
		// Chart settings only apply once a chart exists.
		out = append(out,
			plot.ControlPrefix+`title("Demo")`,
			plot.ControlPrefix+`xlabel("phase [rad]")`,
			plot.ControlPrefix+"grid()",
		)
	}
	if d.emitted%10 == 0 {
		out = append(out, plot.ControlPrefix+"--update")
	}
	return out
}
