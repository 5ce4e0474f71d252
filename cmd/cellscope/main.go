package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shaunagostinho/cellscope/internal/cell"
	"github.com/shaunagostinho/cellscope/internal/device"
	"github.com/shaunagostinho/cellscope/internal/plot"
	"github.com/shaunagostinho/cellscope/internal/render"
	"github.com/shaunagostinho/cellscope/internal/server"
	"github.com/shaunagostinho/cellscope/web"
)

// CLI is the command line.
type CLI struct {
	Config  string `help:"Path to config file." default:"/etc/cellscope/config.yaml" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Attach to the device and serve the browser console."`
	Replay ReplayCmd `cmd:"" help:"Run recorded device output through the plot engine."`
	Modes  ModesCmd  `cmd:"" help:"List plot modes."`
}

type globals struct {
	ctx context.Context
	cfg *server.Config
	log *zap.Logger
}

// ServeCmd runs the display host.
type ServeCmd struct {
	Demo   bool   `help:"Use the simulated device."`
	Listen string `help:"Override listen address (e.g. :8080)."`
}

func (c *ServeCmd) Run(g *globals) error {
	cfg := g.cfg
	if c.Demo {
		cfg.Device.Type = "demo"
	}
	if c.Listen != "" {
		cfg.Server.ListenAddr = c.Listen
	}
	opts, err := cfg.PlotOptions()
	if err != nil {
		return err
	}
	dev, err := newDevice(cfg.Device, g.log)
	if err != nil {
		return err
	}
	defer dev.Close()

	srv := server.New(cfg, web.FS, g.log)
	console := cell.NewConsole(nil, srv, srv,
		cell.WithDefaults(opts),
		cell.WithLogger(g.log),
		cell.WithFigureSize(cfg.Plot.Width, cfg.Plot.Height),
		cell.WithCaptureDir(cfg.Capture.Path),
	)
	srv.SetExecutor(console)

	// Non-blocking: the console reports "No device connected" until this succeeds.
	go func() {
		if err := device.ConnectWithRetry(g.ctx, dev.Name(), dev, cfg.Device.Retries, g.log); err == nil {
			console.Attach(dev)
		}
	}()

	return srv.Run(g.ctx)
}

// ReplayCmd feeds a transcript through the engine as one command and writes
// the rendered figures as PNG files.
type ReplayCmd struct {
	File  string   `arg:"" type:"existingfile" help:"Recorded device output."`
	Out   string   `short:"o" default:"." type:"path" help:"Directory figures are written to."`
	Magic []string `short:"m" sep:"none" help:"Magic line applied to the replay, e.g. '%plot --mode scope'. Repeatable."`
}

func (c *ReplayCmd) Run(g *globals) error {
	opts, err := g.cfg.PlotOptions()
	if err != nil {
		return err
	}
	tr := device.NewTranscript(c.File)
	if err := tr.Connect(); err != nil {
		return err
	}
	defer tr.Close()

	sink := render.NewFileSink(c.Out, g.log)
	out := &plot.WriterOutput{Out: os.Stdout, Err: os.Stderr}
	console := cell.NewConsole(tr, sink, out,
		cell.WithDefaults(opts),
		cell.WithLogger(g.log),
		cell.WithFigureSize(g.cfg.Plot.Width, g.cfg.Plot.Height),
		cell.WithCaptureDir(g.cfg.Capture.Path),
	)
	return console.Execute(g.ctx, strings.Join(c.Magic, "\n"))
}

// ModesCmd prints the plot modes.
type ModesCmd struct{}

func (c *ModesCmd) Run(g *globals) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Mode", "Aliases", "Behaviour")
	for _, m := range plot.Modes() {
		if err := table.Append([]string{m.String(), strings.Join(m.Aliases(), ", "), m.Describe()}); err != nil {
			return err
		}
	}
	return table.Render()
}

func newDevice(cfg server.DeviceConfig, log *zap.Logger) (device.Provider, error) {
	switch cfg.Type {
	case "serial":
		return device.NewSerial(cfg.Serial, log), nil
	case "socket":
		return device.NewSocket(cfg.Addr, log), nil
	case "webrepl":
		return device.NewWebREPL(cfg.WebREPL, log), nil
	case "demo", "":
		return device.NewDemoProvider(cfg.Demo), nil
	}
	return nil, errors.Errorf("unknown device type %q", cfg.Type)
}

func newLogger(verbose bool) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	var c CLI
	kctx := kong.Parse(&c,
		kong.Name("cellscope"),
		kong.Description("Plot live telemetry from MicroPython boards."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)

	log := newLogger(c.Verbose)
	defer log.Sync()
	log.Named("main").Info("cellscope starting")

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Named("main").Sugar().Infof("received %v, shutting down", sig)
		cancel()
	}()

	cfg := server.LoadConfig(c.Config, log)
	err := kctx.Run(&globals{ctx: ctx, cfg: cfg, log: log})
	kctx.FatalIfErrorf(err)
}
