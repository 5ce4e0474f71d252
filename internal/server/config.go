package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/cellscope/internal/device"
	"github.com/shaunagostinho/cellscope/internal/plot"
)

// DefaultConfigPath is used when no path is given.
const DefaultConfigPath = "/etc/cellscope/config.yaml"

// Config holds all cellscope configuration.
type Config struct {
	mu sync.RWMutex

	// Device link
	Device DeviceConfig `yaml:"device" json:"device"`

	// Plot defaults applied at the start of every cell
	Plot PlotConfig `yaml:"plot" json:"plot"`

	// Capture files
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// Server
	Server ServerConfig `yaml:"server" json:"server"`

	path string // file path for save/load
}

type DeviceConfig struct {
	Type    string               `yaml:"type" json:"type"` // "serial", "socket", "webrepl", "demo"
	Serial  device.SerialConfig  `yaml:"serial" json:"serial"`
	Addr    string               `yaml:"addr" json:"addr"` // host:port for "socket"
	WebREPL device.WebREPLConfig `yaml:"webrepl" json:"webrepl"`
	Demo    device.DemoConfig    `yaml:"demo" json:"demo"`
	Retries int                  `yaml:"retries" json:"retries"` // logged connect attempts before backing off quietly
}

type PlotConfig struct {
	Mode           string  `yaml:"mode" json:"mode"`
	TriggerLevel   float64 `yaml:"trigger_level" json:"triggerLevel"`
	TriggerEdge    string  `yaml:"trigger_edge" json:"triggerEdge"` // "rising" or "falling"
	TriggerChannel int     `yaml:"trigger_channel" json:"triggerChannel"`
	Width          int     `yaml:"width" json:"width"`   // px
	Height         int     `yaml:"height" json:"height"` // px
}

type CaptureConfig struct {
	Path string `yaml:"path" json:"path"` // directory relative capture files land in
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Type: "demo",
			Serial: device.SerialConfig{
				PortPath: "/dev/ttyUSB0",
				BaudRate: 115200,
			},
			Addr: "192.168.4.1:23",
			WebREPL: device.WebREPLConfig{
				URL: "ws://192.168.4.1:8266/",
			},
			Demo: device.DemoConfig{
				Kind:       device.DemoReadings,
				Lines:      200,
				IntervalMs: 50,
			},
			Retries: 10,
		},
		Plot: PlotConfig{
			Mode:           plot.DefaultMode.String(),
			TriggerLevel:   1.0,
			TriggerEdge:    plot.EdgeRising.String(),
			TriggerChannel: 1,
			Width:          plot.DefaultWidth,
			Height:         plot.DefaultHeight,
		},
		Capture: CaptureConfig{
			Path: ".",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string, log *zap.Logger) *Config {
	if log == nil {
		log = zap.NewNop()
	}
	l := log.Named("config").Sugar()

	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		l.Infof("no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		l.Warnf("error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
		cfg.path = path
	} else {
		l.Infof("loaded from %s", path)
	}

	// Load .env file from the same directory as the config, or from CWD
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		if loadEnvFile(ep) {
			l.Infof("loaded .env from %s", ep)
		}
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		// Strip surrounding quotes
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		// Only set if not already set in real env (real env takes precedence)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
	return true
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: DEVICE_TYPE, DEVICE_PORT, DEVICE_BAUD, DEVICE_ADDR, DEVICE_URL,
// DEVICE_PASSWORD, LISTEN_ADDR, PLOT_MODE, TRIGGER_LEVEL, TRIGGER_EDGE,
// TRIGGER_CHANNEL, CAPTURE_PATH
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DEVICE_TYPE"); v != "" {
		c.Device.Type = v
	}
	if v := os.Getenv("DEVICE_PORT"); v != "" {
		c.Device.Serial.PortPath = v
	}
	if v := os.Getenv("DEVICE_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Device.Serial.BaudRate = n
		}
	}
	if v := os.Getenv("DEVICE_ADDR"); v != "" {
		c.Device.Addr = v
	}
	if v := os.Getenv("DEVICE_URL"); v != "" {
		c.Device.WebREPL.URL = v
	}
	if v := os.Getenv("DEVICE_PASSWORD"); v != "" {
		c.Device.WebREPL.Password = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	// Plot defaults
	if v := os.Getenv("PLOT_MODE"); v != "" {
		c.Plot.Mode = v
	}
	if v := os.Getenv("TRIGGER_LEVEL"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			c.Plot.TriggerLevel = n
		}
	}
	if v := os.Getenv("TRIGGER_EDGE"); v != "" {
		c.Plot.TriggerEdge = v
	}
	if v := os.Getenv("TRIGGER_CHANNEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Plot.TriggerChannel = n
		}
	}
	if v := os.Getenv("CAPTURE_PATH"); v != "" {
		c.Capture.Path = v
	}
}

// PlotOptions converts the plot section into engine options.
func (c *Config) PlotOptions() (plot.Options, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opts := plot.DefaultOptions()
	mode, err := plot.ParseMode(c.Plot.Mode)
	if err != nil {
		return opts, errors.Wrap(err, "plot.mode")
	}
	edge, err := plot.ParseEdge(c.Plot.TriggerEdge)
	if err != nil {
		return opts, errors.Wrap(err, "plot.trigger_edge")
	}
	if c.Plot.TriggerChannel < 1 {
		return opts, errors.Errorf("plot.trigger_channel: must be at least 1, got %d", c.Plot.TriggerChannel)
	}
	opts.Mode = mode
	opts.TriggerLevel = c.Plot.TriggerLevel
	opts.TriggerEdge = edge
	opts.TriggerChannel = c.Plot.TriggerChannel
	return opts, nil
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		c.path = DefaultConfigPath
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrapf(os.WriteFile(c.path, data, 0644), "write %s", c.path)
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c)
}

// UpdateFromJSON applies a partial JSON config update by deep-merging
// incoming fields into the existing config. Fields not present in the
// incoming JSON are preserved (e.g. port paths, baud rates).
func (c *Config) UpdateFromJSON(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Marshal current config to a generic map
	currentBytes, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal current config")
	}
	var base map[string]interface{}
	if err := json.Unmarshal(currentBytes, &base); err != nil {
		return errors.Wrap(err, "unmarshal current config")
	}

	// Unmarshal incoming partial update to a map
	var patch map[string]interface{}
	if err := json.Unmarshal(data, &patch); err != nil {
		return errors.Wrap(err, "unmarshal patch")
	}

	// Deep merge patch into base
	deepMerge(base, patch)

	// Marshal merged result and unmarshal back into the config struct
	merged, err := json.Marshal(base)
	if err != nil {
		return errors.Wrap(err, "marshal merged config")
	}
	return json.Unmarshal(merged, c)
}

// deepMerge recursively merges src into dst. For nested maps, values are
// merged rather than replaced. For all other types, src overwrites dst.
func deepMerge(dst, src map[string]interface{}) {
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}
