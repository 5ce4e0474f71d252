package device

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialProvider talks to a board's raw REPL over a UART or USB CDC port.
type SerialProvider struct {
	portPath string
	baudRate int
	log      *zap.SugaredLogger

	mu    sync.Mutex
	port  serial.Port
	lines *lineReader
}

// SerialConfig holds configuration for the serial link.
type SerialConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
}

// NewSerial creates a new serial link.
func NewSerial(cfg SerialConfig, log *zap.Logger) *SerialProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200 // MicroPython default
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SerialProvider{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
		log:      log.Named("serial").Sugar(),
	}
}

func (s *SerialProvider) Name() string { return "Serial " + s.portPath }

func (s *SerialProvider) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.portPath, mode)
	if err != nil {
		return errors.Wrapf(err, "serial: failed to open %s", s.portPath)
	}
	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return errors.Wrap(err, "serial: set read timeout")
	}
	if _, err := port.Write([]byte(interrupt + enterRawREPL)); err != nil {
		port.Close()
		return errors.Wrap(err, "serial: enter raw repl")
	}
	s.port = port
	s.lines = newLineReader(port)
	s.log.Infof("connected to %s at %d baud", s.portPath, s.baudRate)
	return nil
}

func (s *SerialProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines != nil {
		s.lines.stop()
		s.lines = nil
	}
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		return err
	}
	return nil
}

func (s *SerialProvider) Send(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return errors.New("serial: not connected")
	}
	_, err := s.port.Write([]byte(data))
	return errors.Wrap(err, "serial: write")
}

func (s *SerialProvider) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	lines := s.lines
	s.mu.Unlock()
	if lines == nil {
		return "", errors.New("serial: not connected")
	}
	return lines.next(ctx)
}
