package device

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SocketProvider talks to a raw REPL bridged onto a TCP port, such as a
// ser2net or esp-link serial bridge.
type SocketProvider struct {
	addr    string
	timeout time.Duration
	log     *zap.SugaredLogger

	mu    sync.Mutex
	conn  net.Conn
	lines *lineReader
}

// NewSocket creates a new TCP link to addr ("host:port").
func NewSocket(addr string, log *zap.Logger) *SocketProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &SocketProvider{
		addr:    addr,
		timeout: 5 * time.Second,
		log:     log.Named("socket").Sugar(),
	}
}

func (s *SocketProvider) Name() string { return "Socket " + s.addr }

func (s *SocketProvider) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := net.DialTimeout("tcp", s.addr, s.timeout)
	if err != nil {
		return errors.Wrapf(err, "socket: dial %s", s.addr)
	}
	if _, err := conn.Write([]byte(interrupt + enterRawREPL)); err != nil {
		conn.Close()
		return errors.Wrap(err, "socket: enter raw repl")
	}
	s.conn = conn
	s.lines = newLineReader(conn)
	s.log.Infof("connected to %s", s.addr)
	return nil
}

func (s *SocketProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines != nil {
		s.lines.stop()
		s.lines = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *SocketProvider) Send(data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errors.New("socket: not connected")
	}
	_, err := s.conn.Write([]byte(data))
	return errors.Wrap(err, "socket: write")
}

func (s *SocketProvider) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	lines := s.lines
	s.mu.Unlock()
	if lines == nil {
		return "", errors.New("socket: not connected")
	}
	return lines.next(ctx)
}
