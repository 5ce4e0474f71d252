package device

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WebREPLProvider talks to a board's WebREPL endpoint. Text frames do not
// line up with output lines, so frames are streamed through a pipe and
// re-split.
type WebREPLProvider struct {
	url      string
	password string
	log      *zap.SugaredLogger

	mu    sync.Mutex
	conn  *websocket.Conn
	pw    *io.PipeWriter
	lines *lineReader
}

// WebREPLConfig holds configuration for the WebREPL link.
type WebREPLConfig struct {
	URL      string `yaml:"url" json:"url"` // e.g. ws://192.168.4.1:8266/
	Password string `yaml:"password" json:"-"`
}

// NewWebREPL creates a new WebREPL link.
func NewWebREPL(cfg WebREPLConfig, log *zap.Logger) *WebREPLProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebREPLProvider{
		url:      cfg.URL,
		password: cfg.Password,
		log:      log.Named("webrepl").Sugar(),
	}
}

func (w *WebREPLProvider) Name() string { return "WebREPL " + w.url }

func (w *WebREPLProvider) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return errors.Wrapf(err, "webrepl: dial %s", w.url)
	}
	if w.password != "" {
		if err := w.login(conn); err != nil {
			conn.Close()
			return err
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(interrupt+enterRawREPL)); err != nil {
		conn.Close()
		return errors.Wrap(err, "webrepl: enter raw repl")
	}

	pr, pw := io.Pipe()
	w.conn = conn
	w.pw = pw
	w.lines = newLineReader(pr)
	go w.readLoop(conn, pw)
	w.log.Infof("connected to %s", w.url)
	return nil
}

// login waits for the password prompt and answers it.
func (w *WebREPLProvider) login(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	var seen strings.Builder
	for !strings.Contains(seen.String(), "Password:") {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "webrepl: waiting for password prompt")
		}
		seen.Write(data)
	}
	return errors.Wrap(conn.WriteMessage(websocket.TextMessage, []byte(w.password+"\r\n")), "webrepl: send password")
}

func (w *WebREPLProvider) readLoop(conn *websocket.Conn, pw *io.PipeWriter) {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		// Binary frames carry file transfers, which are not output.
		if typ != websocket.TextMessage {
			continue
		}
		if _, err := pw.Write(data); err != nil {
			return
		}
	}
}

func (w *WebREPLProvider) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lines != nil {
		w.lines.stop()
		w.lines = nil
	}
	if w.pw != nil {
		w.pw.Close()
		w.pw = nil
	}
	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

func (w *WebREPLProvider) Send(data string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return errors.New("webrepl: not connected")
	}
	return errors.Wrap(w.conn.WriteMessage(websocket.TextMessage, []byte(data)), "webrepl: write")
}

func (w *WebREPLProvider) Next(ctx context.Context) (string, error) {
	w.mu.Lock()
	lines := w.lines
	w.mu.Unlock()
	if lines == nil {
		return "", errors.New("webrepl: not connected")
	}
	return lines.next(ctx)
}
