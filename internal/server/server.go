package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/shaunagostinho/cellscope/internal/plot"
	"github.com/shaunagostinho/cellscope/internal/render"
)

// maxDisplays is how many artifacts are replayed to a newly connected client.
const maxDisplays = 8

// Server is the display host: it serves the web page and fans rendered
// artifacts and device text out to every connected WebSocket client.
type Server struct {
	cfg   *Config
	webFS fs.FS
	log   *zap.SugaredLogger

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	displaysMu sync.Mutex
	displays   []Message // most recent last

	render func(*plot.Figure) ([]byte, error)

	exec    Executor
	execCtx context.Context
}

// Executor runs a cell submitted from the browser.
type Executor interface {
	Execute(ctx context.Context, src string) error
}

// request is a message sent by a browser client.
type request struct {
	Type string `json:"type"` // "execute_request"
	Code string `json:"code"`
}

var (
	_ plot.Sink   = (*Server)(nil)
	_ plot.Output = (*Server)(nil)
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Message is the JSON structure sent to all WebSocket clients. Types follow
// notebook display semantics: display_data creates an artifact,
// update_display_data replaces the one with the same display_id, stream
// carries text.
type Message struct {
	Type      string            `json:"type"`
	DisplayID string            `json:"display_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Metadata  *ImageMetadata    `json:"metadata,omitempty"`
	Name      string            `json:"name,omitempty"` // "stdout" or "stderr"
	Text      string            `json:"text,omitempty"`
	Stamp     int64             `json:"stamp"` // Unix ms
}

// ImageMetadata is the displayed size of an artifact.
type ImageMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// New creates a new Server.
func New(cfg *Config, webFS fs.FS, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		webFS:   webFS,
		log:     log.Named("server").Sugar(),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		render:  render.PNG,
		execCtx: context.Background(),
	}
}

// SetExecutor routes execute requests from browser clients to e.
func (s *Server) SetExecutor(e Executor) {
	s.exec = e
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.webFS != nil {
		mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	}
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/config", s.handleConfig)
	return mux
}

// Run serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.execCtx = ctx
	s.log.Infof("listening on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Create renders fig and announces it as a new display.
func (s *Server) Create(fig *plot.Figure) (plot.Handle, error) {
	h := plot.Handle(uuid.NewString())
	msg, err := s.displayMessage("display_data", h, fig)
	if err != nil {
		return "", err
	}
	s.displaysMu.Lock()
	s.displays = append(s.displays, msg)
	if len(s.displays) > maxDisplays {
		s.displays = s.displays[len(s.displays)-maxDisplays:]
	}
	s.broadcast(msg)
	s.displaysMu.Unlock()
	return h, nil
}

// Update re-renders the display behind h.
func (s *Server) Update(h plot.Handle, fig *plot.Figure) error {
	msg, err := s.displayMessage("update_display_data", h, fig)
	if err != nil {
		return err
	}
	s.displaysMu.Lock()
	for i := range s.displays {
		if s.displays[i].DisplayID == string(h) {
			s.displays[i].Data = msg.Data
			s.displays[i].Metadata = msg.Metadata
			s.displays[i].Stamp = msg.Stamp
		}
	}
	s.broadcast(msg)
	s.displaysMu.Unlock()
	return nil
}

// Text forwards plain device output.
func (s *Server) Text(line string) {
	s.broadcast(Message{Type: "stream", Name: "stdout", Text: line + "\n", Stamp: time.Now().UnixMilli()})
}

// Diagnostic forwards engine diagnostics.
func (s *Server) Diagnostic(line string) {
	s.broadcast(Message{Type: "stream", Name: "stderr", Text: line + "\n", Stamp: time.Now().UnixMilli()})
}

func (s *Server) displayMessage(typ string, h plot.Handle, fig *plot.Figure) (Message, error) {
	png, err := s.render(fig)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type:      typ,
		DisplayID: string(h),
		Data:      map[string]string{"image/png": base64.StdEncoding.EncodeToString(png)},
		Metadata:  &ImageMetadata{Width: fig.Width, Height: fig.Height},
		Stamp:     time.Now().UnixMilli(),
	}, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("ws upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	// Create and Update store and broadcast under displaysMu, so replaying and
	// joining under it delivers every display exactly once.
	s.displaysMu.Lock()
	for _, msg := range s.displays {
		if data, err := json.Marshal(msg); err == nil {
			select {
			case client.send <- data:
			default:
			}
		}
	}
	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.displaysMu.Unlock()

	s.log.Infof("client connected (%d total)", n)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive and execute requests)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			n := len(s.clients)
			close(client.send)
			s.clientsMu.Unlock()
			s.log.Infof("client disconnected (%d total)", n)
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleRequest(data)
		}
	}()
}

func (s *Server) handleRequest(data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil || req.Type != "execute_request" {
		return
	}
	if s.exec == nil {
		s.Diagnostic("No device connected")
		return
	}
	go func() {
		s.broadcast(Message{Type: "status", Text: "busy", Stamp: time.Now().UnixMilli()})
		if err := s.exec.Execute(s.execCtx, req.Code); err != nil {
			s.log.Warnf("execute failed: %v", err)
			s.Diagnostic(err.Error())
		}
		s.broadcast(Message{Type: "status", Text: "idle", Stamp: time.Now().UnixMilli()})
	}()
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data, err := s.cfg.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", 400)
			return
		}
		if err := s.cfg.UpdateFromJSON(body); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if err := s.cfg.Save(); err != nil {
			s.log.Warnf("config save failed: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))

	default:
		http.Error(w, "method not allowed", 405)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}
