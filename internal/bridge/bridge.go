package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/poller"
	"github.com/freshpots/freshpots/internal/potclient"
	"github.com/freshpots/freshpots/internal/protocol"
	"github.com/freshpots/freshpots/internal/version"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	sendQueueSize   = 16
	shutdownTimeout = 5 * time.Second
)

// Commander is the part of the poller the bridge drives. *poller.Poller
// satisfies it.
type Commander interface {
	Command(req protocol.Request) <-chan poller.Snapshot
	Subscribe() (<-chan poller.Snapshot, func())
	Last() (poller.Snapshot, bool)
}

// Health is the body served on /healthz.
type Health struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Endpoint string           `json:"endpoint,omitempty"`
	Clients  int              `json:"clients"`
	Snapshot *SnapshotMessage `json:"snapshot,omitempty"`
}

// Server exposes the pot to browsers over a WebSocket.
type Server struct {
	Poller Commander

	// Source, if set, is reported on /healthz
	Source potclient.EndpointSource

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

// New creates a bridge for p.
func New(p Commander, source potclient.EndpointSource) *Server {
	return &Server{
		Poller: p,
		Source: source,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   maxMessageSize,
			WriteBufferSize:  4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions: make(map[*session]struct{}),
	}
}

// Handler returns the bridge's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe listens on addr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then closes every WebSocket session
// and shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.Info("Bridge listening", zap.String("addr", ln.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutting down bridge...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.closeSessions()
		err := httpServer.Shutdown(shutdownCtx)
		s.wg.Wait()
		<-errChan
		return err
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{Status: "ok", Version: version.Full(), Clients: s.Clients()}
	if s.Source != nil {
		if ep := s.Source.Current(); ep != nil {
			h.Endpoint = ep.Address()
		}
	}
	if last, ok := s.Poller.Last(); ok {
		msg := NewSnapshotMessage(last)
		h.Snapshot = &msg
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h); err != nil {
		logging.Warn("Failed to write health response", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := newSession(conn)
	if !s.add(sess) {
		_ = conn.Close()
		return
	}
	defer s.remove(sess)

	logging.LogConnection(sess.remoteAddr, "websocket_opened")

	snaps, unsubscribe := s.Poller.Subscribe()
	defer unsubscribe()

	if last, ok := s.Poller.Last(); ok {
		sess.queue(NewSnapshotMessage(last))
	}

	go s.readLoop(sess)
	s.writeLoop(sess, snaps)

	logging.LogConnection(sess.remoteAddr, "websocket_closed")
}

// readLoop turns inbound messages into pot commands until the peer goes away.
func (s *Server) readLoop(sess *session) {
	defer sess.close()

	conn := sess.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				logging.Info("WebSocket read error",
					zap.String("remote_addr", sess.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(sess.remoteAddr, "rx", data)

		var cmd CommandMessage
		if err := json.Unmarshal(data, &cmd); err != nil {
			sess.queue(ErrorMessage{Type: TypeError, Error: "invalid JSON: " + err.Error()})
			continue
		}
		req, err := cmd.Request()
		if err != nil {
			sess.queue(ErrorMessage{Type: TypeError, Error: err.Error()})
			continue
		}

		logging.Info("Command from bridge client",
			zap.String("remote_addr", sess.remoteAddr),
			zap.Stringer("request", req),
		)
		// The result reaches every client, this one included, via Subscribe.
		s.Poller.Command(req)
	}
}

// writeLoop is the only writer on the connection.
func (s *Server) writeLoop(sess *session, snaps <-chan poller.Snapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sess.conn.Close()
	}()

	for {
		select {
		case <-sess.closed:
			_ = sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge closing"),
				time.Now().Add(writeWait))
			return

		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := sess.writeJSON(NewSnapshotMessage(snap)); err != nil {
				return
			}

		case data := <-sess.send:
			if err := sess.write(data); err != nil {
				return
			}

		case <-ticker.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) add(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		return false
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) remove(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	s.wg.Done()
}

// closeSessions closes every session and refuses new ones.
func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		sess.close()
	}
	s.sessions = nil
}

type session struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		send:       make(chan []byte, sendQueueSize),
		closed:     make(chan struct{}),
	}
}

// queue marshals v for the write loop. It drops the message if the queue is full.
func (sess *session) queue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to encode bridge message", zap.Error(err))
		return
	}
	select {
	case sess.send <- data:
	default:
		logging.Warn("Bridge send queue full, dropping message",
			zap.String("remote_addr", sess.remoteAddr),
		)
	}
}

func (sess *session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sess.write(data)
}

func (sess *session) write(data []byte) error {
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug("WebSocket write failed",
			zap.String("remote_addr", sess.remoteAddr),
			zap.Error(err),
		)
		return err
	}
	logging.LogWebSocketMessage(sess.remoteAddr, "tx", data)
	return nil
}

func (sess *session) close() {
	sess.closeOnce.Do(func() { close(sess.closed) })
}
