package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/protocol"
)

// Config holds the simulator configuration
type Config struct {
	Host string
	Port int

	// ReplyDelay is how long the firmware takes before answering
	ReplyDelay time.Duration

	// ReadTimeout bounds waiting for a request on a new connection
	ReadTimeout time.Duration

	// Advertise registers the pot over mDNS
	Advertise   bool
	Instance    string
	ServiceType string
}

// DefaultConfig returns a simulator listening on the pot's usual port.
func DefaultConfig() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Port:        discovery.DefaultPort,
		ReadTimeout: 2 * time.Second,
		Instance:    "FreshPots Simulator",
		ServiceType: discovery.DefaultServiceType,
	}
}

// Server is a TCP server that answers like the pot firmware: one request per
// connection, one reply, then close.
type Server struct {
	config      *Config
	pot         *Pot
	listener    net.Listener
	mdns        *zeroconf.Server
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a new Server instance serving pot.
func New(config *Config, pot *Pot) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if pot == nil {
		pot = NewPot(nil)
	}
	return &Server{
		config:      config,
		pot:         pot,
		activeConns: make(map[string]net.Conn),
	}
}

// Pot returns the simulated firmware state.
func (s *Server) Pot() *Pot { return s.pot }

// Listen binds the listening socket and, if configured, advertises it.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	logging.Info("Simulated pot listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("reply_delay", s.config.ReplyDelay),
	)

	if s.config.Advertise {
		if err := s.advertise(); err != nil {
			_ = listener.Close()
			return err
		}
	}
	return nil
}

// Addr returns the bound address, once listening.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) advertise() error {
	port := s.Addr().(*net.TCPAddr).Port
	server, err := zeroconf.Register(
		s.config.Instance,
		s.config.ServiceType,
		discovery.ServiceDomain,
		port,
		[]string{"model=simulator"},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	s.mdns = server

	logging.Info("Advertising pot over mDNS",
		zap.String("instance", s.config.Instance),
		zap.String("service", s.config.ServiceType),
		zap.Int("port", port),
	)
	return nil
}

// Start listens and serves until SIGINT/SIGTERM or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx)
}

// Serve accepts connections until ctx ends, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.acceptConnections()
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping simulator...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// acceptConnections accepts and handles incoming connections
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection answers a single request.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	req, err := protocol.DecodeRequest(bufio.NewReaderSize(conn, protocol.MaxFrameSize))
	var resp protocol.Response
	if err != nil {
		logging.Warn("Bad request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		if errors.Is(err, protocol.ErrNoData) {
			return
		}
		resp = protocol.Unknown()
	} else {
		resp = s.pot.Handle(req)
		logging.Debug("Handled request",
			zap.String("remote_addr", remoteAddr),
			zap.Stringer("request", req),
			zap.Stringer("response", resp),
		)
	}

	if s.config.ReplyDelay > 0 {
		time.Sleep(s.config.ReplyDelay)
	}

	frame := protocol.EncodeResponse(resp)
	logging.LogRawBytes("TX "+remoteAddr, frame)
	if _, err := conn.Write(frame); err != nil {
		logging.Error("Failed to send reply",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down simulator...")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
