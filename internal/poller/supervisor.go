package poller

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/logging"
)

// ErrSupervisorRunning is returned by Start when already started.
var ErrSupervisorRunning = errors.New("supervisor already running")

// Discoverer is the discovery surface the Supervisor drives.
// *discovery.Manager satisfies it.
type Discoverer interface {
	Start(ctx context.Context, serviceType string, onAvailable, onUnavailable func()) (*discovery.Session, error)
	Stop(s *discovery.Session)
}

// Supervisor ties polling to discovery: polling runs while the pot is
// available and stops, with a NotConnected snapshot, when it is lost.
type Supervisor struct {
	Discovery   Discoverer
	Poller      *Poller
	ServiceType string

	mu      sync.Mutex
	ctx     context.Context
	session *discovery.Session
}

// NewSupervisor creates a Supervisor browsing for serviceType.
func NewSupervisor(d Discoverer, p *Poller, serviceType string) *Supervisor {
	if serviceType == "" {
		serviceType = discovery.DefaultServiceType
	}
	return &Supervisor{Discovery: d, Poller: p, ServiceType: serviceType}
}

// Start begins discovery. Polling starts once a pot resolves.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return ErrSupervisorRunning
	}

	s.ctx = ctx
	session, err := s.Discovery.Start(ctx, s.ServiceType, s.onAvailable, s.onUnavailable)
	if err != nil {
		return err
	}
	s.session = session
	return nil
}

// Stop ends discovery and polling and publishes NotConnected.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session != nil {
		s.Discovery.Stop(session)
	}
	s.Poller.Stop()
	s.Poller.MarkNotConnected()
}

func (s *Supervisor) onAvailable() {
	logging.Info("Pot available, polling", zap.String("service", s.ServiceType))

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.Poller.Start(ctx)
}

func (s *Supervisor) onUnavailable() {
	logging.Info("Pot unavailable", zap.String("service", s.ServiceType))

	s.Poller.Stop()
	s.Poller.MarkNotConnected()
}
