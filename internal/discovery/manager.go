package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/logging"
)

var (
	// ErrSessionActive is returned by Start when the Manager already has a session.
	ErrSessionActive = errors.New("discovery session already active")

	// ErrResolveFailed is returned when a found service could not be resolved to an address.
	ErrResolveFailed = errors.New("service resolution failed")

	errBrowseClosed = errors.New("browse ended")
	errServiceLost  = errors.New("service lost")
)

// Manager owns the browse/resolve lifecycle for the pot and tracks the
// single currently resolved Endpoint.
//
// At any instant either the last delivered event was onAvailable and
// Current() is non-nil, or the last event was onUnavailable (or none yet)
// and Current() is nil. The endpoint is published before onAvailable fires
// and cleared before onUnavailable fires.
type Manager struct {
	// Domain is the mDNS domain to browse
	Domain string

	// ResolveTimeout bounds each resolution of a found service
	ResolveTimeout time.Duration

	// RefreshInterval is how often an available pot is re-resolved.
	// zeroconf never reports removals, so a failed re-resolve is how loss
	// is detected. Zero disables refreshing.
	RefreshInterval time.Duration

	// NewResolver creates the mDNS resolver (zeroconf by default)
	NewResolver ResolverFactory

	// NewBackOff creates the policy for restarting a browse after it ends
	NewBackOff func() backoff.BackOff

	endpoint atomic.Pointer[Endpoint]

	mu      sync.Mutex
	session *Session
}

// Session is the handle for one active discovery registration.
type Session struct {
	serviceType   string
	onAvailable   func()
	onUnavailable func()

	cancel context.CancelFunc
	done   chan struct{}
}

// ServiceType returns the service type the session browses for.
func (s *Session) ServiceType() string { return s.serviceType }

// NewManager creates a Manager with default settings.
func NewManager() *Manager {
	return &Manager{
		Domain:          ServiceDomain,
		ResolveTimeout:  DefaultResolveTimeout,
		RefreshInterval: DefaultRefreshInterval,
		NewResolver:     NewZeroconfResolver,
		NewBackOff:      defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0 // never give up while the session is active
	return b
}

// Current returns the resolved endpoint, or nil when no pot is available.
func (m *Manager) Current() *Endpoint {
	return m.endpoint.Load()
}

// Start begins browsing for serviceType. onAvailable fires only once a found
// service has been resolved to an address; onUnavailable fires when
// resolution fails or an available pot is lost. Both are called from a
// single goroutine, never concurrently, and must not call Stop.
func (m *Manager) Start(ctx context.Context, serviceType string, onAvailable, onUnavailable func()) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil, ErrSessionActive
	}
	if onAvailable == nil {
		onAvailable = func() {}
	}
	if onUnavailable == nil {
		onUnavailable = func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		serviceType:   serviceType,
		onAvailable:   onAvailable,
		onUnavailable: onUnavailable,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	m.session = s

	logging.Info("Starting service discovery",
		zap.String("service", serviceType),
		zap.String("domain", m.Domain),
	)

	go m.run(ctx, s)
	return s, nil
}

// Stop cancels browsing and any pending resolution, waits until no further
// callback can fire, then clears the endpoint. Stopping a session that is not
// the active one (or stopping twice) does nothing.
func (m *Manager) Stop(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s == nil || m.session != s {
		return
	}

	s.cancel()
	<-s.done
	m.endpoint.Store(nil)
	m.session = nil

	logging.Info("Stopped service discovery", zap.String("service", s.serviceType))
}

// run keeps a browse alive until the session is cancelled, restarting it
// with backoff whenever it ends.
func (m *Manager) run(ctx context.Context, s *Session) {
	defer close(s.done)

	b := m.NewBackOff()
	for {
		err := m.browse(ctx, s, b)
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			logging.Warn("Giving up on service discovery", zap.Error(err))
			return
		}
		logging.Debug("Restarting browse",
			zap.Duration("after", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// browse runs one browse until ctx ends, the resolver gives up, or the
// tracked pot is lost.
func (m *Manager) browse(ctx context.Context, s *Session, b backoff.BackOff) error {
	resolver, err := m.NewResolver()
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	defer drain(entries)

	if err := resolver.Browse(bctx, s.serviceType, m.Domain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	var (
		tracked *zeroconf.ServiceEntry
		refresh <-chan time.Time
		ticker  *time.Ticker
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				return errBrowseClosed
			}
			logging.LogDiscovery("found", entry.Instance, zap.String("host", entry.HostName))

			// A re-announcement of the pot already in use changes nothing.
			if cur := m.Current(); cur != nil && cur.Instance == entry.Instance {
				tracked = entry
				continue
			}

			ep, err := m.resolve(ctx, s.serviceType, entry.Instance)
			if err != nil {
				logging.LogDiscovery("resolve_failed", entry.Instance, zap.Error(err))
				m.setUnavailable(ctx, s)
				continue
			}

			tracked = entry
			b.Reset()
			m.setAvailable(ctx, s, ep)

			if m.RefreshInterval > 0 && ticker == nil {
				ticker = time.NewTicker(m.RefreshInterval)
				refresh = ticker.C
			}

		case <-refresh:
			if tracked == nil {
				continue
			}
			ep, err := m.resolve(ctx, s.serviceType, tracked.Instance)
			if err != nil {
				logging.LogDiscovery("lost", tracked.Instance, zap.Error(err))
				if m.Current() != nil {
					m.setUnavailable(ctx, s)
				}
				return errServiceLost
			}

			// The endpoint is only ever set together with onAvailable.
			switch prev := m.Current(); {
			case prev == nil:
				logging.LogDiscovery("recovered", tracked.Instance, zap.String("addr", ep.Address()))
				m.setAvailable(ctx, s, ep)
			case prev.Address() != ep.Address():
				logging.LogDiscovery("moved", tracked.Instance, zap.String("addr", ep.Address()))
				m.endpoint.Store(ep)
			}
		}
	}
}

// resolve looks up one service instance and returns its address.
func (m *Manager) resolve(ctx context.Context, serviceType, instance string) (*Endpoint, error) {
	resolver, err := m.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}

	rctx, cancel := context.WithTimeout(ctx, m.ResolveTimeout)
	defer cancel()

	results := make(chan *zeroconf.ServiceEntry)
	defer drain(results)

	if err := resolver.Lookup(rctx, instance, serviceType, m.Domain, results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}

	for {
		select {
		case entry, ok := <-results:
			if !ok {
				return nil, fmt.Errorf("%w: lookup for %q ended without an address", ErrResolveFailed, instance)
			}
			if ep := endpointFromEntry(entry); ep != nil {
				logging.LogDiscovery("resolved", instance, zap.String("addr", ep.Address()))
				return ep, nil
			}
		case <-rctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrResolveFailed, rctx.Err())
		}
	}
}

func (m *Manager) setAvailable(ctx context.Context, s *Session, ep *Endpoint) {
	if ctx.Err() != nil {
		return
	}
	m.endpoint.Store(ep)
	s.onAvailable()
}

func (m *Manager) setUnavailable(ctx context.Context, s *Session) {
	if ctx.Err() != nil {
		return
	}
	m.endpoint.Store(nil)
	s.onUnavailable()
}
