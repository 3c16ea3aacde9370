package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultServiceType is the mDNS service type the pot advertises
	DefaultServiceType = "_johnscoffeepot._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultPort is used when a service record carries no port
	DefaultPort = 80

	// DefaultScanTimeout is the default timeout for a one-shot scan
	DefaultScanTimeout = 5 * time.Second

	// DefaultResolveTimeout bounds a single resolution
	DefaultResolveTimeout = 5 * time.Second

	// DefaultRefreshInterval is how often an available pot is re-resolved
	DefaultRefreshInterval = 30 * time.Second
)

// Scanner performs one-shot scans for pots on the local network
type Scanner struct {
	// ServiceType is the mDNS service type to browse for
	ServiceType string

	// Timeout is the maximum time to wait for answers
	Timeout time.Duration

	// NewResolver creates the mDNS resolver (zeroconf by default)
	NewResolver ResolverFactory
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		ServiceType: DefaultServiceType,
		Timeout:     DefaultScanTimeout,
		NewResolver: NewZeroconfResolver,
	}
}

// Scan browses until the timeout and returns every pot that answered,
// one entry per service instance.
func (s *Scanner) Scan(ctx context.Context) ([]*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := s.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	endpoints := make([]*Endpoint, 0)
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			ep := endpointFromEntry(entry)
			if ep == nil || seen[ep.Instance] {
				continue
			}
			seen[ep.Instance] = true
			endpoints = append(endpoints, ep)
		}
	}()

	if err := resolver.Browse(ctx, s.ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// The resolver closes entries once ctx is done.
	<-ctx.Done()
	wg.Wait()

	return endpoints, nil
}

// ScanForPots is a convenience function to scan with a custom timeout
func ScanForPots(ctx context.Context, serviceType string, timeout time.Duration) ([]*Endpoint, error) {
	scanner := NewScanner()
	if serviceType != "" {
		scanner.ServiceType = serviceType
	}
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}
