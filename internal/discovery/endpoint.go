package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Endpoint is a fully resolved pot address.
//
// Endpoints are immutable once published: the Manager swaps whole values,
// so a reader never sees a half-updated address.
type Endpoint struct {
	// Instance is the mDNS service instance name (e.g., "Kitchen Pot")
	Instance string

	// Hostname is the mDNS hostname (e.g., "coffeepot.local.")
	Hostname string

	// IP is the resolved address, IPv4 preferred
	IP string

	// Port is the TCP port the pot listens on
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// ResolvedAt is when resolution completed
	ResolvedAt time.Time
}

// Address returns host:port suitable for net.Dial
func (e *Endpoint) Address() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// String returns a human-readable string representation of the endpoint
func (e *Endpoint) String() string {
	if e.Instance == "" {
		return e.Address()
	}
	return fmt.Sprintf("%s at %s", e.Instance, e.Address())
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// endpointFromEntry converts a zeroconf entry to an Endpoint.
// Returns nil if the entry carries no usable address.
func endpointFromEntry(entry *zeroconf.ServiceEntry) *Endpoint {
	if entry == nil {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Endpoint{
		Instance:   entry.Instance,
		Hostname:   entry.HostName,
		IP:         ip,
		Port:       port,
		Metadata:   metadata,
		ResolvedAt: time.Now(),
	}
}

// Static is an endpoint source that always returns the same address.
// It backs the CLI's --host flag, where discovery is skipped.
type Static struct {
	endpoint *Endpoint
}

// NewStatic creates a fixed endpoint source for host:port.
func NewStatic(host string, port int) *Static {
	if port == 0 {
		port = DefaultPort
	}
	return &Static{endpoint: &Endpoint{
		Instance:   host,
		Hostname:   host,
		IP:         host,
		Port:       port,
		ResolvedAt: time.Now(),
	}}
}

// Current returns the fixed endpoint.
func (s *Static) Current() *Endpoint {
	return s.endpoint
}
