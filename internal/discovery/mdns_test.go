package discovery

import (
	"context"
	"errors"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestEndpointFromEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "pot with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Kitchen Pot"},
				HostName:      "coffeepot.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
			},
			wantIP:   "192.168.4.16",
			wantPort: 80,
		},
		{
			name: "pot with custom port",
			entry: &zeroconf.ServiceEntry{
				HostName: "coffeepot.local.",
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.100")},
			},
			wantIP:   "192.168.1.100",
			wantPort: 8080,
		},
		{
			name: "no port specified (should default to 80)",
			entry: &zeroconf.ServiceEntry{
				HostName: "coffeepot.local.",
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantIP:   "172.16.0.1",
			wantPort: DefaultPort,
		},
		{
			name: "IPv6 only pot",
			entry: &zeroconf.ServiceEntry{
				HostName: "coffeepot.local.",
				Port:     80,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name: "both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				HostName: "coffeepot.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "coffeepot.local.",
				Port:     80,
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := endpointFromEntry(tt.entry)

			if tt.wantNil {
				if ep != nil {
					t.Errorf("endpointFromEntry() = %v, want nil", ep)
				}
				return
			}
			if ep == nil {
				t.Fatal("endpointFromEntry() = nil, want endpoint")
			}
			if ep.IP != tt.wantIP {
				t.Errorf("ep.IP = %v, want %v", ep.IP, tt.wantIP)
			}
			if ep.Port != tt.wantPort {
				t.Errorf("ep.Port = %v, want %v", ep.Port, tt.wantPort)
			}
			if ep.Hostname != tt.entry.HostName {
				t.Errorf("ep.Hostname = %v, want %v", ep.Hostname, tt.entry.HostName)
			}
			if time.Since(ep.ResolvedAt) > time.Second {
				t.Errorf("ep.ResolvedAt is not recent: %v", ep.ResolvedAt)
			}
		})
	}
}

func TestEndpointFromEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "coffeepot.local.",
		Port:     80,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     []string{"model=johns", "fw=2.1", "flag"},
	}

	ep := endpointFromEntry(entry)
	if ep == nil {
		t.Fatal("endpointFromEntry() = nil, want endpoint")
	}

	want := map[string]string{
		"model": "johns",
		"fw":    "2.1",
		"flag":  "",
	}
	if len(ep.Metadata) != len(want) {
		t.Errorf("ep.Metadata has %d entries, want %d", len(ep.Metadata), len(want))
	}
	for key, value := range want {
		if got := ep.GetMetadata(key); got != value {
			t.Errorf("GetMetadata(%q) = %q, want %q", key, got, value)
		}
	}
	if got := ep.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}
}

func TestEndpoint_Address(t *testing.T) {
	tests := []struct {
		ep   Endpoint
		want string
	}{
		{Endpoint{IP: "192.168.1.40", Port: 80}, "192.168.1.40:80"},
		{Endpoint{IP: "fe80::1", Port: 8080}, "[fe80::1]:8080"},
	}

	for _, tt := range tests {
		if got := tt.ep.Address(); got != tt.want {
			t.Errorf("Address() = %v, want %v", got, tt.want)
		}
	}
}

func TestEndpoint_String(t *testing.T) {
	named := &Endpoint{Instance: "Kitchen Pot", IP: "10.0.0.2", Port: 80}
	if got := named.String(); got != "Kitchen Pot at 10.0.0.2:80" {
		t.Errorf("String() = %v, want Kitchen Pot at 10.0.0.2:80", got)
	}

	bare := &Endpoint{IP: "10.0.0.2", Port: 80}
	if got := bare.String(); got != "10.0.0.2:80" {
		t.Errorf("String() = %v, want 10.0.0.2:80", got)
	}
}

func TestNewStatic(t *testing.T) {
	s := NewStatic("10.0.0.9", 0)
	ep := s.Current()
	if ep == nil {
		t.Fatal("Current() = nil, want endpoint")
	}
	if ep.Address() != "10.0.0.9:80" {
		t.Errorf("Address() = %v, want 10.0.0.9:80", ep.Address())
	}
	if s.Current() != ep {
		t.Error("Current() should return the same endpoint every call")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if scanner.ServiceType != DefaultServiceType {
		t.Errorf("scanner.ServiceType = %v, want %v", scanner.ServiceType, DefaultServiceType)
	}
}

func TestScanner_Scan(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	n.add(potEntry("Office Pot", "192.168.1.41", 80))

	noAddr := zeroconf.NewServiceEntry("Broken Pot", DefaultServiceType, ServiceDomain)
	n.add(noAddr)

	scanner := NewScanner()
	scanner.Timeout = 100 * time.Millisecond
	scanner.NewResolver = n.factory

	endpoints, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var names []string
	for _, ep := range endpoints {
		names = append(names, ep.Instance)
	}
	sort.Strings(names)

	want := []string{"Kitchen Pot", "Office Pot"}
	if len(names) != len(want) {
		t.Fatalf("Scan() found %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Scan()[%d] = %v, want %v", i, names[i], want[i])
		}
	}
}

func TestScanner_ScanBrowseError(t *testing.T) {
	n := newFakeNetwork()
	n.browseErr = errNoMulticast

	scanner := NewScanner()
	scanner.Timeout = 50 * time.Millisecond
	scanner.NewResolver = n.factory

	if _, err := scanner.Scan(context.Background()); !errors.Is(err, errNoMulticast) {
		t.Errorf("Scan() error = %v, want %v", err, errNoMulticast)
	}
}

func TestScanner_ScanResolverError(t *testing.T) {
	scanner := NewScanner()
	scanner.NewResolver = func() (Resolver, error) { return nil, errNoMulticast }

	if _, err := scanner.Scan(context.Background()); !errors.Is(err, errNoMulticast) {
		t.Errorf("Scan() error = %v, want %v", err, errNoMulticast)
	}
}

// Live mDNS scans need a multicast-capable network and are run by hand with
// the freshpots scan command.
