package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// fakeNetwork is an in-memory mDNS segment. Browses behave like zeroconf:
// each instance is sent once per browse, and the channel is closed when the
// context ends.
type fakeNetwork struct {
	mu        sync.Mutex
	services  map[string]*zeroconf.ServiceEntry
	noResolve map[string]bool
	announced map[string]int
	browses   int
	lookups   int
	browseErr error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		services:  make(map[string]*zeroconf.ServiceEntry),
		noResolve: make(map[string]bool),
		announced: make(map[string]int),
	}
}

func potEntry(instance, ip string, port int) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, DefaultServiceType, ServiceDomain)
	e.HostName = "coffeepot.local."
	e.Port = port
	e.TTL = 120
	e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	return e
}

func (n *fakeNetwork) add(e *zeroconf.ServiceEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.services[e.Instance] = e
}

func (n *fakeNetwork) remove(instance string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.services, instance)
}

// failResolve makes lookups for instance time out while browses still find it.
func (n *fakeNetwork) failResolve(instance string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.noResolve[instance] = true
}

// announce makes running browses report instance again.
func (n *fakeNetwork) announce(instance string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announced[instance]++
}

func (n *fakeNetwork) lookupCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lookups
}

func (n *fakeNetwork) browseCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.browses
}

type announcement struct {
	entry *zeroconf.ServiceEntry
	round int
}

func (n *fakeNetwork) snapshot() []announcement {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]announcement, 0, len(n.services))
	for _, e := range n.services {
		out = append(out, announcement{entry: e, round: n.announced[e.Instance]})
	}
	return out
}

func (n *fakeNetwork) factory() (Resolver, error) {
	return &fakeResolver{net: n}, nil
}

type fakeResolver struct {
	net *fakeNetwork
}

func (r *fakeResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r.net.mu.Lock()
	r.net.browses++
	err := r.net.browseErr
	r.net.mu.Unlock()
	if err != nil {
		close(entries)
		return err
	}

	go func() {
		defer close(entries)
		sent := make(map[string]int)
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			for _, a := range r.net.snapshot() {
				if round, ok := sent[a.entry.Instance]; ok && round == a.round {
					continue
				}
				select {
				case entries <- a.entry:
					sent[a.entry.Instance] = a.round
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (r *fakeResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r.net.mu.Lock()
	r.net.lookups++
	e, ok := r.net.services[instance]
	if r.net.noResolve[instance] {
		ok = false
	}
	r.net.mu.Unlock()

	go func() {
		defer close(entries)
		if ok {
			select {
			case entries <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return nil
}

var errNoMulticast = errors.New("no multicast interface")
