package discovery

import (
	"context"

	"github.com/grandcat/zeroconf"
)

// Resolver is the subset of *zeroconf.Resolver the package uses.
// Both calls stream entries until ctx ends, then close the channel.
type Resolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// ResolverFactory creates a fresh Resolver. A zeroconf resolver shuts its
// sockets down when its first query's context ends, so each browse and each
// lookup gets its own.
type ResolverFactory func() (Resolver, error)

// NewZeroconfResolver is the default ResolverFactory.
func NewZeroconfResolver() (Resolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// drain consumes entries until the resolver closes the channel, so its
// goroutines never block on a send after we stop listening.
func drain(entries <-chan *zeroconf.ServiceEntry) {
	go func() {
		for range entries {
		}
	}()
}
