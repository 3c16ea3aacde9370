package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/poller"
	"github.com/freshpots/freshpots/internal/potclient"
)

var errNoPot = errors.New("no pot found on the network")

// newManager creates the discovery manager used by the commands.
var newManager = discovery.NewManager

// findPot returns where the pot is: --host if given, else the first pot to
// resolve over mDNS within the discovery timeout. A pot that does not
// resolve is not connected; its last known address is never dialled.
func findPot(ctx context.Context) (*discovery.Endpoint, error) {
	if potHost != "" {
		return discovery.NewStatic(potHost, potPort).Current(), nil
	}

	m := newManager()
	m.ResolveTimeout = discoveryWait

	available := make(chan struct{}, 1)
	session, err := m.Start(ctx, serviceType, func() {
		select {
		case available <- struct{}{}:
		default:
		}
	}, func() {})
	if err != nil {
		return nil, err
	}
	defer m.Stop(session)

	wait := time.NewTimer(discoveryWait)
	defer wait.Stop()

	select {
	case <-available:
		if ep := m.Current(); ep != nil {
			remember(ep)
			return ep, nil
		}
	case <-wait.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if name, pot := registry.MostRecentPot(); pot != nil {
		logging.Info("Pot did not resolve",
			zap.String("instance", name),
			zap.String("last_host", pot.LastHost),
			zap.Time("last_seen", pot.LastSeen),
		)
	}
	return nil, errNoPot
}

// remember records ep in the registry. Failing to save is not fatal.
func remember(endpoints ...*discovery.Endpoint) {
	for _, ep := range endpoints {
		registry.RecordEndpoint(ep)
	}
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
}

// newClient creates a client for source with the effective timeouts.
func newClient(source potclient.EndpointSource) *potclient.Client {
	c := potclient.NewClient(source)
	c.ResponseDelay = responseDelay
	c.DialTimeout = dialTimeout
	return c
}

// startMonitor starts polling the pot in the background. With --host the
// poller runs at once; otherwise it follows mDNS availability. The returned
// function stops everything.
func startMonitor(ctx context.Context) (*poller.Poller, potclient.EndpointSource, func(), error) {
	interval := registry.Preferences.PollInterval()

	if potHost != "" {
		source := discovery.NewStatic(potHost, potPort)
		p := poller.New(newClient(source), interval)
		p.Start(ctx)
		return p, source, p.Stop, nil
	}

	m := newManager()
	m.ResolveTimeout = discoveryWait

	p := poller.New(newClient(m), interval)
	sup := poller.NewSupervisor(m, p, serviceType)
	if err := sup.Start(ctx); err != nil {
		return nil, nil, nil, err
	}
	return p, m, sup.Stop, nil
}

// endpointName describes source's current endpoint for display.
func endpointName(source potclient.EndpointSource) func() string {
	return func() string {
		if ep := source.Current(); ep != nil {
			return registry.DisplayName(ep.Instance) + " (" + ep.Address() + ")"
		}
		return ""
	}
}
