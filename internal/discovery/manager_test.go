package discovery

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
)

const eventWait = 2 * time.Second

type eventLog struct {
	events     chan string
	inCallback atomic.Int32
	overlapped atomic.Bool
}

func newEventLog() *eventLog {
	return &eventLog{events: make(chan string, 32)}
}

func (l *eventLog) callback(name string, check func()) func() {
	return func() {
		if l.inCallback.Add(1) > 1 {
			l.overlapped.Store(true)
		}
		defer l.inCallback.Add(-1)
		if check != nil {
			check()
		}
		l.events <- name
	}
}

func (l *eventLog) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-l.events:
		if got != want {
			t.Fatalf("event = %q, want %q", got, want)
		}
	case <-time.After(eventWait):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func (l *eventLog) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case got := <-l.events:
		t.Fatalf("unexpected event %q", got)
	case <-time.After(within):
	}
}

func newTestManager(n *fakeNetwork) *Manager {
	m := NewManager()
	m.NewResolver = n.factory
	m.ResolveTimeout = 50 * time.Millisecond
	m.RefreshInterval = 0
	m.NewBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) }
	return m
}

// start wires callbacks that assert the endpoint invariant at delivery time.
func start(t *testing.T, m *Manager, log *eventLog) *Session {
	t.Helper()
	onAvailable := log.callback("available", func() {
		if m.Current() == nil {
			t.Error("onAvailable fired with no endpoint")
		}
	})
	onUnavailable := log.callback("unavailable", func() {
		if m.Current() != nil {
			t.Error("onUnavailable fired with an endpoint still set")
		}
	})

	s, err := m.Start(context.Background(), DefaultServiceType, onAvailable, onUnavailable)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { m.Stop(s) })
	return s
}

func TestManager_AvailableAfterResolve(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 8080))
	m := newTestManager(n)
	log := newEventLog()

	if m.Current() != nil {
		t.Fatal("Current() before Start should be nil")
	}

	start(t, m, log)
	log.expect(t, "available")

	ep := m.Current()
	if ep == nil {
		t.Fatal("Current() = nil after available")
	}
	if ep.Address() != "192.168.1.40:8080" {
		t.Errorf("Current().Address() = %v, want 192.168.1.40:8080", ep.Address())
	}
	if ep.Instance != "Kitchen Pot" {
		t.Errorf("Current().Instance = %v, want Kitchen Pot", ep.Instance)
	}
}

func TestManager_ResolveFailureIsUnavailable(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	n.failResolve("Kitchen Pot")
	m := newTestManager(n)
	log := newEventLog()

	start(t, m, log)
	log.expect(t, "unavailable")

	if m.Current() != nil {
		t.Errorf("Current() = %v after resolve failure, want nil", m.Current())
	}
}

func TestManager_LossAndRediscovery(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	m := newTestManager(n)
	m.RefreshInterval = 20 * time.Millisecond
	log := newEventLog()

	start(t, m, log)
	log.expect(t, "available")

	n.remove("Kitchen Pot")
	log.expect(t, "unavailable")
	if m.Current() != nil {
		t.Fatalf("Current() = %v after loss, want nil", m.Current())
	}

	n.add(potEntry("Kitchen Pot", "192.168.1.41", 80))
	log.expect(t, "available")
	if got := m.Current().Address(); got != "192.168.1.41:80" {
		t.Errorf("Current().Address() = %v, want 192.168.1.41:80", got)
	}
	if n.browseCount() < 2 {
		t.Errorf("browse count = %d, want a restart after loss", n.browseCount())
	}
	if log.overlapped.Load() {
		t.Error("callbacks ran concurrently")
	}
}

func TestManager_StopSilencesAndClears(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	m := newTestManager(n)
	log := newEventLog()

	s := start(t, m, log)
	log.expect(t, "available")

	m.Stop(s)

	if m.Current() != nil {
		t.Errorf("Current() = %v after Stop, want nil", m.Current())
	}

	n.add(potEntry("Hall Pot", "192.168.1.50", 80))
	n.remove("Kitchen Pot")
	log.expectNone(t, 100*time.Millisecond)

	// Second stop is a no-op.
	m.Stop(s)
}

func TestManager_StartTwice(t *testing.T) {
	n := newFakeNetwork()
	m := newTestManager(n)
	log := newEventLog()

	first := start(t, m, log)

	if _, err := m.Start(context.Background(), DefaultServiceType, nil, nil); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start() error = %v, want ErrSessionActive", err)
	}

	m.Stop(first)

	second, err := m.Start(context.Background(), DefaultServiceType, nil, nil)
	if err != nil {
		t.Fatalf("Start() after Stop error = %v", err)
	}
	// A stale handle must not stop the new session.
	m.Stop(first)
	if m.session != second {
		t.Error("stopping a stale session ended the active one")
	}
	m.Stop(second)
}

func TestManager_BrowseErrorRetries(t *testing.T) {
	n := newFakeNetwork()
	n.browseErr = errNoMulticast
	m := newTestManager(n)
	log := newEventLog()

	start(t, m, log)

	deadline := time.Now().Add(eventWait)
	for n.browseCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("browse count = %d, want retries", n.browseCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	log.expectNone(t, 20*time.Millisecond)
}

func TestManager_NewPotReplacesEndpoint(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	m := newTestManager(n)
	log := newEventLog()

	start(t, m, log)
	log.expect(t, "available")

	n.add(potEntry("Office Pot", "192.168.1.60", 80))
	log.expect(t, "available")

	if got := m.Current().Instance; got != "Office Pot" {
		t.Errorf("Current().Instance = %v, want Office Pot", got)
	}
}

func TestManager_UnrelatedResolveFailureThenRecovery(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	m := newTestManager(n)
	m.RefreshInterval = 30 * time.Millisecond
	log := newEventLog()

	start(t, m, log)
	log.expect(t, "available")

	n.failResolve("Hall Pot")
	n.add(potEntry("Hall Pot", "192.168.1.50", 80))
	log.expect(t, "unavailable")

	// The next refresh finds the kitchen pot again and must say so before
	// the endpoint is usable.
	log.expect(t, "available")
	if got := m.Current(); got == nil || got.Instance != "Kitchen Pot" {
		t.Fatalf("Current() = %v, want Kitchen Pot", got)
	}
	log.expectNone(t, 100*time.Millisecond)
}

func TestManager_EndpointFollowsLastEvent(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	m := newTestManager(n)
	m.RefreshInterval = 10 * time.Millisecond
	log := newEventLog()

	start(t, m, log)
	log.expect(t, "available")

	n.failResolve("Hall Pot")
	n.add(potEntry("Hall Pot", "192.168.1.50", 80))

	last := "available"
	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case last = <-log.events:
			continue
		case <-deadline:
		}
		break
	}
	if got := m.Current(); (last == "available") != (got != nil) {
		t.Errorf("last event %q but Current() = %v", last, got)
	}
}

func TestManager_ReannouncementSkipsResolve(t *testing.T) {
	n := newFakeNetwork()
	n.add(potEntry("Kitchen Pot", "192.168.1.40", 80))
	m := newTestManager(n)
	log := newEventLog()

	start(t, m, log)
	log.expect(t, "available")
	before := n.lookupCount()

	n.announce("Kitchen Pot")
	log.expectNone(t, 100*time.Millisecond)

	if after := n.lookupCount(); after != before {
		t.Errorf("lookups = %d after re-announcement, want %d", after, before)
	}
	if got := m.Current(); got == nil || got.Address() != "192.168.1.40:80" {
		t.Errorf("Current() = %v, want 192.168.1.40:80", got)
	}
}
