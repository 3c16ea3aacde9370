package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/protocol"
)

const (
	// DefaultInterval is how often the pot is queried
	DefaultInterval = 5 * time.Second

	subscriberBuffer = 8
)

// Transactor runs one request against the pot. *potclient.Client satisfies it.
type Transactor interface {
	Do(req protocol.Request) protocol.Response
}

// Poller queries the pot on a fixed interval from a background goroutine
// and publishes each observation to its subscribers.
type Poller struct {
	// Client runs the transactions
	Client Transactor

	// Interval between queries; the first query runs immediately
	Interval time.Duration

	// Now supplies snapshot timestamps (default time.Now)
	Now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	last atomic.Pointer[Snapshot]
}

// New creates a poller for client.
func New(client Transactor, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		Client:   client,
		Interval: interval,
		Now:      time.Now,
		subs:     make(map[chan Snapshot]struct{}),
	}
}

// Start begins polling. It returns false if the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	logging.Debug("Starting poller", zap.Duration("interval", p.Interval))
	go p.run(ctx, done)
	return true
}

// Stop halts polling and waits for an in-flight query to finish. It is safe
// to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	logging.Debug("Stopped poller")
}

// Running reports whether the polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll runs one QueryState now and publishes the result.
func (p *Poller) Poll() Snapshot {
	return p.Send(protocol.QueryState())
}

// Send runs req on the calling goroutine and publishes the derived snapshot.
func (p *Poller) Send(req protocol.Request) Snapshot {
	resp := p.Client.Do(req)
	snap := SnapshotFromResponse(req, resp, p.now())
	p.publish(snap)
	return snap
}

// Command runs req on its own goroutine. The returned channel yields the
// resulting snapshot once, then closes.
func (p *Poller) Command(req protocol.Request) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		out <- p.Send(req)
	}()
	return out
}

// Subscribe returns a channel of published snapshots and a function that
// cancels the subscription. A subscriber that falls behind misses snapshots
// rather than blocking the poller.
func (p *Poller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	p.subsMu.Lock()
	if p.subs == nil {
		p.subs = make(map[chan Snapshot]struct{})
	}
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subsMu.Lock()
			delete(p.subs, ch)
			p.subsMu.Unlock()
			close(ch)
		})
	}
}

// Last returns the most recently published snapshot.
func (p *Poller) Last() (Snapshot, bool) {
	if s := p.last.Load(); s != nil {
		return *s, true
	}
	return Snapshot{}, false
}

// MarkNotConnected publishes a NotConnected snapshot.
func (p *Poller) MarkNotConnected() {
	p.publish(NotConnected(p.now()))
}

func (p *Poller) publish(snap Snapshot) {
	p.last.Store(&snap)

	logging.Debug("Pot snapshot",
		zap.Stringer("state", snap.State),
		zap.Stringer("sent", snap.Sent),
		zap.Stringer("kind", snap.Kind),
	)

	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- snap:
		default:
			logging.Debug("Dropping snapshot for slow subscriber")
		}
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
