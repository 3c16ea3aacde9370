package simulator

import (
	"sync"
	"time"

	"github.com/freshpots/freshpots/internal/protocol"
)

// Pot is the simulated firmware state machine.
//
//	Stop      → off
//	Brew      → on until stopped
//	Delay(d)  → on after d seconds
//	Warm(w)   → warming, off after w seconds
//	Schedule(d, w) → on after d seconds, then warming for w seconds
//
// Timers are kept as deadlines and reported as seconds remaining.
type Pot struct {
	mu sync.Mutex

	kind       protocol.Kind
	delayUntil time.Time
	warmUntil  time.Time
	warmFor    time.Duration

	now func() time.Time
}

// NewPot creates a pot that starts switched off. now supplies the clock;
// nil means time.Now.
func NewPot(now func() time.Time) *Pot {
	if now == nil {
		now = time.Now
	}
	return &Pot{kind: protocol.KindStop, now: now}
}

// Handle applies req and returns the firmware's reply.
func (p *Pot) Handle(req protocol.Request) protocol.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.advance(now)

	switch req.Kind {
	case protocol.KindQueryState:
		return p.report(now)

	case protocol.KindBrew:
		p.set(protocol.KindBrew)
	case protocol.KindStop:
		p.set(protocol.KindStop)
	case protocol.KindDelay:
		p.set(protocol.KindDelay)
		p.delayUntil = now.Add(seconds(req.Seconds1))
	case protocol.KindWarm:
		p.set(protocol.KindWarm)
		p.warmUntil = now.Add(seconds(req.Seconds1))
	case protocol.KindSchedule:
		p.set(protocol.KindSchedule)
		p.delayUntil = now.Add(seconds(req.Seconds1))
		p.warmFor = seconds(req.Seconds2)

	default:
		return protocol.Unknown()
	}
	return protocol.Response{Kind: protocol.KindAcknowledge}
}

// State returns what the pot is doing now.
func (p *Pot) State() protocol.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.advance(now)
	return p.report(now)
}

func (p *Pot) set(kind protocol.Kind) {
	p.kind = kind
	p.delayUntil = time.Time{}
	p.warmUntil = time.Time{}
	p.warmFor = 0
}

// advance moves through any timers that have expired.
func (p *Pot) advance(now time.Time) {
	for {
		switch p.kind {
		case protocol.KindDelay:
			if now.Before(p.delayUntil) {
				return
			}
			p.kind = protocol.KindBrew
		case protocol.KindSchedule:
			if now.Before(p.delayUntil) {
				return
			}
			p.kind = protocol.KindWarm
			p.warmUntil = p.delayUntil.Add(p.warmFor)
		case protocol.KindWarm:
			if now.Before(p.warmUntil) {
				return
			}
			p.kind = protocol.KindStop
		default:
			return
		}
	}
}

func (p *Pot) report(now time.Time) protocol.Response {
	resp := protocol.Response{Kind: p.kind}
	switch p.kind {
	case protocol.KindDelay:
		resp.Seconds1 = remaining(now, p.delayUntil)
	case protocol.KindWarm:
		resp.Seconds1 = remaining(now, p.warmUntil)
	case protocol.KindSchedule:
		resp.Seconds1 = remaining(now, p.delayUntil)
		resp.Seconds2 = protocol.Seconds(uint16(p.warmFor / time.Second))
	}
	return resp
}

func seconds(v *uint16) time.Duration {
	if v == nil {
		return 0
	}
	return time.Duration(*v) * time.Second
}

// remaining rounds up so a running timer never reports zero.
func remaining(now, until time.Time) *uint16 {
	d := until.Sub(now)
	if d <= 0 {
		return protocol.Seconds(0)
	}
	secs := (d + time.Second - 1) / time.Second
	if secs > 65535 {
		secs = 65535
	}
	return protocol.Seconds(uint16(secs))
}
