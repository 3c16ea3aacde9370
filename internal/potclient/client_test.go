package potclient

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/protocol"
)

// fakePot accepts one request per connection and answers with reply.
type fakePot struct {
	ln    net.Listener
	reply func(req []byte) []byte

	mu       sync.Mutex
	received [][]byte

	hangups chan struct{}
	wg      sync.WaitGroup
}

func newFakePot(t *testing.T, reply func(req []byte) []byte) *fakePot {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	p := &fakePot{ln: ln, reply: reply, hangups: make(chan struct{}, 64)}
	go p.serve()
	t.Cleanup(func() {
		p.ln.Close()
		p.wg.Wait()
	})
	return p
}

func (p *fakePot) serve() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.wg.Add(1)
		go p.handle(conn)
	}
}

func (p *fakePot) handle(conn net.Conn) {
	defer p.wg.Done()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}

	p.mu.Lock()
	p.received = append(p.received, append([]byte(nil), buf[:n]...))
	p.mu.Unlock()

	if out := p.reply(buf[:n]); len(out) > 0 {
		_, _ = conn.Write(out)
	}

	// Wait for the client to hang up.
	if _, err := io.Copy(io.Discard, conn); err == nil {
		p.hangups <- struct{}{}
	}
}

func (p *fakePot) source() *discovery.Static {
	return discovery.NewStatic("127.0.0.1", p.ln.Addr().(*net.TCPAddr).Port)
}

func (p *fakePot) requests() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.received...)
}

func replyWith(b ...byte) func([]byte) []byte {
	return func([]byte) []byte { return b }
}

func newTestClient(source EndpointSource) *Client {
	c := NewClient(source)
	c.ResponseDelay = 10 * time.Millisecond
	c.DrainTimeout = 50 * time.Millisecond
	return c
}

type countingDialer struct {
	dials atomic.Int32
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.dials.Add(1)
	return (&net.Dialer{}).DialContext(ctx, network, address)
}

type absentSource struct{}

func (absentSource) Current() *discovery.Endpoint { return nil }

func TestClient_DelayScenario(t *testing.T) {
	pot := newFakePot(t, replyWith('K'))
	c := newTestClient(pot.source())

	var got protocol.Response
	calls := 0
	c.Transact(protocol.Delay(90), c.ResponseDelay, func(resp protocol.Response) {
		got = resp
		calls++
	})

	if calls != 1 {
		t.Fatalf("callback calls = %d, want 1", calls)
	}
	if !got.Equal(protocol.Response{Kind: protocol.KindAcknowledge}) {
		t.Errorf("response = %v, want Acknowledge", got)
	}

	reqs := pot.requests()
	if len(reqs) != 1 {
		t.Fatalf("pot received %d requests, want 1", len(reqs))
	}
	if want := []byte{0x44, 0x00, 0x5A}; !bytes.Equal(reqs[0], want) {
		t.Errorf("wire bytes = % x, want % x", reqs[0], want)
	}
}

func TestClient_QueryStateScenario(t *testing.T) {
	pot := newFakePot(t, replyWith(0x57, 0x00, 0x1E))
	c := newTestClient(pot.source())

	got := c.Do(protocol.QueryState())

	want := protocol.Response{Kind: protocol.KindWarm, Seconds1: protocol.Seconds(30)}
	if !got.Equal(want) {
		t.Errorf("Do(QueryState) = %v, want %v", got, want)
	}
	if got.Seconds2 != nil {
		t.Errorf("Seconds2 = %v, want absent", *got.Seconds2)
	}
	if reqs := pot.requests(); len(reqs) != 1 || !bytes.Equal(reqs[0], []byte{0x4D}) {
		t.Errorf("wire bytes = %v, want [4d]", reqs)
	}
}

func TestClient_ScheduleState(t *testing.T) {
	pot := newFakePot(t, replyWith('C', 0x01, 0x2C, 0x0E, 0x10))
	c := newTestClient(pot.source())

	got := c.Do(protocol.QueryState())

	want := protocol.Response{
		Kind:     protocol.KindSchedule,
		Seconds1: protocol.Seconds(300),
		Seconds2: protocol.Seconds(3600),
	}
	if !got.Equal(want) {
		t.Errorf("Do(QueryState) = %v, want %v", got, want)
	}
}

func TestClient_AbsentEndpointNeverDials(t *testing.T) {
	dialer := &countingDialer{}
	c := newTestClient(absentSource{})
	c.Dialer = dialer

	var got protocol.Response
	calls := 0
	c.Transact(protocol.Brew(), time.Hour, func(resp protocol.Response) {
		got = resp
		calls++
	})

	if calls != 1 {
		t.Fatalf("callback calls = %d, want 1", calls)
	}
	if !got.IsUnknown() {
		t.Errorf("response = %v, want Unknown", got)
	}
	if n := dialer.dials.Load(); n != 0 {
		t.Errorf("dials = %d, want 0", n)
	}

	_, err := c.transact(protocol.Brew(), 0)
	if !IsType(err, ErrTypeResolutionAbsent) {
		t.Errorf("transact() error = %v, want ResolutionAbsent", err)
	}
}

func TestClient_NilSource(t *testing.T) {
	c := newTestClient(nil)

	if got := c.Do(protocol.QueryState()); !got.IsUnknown() {
		t.Errorf("Do() = %v, want Unknown", got)
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := newTestClient(discovery.NewStatic("127.0.0.1", port))

	resp, err := c.transact(protocol.QueryState(), c.ResponseDelay)
	if !resp.IsUnknown() {
		t.Errorf("response = %v, want Unknown", resp)
	}
	if !IsType(err, ErrTypeConnectFailed) {
		t.Errorf("transact() error = %v, want ConnectFailed", err)
	}
}

func TestClient_NoReplyIsUnknown(t *testing.T) {
	pot := newFakePot(t, replyWith())
	c := newTestClient(pot.source())

	resp, err := c.transact(protocol.QueryState(), c.ResponseDelay)
	if !resp.IsUnknown() {
		t.Errorf("response = %v, want Unknown", resp)
	}
	if !IsType(err, ErrTypeTimeout) {
		t.Errorf("transact() error = %v, want Timeout", err)
	}
}

func TestClient_ControlWithoutAck(t *testing.T) {
	tests := []struct {
		name  string
		req   protocol.Request
		reply []byte
	}{
		{"brew answered with brew", protocol.Brew(), []byte{'B'}},
		{"stop answered with state", protocol.Stop(), []byte{'W', 0x00, 0x1E}},
		{"warm answered with unknown", protocol.Warm(60), []byte{'U'}},
		{"schedule answered with garbage", protocol.Schedule(1, 2), []byte{0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pot := newFakePot(t, replyWith(tt.reply...))
			c := newTestClient(pot.source())

			resp, err := c.transact(tt.req, c.ResponseDelay)
			if !resp.IsUnknown() {
				t.Errorf("response = %v, want Unknown", resp)
			}
			if !IsType(err, ErrTypeProtocolMismatch) {
				t.Errorf("transact() error = %v, want ProtocolMismatch", err)
			}
		})
	}
}

func TestClient_TruncatedState(t *testing.T) {
	pot := newFakePot(t, replyWith('D', 0x00))
	c := newTestClient(pot.source())

	if got := c.Do(protocol.QueryState()); !got.IsUnknown() {
		t.Errorf("Do() = %v, want Unknown", got)
	}
}

func TestClient_QueryStateIdempotent(t *testing.T) {
	pot := newFakePot(t, replyWith('D', 0x02, 0x58))
	c := newTestClient(pot.source())

	first := c.Do(protocol.QueryState())
	if first.IsUnknown() {
		t.Fatal("first Do() = Unknown")
	}
	for i := 0; i < 4; i++ {
		if got := c.Do(protocol.QueryState()); !got.Equal(first) {
			t.Errorf("Do() #%d = %v, want %v", i+2, got, first)
		}
	}
}

func TestClient_ConnectionPerTransaction(t *testing.T) {
	pot := newFakePot(t, replyWith('K'))
	c := newTestClient(pot.source())

	const n = 3
	for i := 0; i < n; i++ {
		c.Do(protocol.Stop())
	}

	for i := 0; i < n; i++ {
		select {
		case <-pot.hangups:
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d was not closed", i+1)
		}
	}
	if got := len(pot.requests()); got != n {
		t.Errorf("pot received %d requests, want %d", got, n)
	}
}

type countingSource struct {
	calls atomic.Int32
	ep    *discovery.Endpoint
}

func (s *countingSource) Current() *discovery.Endpoint {
	s.calls.Add(1)
	return s.ep
}

func TestClient_ReadsEndpointOnce(t *testing.T) {
	pot := newFakePot(t, replyWith('K'))
	src := &countingSource{ep: pot.source().Current()}
	c := newTestClient(src)

	c.Do(protocol.Brew())

	if n := src.calls.Load(); n != 1 {
		t.Errorf("Current() calls = %d, want 1", n)
	}
}

func TestClient_Defaults(t *testing.T) {
	c := NewClient(absentSource{})

	if c.ResponseDelay != DefaultResponseDelay {
		t.Errorf("ResponseDelay = %v, want %v", c.ResponseDelay, DefaultResponseDelay)
	}
	if c.DialTimeout != DefaultDialTimeout {
		t.Errorf("DialTimeout = %v, want %v", c.DialTimeout, DefaultDialTimeout)
	}
	if c.Dialer == nil {
		t.Error("Dialer = nil, want default dialer")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateAcknowledged, "acknowledged"},
		{StateFailed, "failed"},
		{State(42), "State(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %v, want %v", int(tt.state), got, tt.want)
		}
	}

	if StateWaiting.IsTerminal() {
		t.Error("StateWaiting.IsTerminal() = true, want false")
	}
	if !StateDataReceived.IsTerminal() {
		t.Error("StateDataReceived.IsTerminal() = false, want true")
	}
}
