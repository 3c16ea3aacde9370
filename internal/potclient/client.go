package potclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/discovery"
	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/protocol"
)

const (
	// DefaultResponseDelay is how long the client waits after writing before
	// it reads the reply
	DefaultResponseDelay = 500 * time.Millisecond

	// DefaultDialTimeout bounds opening the connection
	DefaultDialTimeout = 2 * time.Second

	// DefaultIOTimeout bounds writing the request
	DefaultIOTimeout = 2 * time.Second

	// DefaultDrainTimeout is how long the client keeps reading once the
	// response delay has passed
	DefaultDrainTimeout = 50 * time.Millisecond

	// maxReplySize caps how much is read back; replies are at most
	// protocol.MaxFrameSize bytes.
	maxReplySize = 64
)

// EndpointSource supplies the currently resolved pot, or nil when none is
// known. *discovery.Manager and *discovery.Static both satisfy it.
type EndpointSource interface {
	Current() *discovery.Endpoint
}

// Dialer opens connections to the pot. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client runs request/response transactions against the pot.
//
// Each transaction opens its own connection and closes it before returning.
// Nothing is pooled or serialised: concurrent transactions are independent.
type Client struct {
	// Source provides the pot address for each transaction
	Source EndpointSource

	// Dialer opens connections (default: *net.Dialer)
	Dialer Dialer

	// ResponseDelay is the wait used by Do
	ResponseDelay time.Duration

	// DialTimeout bounds opening the connection
	DialTimeout time.Duration

	// IOTimeout bounds writing the request
	IOTimeout time.Duration

	// DrainTimeout is how long to keep reading after the response delay
	DrainTimeout time.Duration

	seq atomic.Uint64
}

// NewClient creates a client that talks to whatever source currently resolves.
func NewClient(source EndpointSource) *Client {
	return &Client{
		Source:        source,
		Dialer:        &net.Dialer{},
		ResponseDelay: DefaultResponseDelay,
		DialTimeout:   DefaultDialTimeout,
		IOTimeout:     DefaultIOTimeout,
		DrainTimeout:  DefaultDrainTimeout,
	}
}

// Transact sends req, waits responseDelay, then calls callback with the
// decoded reply. It blocks for the whole exchange.
//
// callback always runs exactly once. Any failure (no pot resolved, dial,
// write, read, or a reply that does not fit req) produces an Unknown
// response; the cause is only logged.
func (c *Client) Transact(req protocol.Request, responseDelay time.Duration, callback func(protocol.Response)) {
	resp, _ := c.transact(req, responseDelay)
	if callback != nil {
		callback(resp)
	}
}

// Do is Transact with the client's ResponseDelay, returning the response.
func (c *Client) Do(req protocol.Request) protocol.Response {
	resp, _ := c.transact(req, c.ResponseDelay)
	return resp
}

func (c *Client) transact(req protocol.Request, responseDelay time.Duration) (protocol.Response, error) {
	t := &transaction{id: c.seq.Add(1), req: req, started: time.Now()}

	// One read: the whole transaction uses this endpoint even if discovery
	// replaces it meanwhile.
	var ep *discovery.Endpoint
	if c.Source != nil {
		ep = c.Source.Current()
	}
	if ep == nil {
		return t.fail(ClassifyError("resolve", "", ErrNoEndpoint))
	}
	t.endpoint = ep.Address()

	t.enter(StateConnecting)
	conn, err := c.dial(t.endpoint)
	if err != nil {
		return t.fail(ClassifyError("dial", t.endpoint, err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Debug("Failed to close pot connection", zap.String("endpoint", t.endpoint), zap.Error(err))
		}
	}()
	logging.LogConnection(t.endpoint, "connected")

	t.enter(StateSending)
	frame := protocol.EncodeRequest(req)
	logging.LogRawBytes("TX "+t.endpoint, frame)

	if c.IOTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.IOTimeout))
	}
	w := bufio.NewWriterSize(conn, protocol.MaxFrameSize)
	if _, err := w.Write(frame); err != nil {
		return t.fail(ClassifyError("write", t.endpoint, err))
	}
	if err := w.Flush(); err != nil {
		return t.fail(ClassifyError("write", t.endpoint, err))
	}

	// The reply has no length prefix or terminator; waiting is the framing.
	t.enter(StateWaiting)
	time.Sleep(responseDelay)

	t.enter(StateReceiving)
	data, err := drainAvailable(conn, c.DrainTimeout)
	if err != nil {
		return t.fail(ClassifyError("read", t.endpoint, err))
	}
	logging.LogRawBytes("RX "+t.endpoint, data)

	resp, err := protocol.DecodeResponse(bytes.NewReader(data), req.Kind)
	if err != nil {
		return t.fail(ClassifyError("decode", t.endpoint, err))
	}

	if resp.Kind == protocol.KindAcknowledge {
		t.enter(StateAcknowledged)
	} else {
		t.enter(StateDataReceived)
	}
	logging.LogTransaction(t.endpoint, req.String(), resp.String(), nil)
	return resp, nil
}

func (c *Client) dial(address string) (net.Conn, error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	ctx := context.Background()
	if c.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()
	}
	return dialer.DialContext(ctx, "tcp", address)
}

// drainAvailable reads whatever the pot has sent, stopping once the drain
// window closes or the pot hangs up. An empty result is not an error here;
// the decoder reports it.
func drainAvailable(conn net.Conn, window time.Duration) ([]byte, error) {
	if window <= 0 {
		window = DefaultDrainTimeout
	}
	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		return nil, err
	}

	buf := make([]byte, maxReplySize)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.Is(err, io.EOF) || (errors.As(err, &netErr) && netErr.Timeout()) {
			break
		}
		if n > 0 {
			// Keep what arrived before a reset; the pot often closes
			// straight after replying.
			break
		}
		return nil, err
	}
	return buf[:n], nil
}
