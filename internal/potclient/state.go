package potclient

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/freshpots/freshpots/internal/logging"
	"github.com/freshpots/freshpots/internal/protocol"
)

// State is a step in a single transaction.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSending
	StateWaiting
	StateReceiving
	StateAcknowledged
	StateDataReceived
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateConnecting:   "connecting",
	StateSending:      "sending",
	StateWaiting:      "waiting",
	StateReceiving:    "receiving",
	StateAcknowledged: "acknowledged",
	StateDataReceived: "data_received",
	StateFailed:       "failed",
}

// String returns the state name
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// IsTerminal reports whether a transaction in s has finished.
func (s State) IsTerminal() bool {
	return s == StateAcknowledged || s == StateDataReceived || s == StateFailed
}

// transaction tracks one exchange for the debug trace.
type transaction struct {
	id       uint64
	req      protocol.Request
	endpoint string
	state    State
	started  time.Time
}

func (t *transaction) enter(next State) {
	logging.Debug("Transaction state",
		zap.Uint64("txn", t.id),
		zap.Stringer("from", t.state),
		zap.Stringer("to", next),
		zap.Duration("elapsed", time.Since(t.started)),
	)
	t.state = next
}

func (t *transaction) fail(err *TransactionError) (protocol.Response, error) {
	t.enter(StateFailed)
	unknown := protocol.Unknown()
	logging.LogTransaction(t.endpoint, t.req.String(), unknown.String(), err)
	return unknown, err
}
