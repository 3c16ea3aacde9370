package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/freshpots/freshpots/internal/poller"
	"github.com/freshpots/freshpots/internal/protocol"
)

// Message types carried in the "type" field
const (
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

var (
	// ErrNotACommand is returned for kinds a client may not send
	ErrNotACommand = errors.New("not a pot command")

	// ErrTimerCount is returned when the timers do not match the command
	ErrTimerCount = errors.New("wrong number of timers for command")
)

// SnapshotMessage is the JSON form of a poller snapshot pushed to clients.
type SnapshotMessage struct {
	Type        string    `json:"type"`
	State       string    `json:"state"`
	Kind        string    `json:"kind"`
	Sent        string    `json:"sent"`
	Seconds1    *uint16   `json:"seconds1,omitempty"`
	Seconds2    *uint16   `json:"seconds2,omitempty"`
	Connected   bool      `json:"connected"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// NewSnapshotMessage converts a snapshot for the wire.
func NewSnapshotMessage(s poller.Snapshot) SnapshotMessage {
	return SnapshotMessage{
		Type:        TypeSnapshot,
		State:       s.State.String(),
		Kind:        s.Kind.String(),
		Sent:        s.Sent.String(),
		Seconds1:    s.Timer1,
		Seconds2:    s.Timer2,
		Connected:   s.Connected(),
		Description: s.Describe(),
		At:          s.At,
	}
}

// ErrorMessage reports a rejected command back to the client that sent it.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// CommandMessage is what a client sends to control the pot, for example
//
//	{"command": "schedule", "seconds1": 600, "seconds2": 1800}
type CommandMessage struct {
	Command  string  `json:"command"`
	Seconds1 *uint16 `json:"seconds1,omitempty"`
	Seconds2 *uint16 `json:"seconds2,omitempty"`
}

// Request validates the command and builds the pot request.
func (c CommandMessage) Request() (protocol.Request, error) {
	kind, err := protocol.ParseKindName(c.Command)
	if err != nil {
		return protocol.Request{}, err
	}
	if kind != protocol.KindQueryState && !kind.IsControl() {
		return protocol.Request{}, fmt.Errorf("%w: %s", ErrNotACommand, kind)
	}

	got := 0
	if c.Seconds1 != nil {
		got++
	}
	if c.Seconds2 != nil {
		got++
		if c.Seconds1 == nil {
			return protocol.Request{}, fmt.Errorf("%w: seconds2 without seconds1", ErrTimerCount)
		}
	}
	if want := kind.TimerCount(); got != want {
		return protocol.Request{}, fmt.Errorf("%w: %s takes %d, got %d", ErrTimerCount, kind, want, got)
	}

	return protocol.Request{Kind: kind, Seconds1: c.Seconds1, Seconds2: c.Seconds2}, nil
}
