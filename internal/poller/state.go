package poller

import (
	"fmt"
	"time"

	"github.com/freshpots/freshpots/internal/protocol"
	"github.com/freshpots/freshpots/internal/timer"
)

// State is what the pot is doing, as far as the client can tell.
type State int

const (
	StateNotConnected State = iota
	StateOff
	StateOn
	StateDelaying
	StateWarming
	StateScheduled
)

var stateNames = map[State]string{
	StateNotConnected: "not connected",
	StateOff:          "off",
	StateOn:           "on",
	StateDelaying:     "delaying",
	StateWarming:      "warming",
	StateScheduled:    "scheduled",
}

// String returns the state name
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// StateFromKind maps the kind the pot reports (or acknowledged) to a state.
// Kinds that are not pot states, Unknown included, mean not connected.
func StateFromKind(k protocol.Kind) State {
	switch k {
	case protocol.KindBrew:
		return StateOn
	case protocol.KindStop:
		return StateOff
	case protocol.KindDelay:
		return StateDelaying
	case protocol.KindWarm:
		return StateWarming
	case protocol.KindSchedule:
		return StateScheduled
	default:
		return StateNotConnected
	}
}

// Snapshot is one observation of the pot.
type Snapshot struct {
	State  State
	Kind   protocol.Kind
	Timer1 *uint16
	Timer2 *uint16

	// Sent is the request that produced this snapshot
	Sent protocol.Kind

	At time.Time
}

// SnapshotFromResponse derives what the pot is doing from one transaction.
//
// A QueryState reply is taken at face value. An acknowledged command means
// the pot is now doing what was sent, with the timers that were sent.
// Anything else is not connected.
func SnapshotFromResponse(req protocol.Request, resp protocol.Response, at time.Time) Snapshot {
	snap := Snapshot{Sent: req.Kind, At: at, Kind: protocol.KindUnknown}

	switch {
	case req.Kind == protocol.KindQueryState:
		snap.Kind = resp.Kind
		snap.Timer1, snap.Timer2 = resp.Seconds1, resp.Seconds2
	case resp.Kind == protocol.KindAcknowledge:
		snap.Kind = req.Kind
		snap.Timer1, snap.Timer2 = req.Seconds1, req.Seconds2
	}

	snap.State = StateFromKind(snap.Kind)
	if snap.State == StateNotConnected {
		snap.Timer1, snap.Timer2 = nil, nil
	}
	return snap
}

// NotConnected is the snapshot published when the pot goes away.
func NotConnected(at time.Time) Snapshot {
	return Snapshot{State: StateNotConnected, Kind: protocol.KindUnknown, Sent: protocol.KindUnknown, At: at}
}

// Connected reports whether the pot answered.
func (s Snapshot) Connected() bool {
	return s.State != StateNotConnected
}

// Describe renders the snapshot the way the status line shows it.
func (s Snapshot) Describe() string {
	switch s.State {
	case StateDelaying:
		if s.Timer1 != nil {
			return fmt.Sprintf("delaying, brewing in %s", timer.FormatPtr(s.Timer1))
		}
	case StateWarming:
		if s.Timer1 != nil {
			return fmt.Sprintf("warming, %s left", timer.FormatPtr(s.Timer1))
		}
	case StateScheduled:
		if s.Timer1 != nil && s.Timer2 != nil {
			return fmt.Sprintf("scheduled, brewing in %s then warming for %s",
				timer.FormatPtr(s.Timer1), timer.FormatPtr(s.Timer2))
		}
	}
	return s.State.String()
}
