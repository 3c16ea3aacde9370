package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a message on the wire. Each kind is sent as a single ASCII tag byte.
type Kind byte

// Message kinds and their tag bytes
const (
	KindUnknown     Kind = 'U' // Unknown or error; never a valid request
	KindQueryState  Kind = 'M' // "Monitor": ask the pot for its current state
	KindBrew        Kind = 'B'
	KindStop        Kind = 'T'
	KindDelay       Kind = 'D' // Brew after a delay (1 timer)
	KindWarm        Kind = 'W' // Keep warm for a duration (1 timer)
	KindSchedule    Kind = 'C' // Delay then warm (2 timers)
	KindAcknowledge Kind = 'K' // Reply to a control command; never sent as a request
)

// ErrUnknownTag is returned when a byte does not map to any Kind.
var ErrUnknownTag = errors.New("unknown message tag")

// kindNames is the fixed tag table. ParseKind uses it as the inverse mapping.
var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindQueryState:  "query-state",
	KindBrew:        "brew",
	KindStop:        "stop",
	KindDelay:       "delay",
	KindWarm:        "warm",
	KindSchedule:    "schedule",
	KindAcknowledge: "acknowledge",
}

// ParseKind converts a tag byte to a Kind.
// Unrecognised bytes are an error and are never mapped to KindUnknown.
func ParseKind(b byte) (Kind, error) {
	k := Kind(b)
	if _, ok := kindNames[k]; !ok {
		return KindUnknown, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, b)
	}
	return k, nil
}

// ParseKindName converts a human-readable name ("brew", "query-state", "M") to a Kind.
func ParseKindName(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) == 1 {
		return ParseKind(strings.ToUpper(name)[0])
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	switch name {
	case "monitor", "status", "query":
		return KindQueryState, nil
	case "ack":
		return KindAcknowledge, nil
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownTag, name)
}

// Tag returns the wire byte for the kind.
func (k Kind) Tag() byte { return byte(k) }

// String returns the kind's name
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(0x%02x)", byte(k))
}

// IsControl reports whether k is a command whose only valid reply is an acknowledgement.
func (k Kind) IsControl() bool {
	switch k {
	case KindBrew, KindStop, KindDelay, KindWarm, KindSchedule:
		return true
	}
	return false
}

// TimerCount returns how many 16-bit timer fields accompany k,
// both in a request and in a state report.
func (k Kind) TimerCount() int {
	switch k {
	case KindDelay, KindWarm:
		return 1
	case KindSchedule:
		return 2
	}
	return 0
}

// Kinds returns every defined kind in tag-table order.
func Kinds() []Kind {
	return []Kind{
		KindUnknown,
		KindQueryState,
		KindBrew,
		KindStop,
		KindDelay,
		KindWarm,
		KindSchedule,
		KindAcknowledge,
	}
}
