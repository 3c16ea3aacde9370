package protocol

import (
	"fmt"
	"strings"
)

// Request is a command sent to the pot.
//
// Seconds1 and Seconds2 are optional 16-bit timers. Which ones are set must
// match the kind (Delay/Warm: Seconds1, Schedule: both, others: none). The
// codec writes whatever is present and does not check this.
type Request struct {
	Kind     Kind
	Seconds1 *uint16
	Seconds2 *uint16
}

// Response is what the pot answered. Kind is KindUnknown for every failure.
// Timers are only populated for QueryState replies of Delay, Warm or Schedule.
type Response struct {
	Kind     Kind
	Seconds1 *uint16
	Seconds2 *uint16
}

// Seconds returns a pointer to v, for filling optional timer fields.
func Seconds(v uint16) *uint16 { return &v }

// NewRequest builds a request with the timers given in order.
// Extra timers beyond two are ignored.
func NewRequest(kind Kind, timers ...uint16) Request {
	req := Request{Kind: kind}
	if len(timers) > 0 {
		req.Seconds1 = Seconds(timers[0])
	}
	if len(timers) > 1 {
		req.Seconds2 = Seconds(timers[1])
	}
	return req
}

// QueryState is the read-only status request.
func QueryState() Request { return Request{Kind: KindQueryState} }

// Brew starts brewing immediately.
func Brew() Request { return Request{Kind: KindBrew} }

// Stop turns the pot off.
func Stop() Request { return Request{Kind: KindStop} }

// Delay brews after the given number of seconds.
func Delay(seconds uint16) Request { return NewRequest(KindDelay, seconds) }

// Warm keeps the pot warm for the given number of seconds.
func Warm(seconds uint16) Request { return NewRequest(KindWarm, seconds) }

// Schedule delays for delaySeconds, then warms for warmSeconds.
func Schedule(delaySeconds, warmSeconds uint16) Request {
	return NewRequest(KindSchedule, delaySeconds, warmSeconds)
}

// Unknown is the failure response.
func Unknown() Response { return Response{Kind: KindUnknown} }

// IsUnknown reports whether the response represents a failure.
func (r Response) IsUnknown() bool { return r.Kind == KindUnknown }

// Equal compares kinds and timer values.
func (r Response) Equal(o Response) bool {
	return r.Kind == o.Kind && equalTimer(r.Seconds1, o.Seconds1) && equalTimer(r.Seconds2, o.Seconds2)
}

func (r Request) String() string {
	return formatMessage("Request", r.Kind, r.Seconds1, r.Seconds2)
}

func (r Response) String() string {
	return formatMessage("Response", r.Kind, r.Seconds1, r.Seconds2)
}

func formatMessage(name string, kind Kind, s1, s2 *uint16) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s{kind=%s", name, kind)
	if s1 != nil {
		fmt.Fprintf(&b, ", seconds1=%d", *s1)
	}
	if s2 != nil {
		fmt.Fprintf(&b, ", seconds2=%d", *s2)
	}
	b.WriteString("}")
	return b.String()
}

func equalTimer(a, b *uint16) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
