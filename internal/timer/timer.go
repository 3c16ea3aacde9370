// Package timer converts between wall-clock times, durations and the pot's
// 16-bit second counters.
package timer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxSeconds is the largest timer the wire format can carry (about 18 hours).
const MaxSeconds = math.MaxUint16

var (
	// ErrNegative is returned for a target time that works out to the past
	ErrNegative = errors.New("timer would end in the past")

	// ErrTooLong is returned for timers beyond MaxSeconds
	ErrTooLong = errors.New("timer exceeds 65535 seconds")

	// ErrBadClock is returned for malformed HH:MM values
	ErrBadClock = errors.New("invalid time of day, want HH:MM")

	// ErrBadTimer is returned when Parse cannot read its input
	ErrBadTimer = errors.New("invalid timer, want a duration (15m, 1h30m), minutes (45) or a time of day (07:30)")
)

// SecondsUntil returns the seconds from now until the next hour:minute.
//
// Hours wrap past midnight. Minutes borrow from the hour difference, so a
// target earlier in the current hour (10:15 at 10:30) comes out negative
// rather than wrapping a whole day; callers reject that.
func SecondsUntil(now time.Time, hour, minute int) int {
	hours := hour - now.Hour()
	if hours < 0 {
		hours += 24
	}

	minutes := minute - now.Minute()
	if minutes < 0 {
		hours--
		minutes += 60
	}

	return hours*60*60 + minutes*60
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return hour, minute, nil
}

// ToWire range-checks seconds for a timer field.
func ToWire(seconds int) (uint16, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegative, seconds)
	}
	if seconds > MaxSeconds {
		return 0, fmt.Errorf("%w: %d", ErrTooLong, seconds)
	}
	return uint16(seconds), nil
}

// FromDuration converts d to a wire timer, truncating to whole seconds.
func FromDuration(d time.Duration) (uint16, error) {
	return ToWire(int(d / time.Second))
}

// Parse reads a timer as typed by a user: a Go duration ("90s", "1h30m"),
// a bare number of minutes ("45") or a time of day ("07:30") counted from now.
func Parse(s string, now time.Time) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadTimer
	}

	if strings.Contains(s, ":") {
		hour, minute, err := ParseClock(s)
		if err != nil {
			return 0, err
		}
		return ToWire(SecondsUntil(now, hour, minute))
	}

	if minutes, err := strconv.Atoi(s); err == nil {
		return ToWire(minutes * 60)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimer, s)
	}
	return FromDuration(d)
}

// Format renders a timer as H:MM:SS when it is an hour or more, else MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatPtr is Format for an optional timer; absent timers render as "".
func FormatPtr(seconds *uint16) string {
	if seconds == nil {
		return ""
	}
	return Format(int(*seconds))
}
