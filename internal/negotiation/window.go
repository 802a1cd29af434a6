package negotiation

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time without a date, as stored on proposals ("09:00").
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (seconds tolerated and discarded).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("negotiation: parse time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("negotiation: time %q out of range", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// String renders the canonical "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MinuteOfDay returns minutes elapsed since midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// Proposal is a delivery window offer: a date plus a start/end time pair.
type Proposal struct {
	Date  time.Time
	Start TimeOfDay
	End   TimeOfDay
}

// WindowMinutes returns the proposed window length in minutes.
func (p Proposal) WindowMinutes() int {
	return p.End.MinuteOfDay() - p.Start.MinuteOfDay()
}

// dayKey collapses a timestamp to a comparable calendar ordinal, read in
// the timestamp's own location. Wire dates arrive as UTC midnights while
// the server clock runs in its local zone; comparing wall-calendar
// components keeps "today" meaning the same day on both sides.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// BeforeDay reports whether a falls on an earlier calendar day than b.
// Time of day and location offsets are ignored.
func BeforeDay(a, b time.Time) bool {
	return dayKey(a) < dayKey(b)
}

// AfterDay reports whether a falls on a later calendar day than b.
func AfterDay(a, b time.Time) bool {
	return dayKey(a) > dayKey(b)
}
