// Package engine implements the booking availability and pricing core.  It is
// deliberately free of database imports: every function here operates on plain
// values supplied by the repository layer, which makes the whole package safe
// to call concurrently and easy to test in isolation.
package engine

import (
	"fmt"
	"sort"
	"time"
)

// SlotMinutes is the fixed granularity of the booking grid.  Every booked
// range, every pricing rule interval and every operating window must be
// aligned to this step.  Prices are quoted per slot of this length.
const SlotMinutes = 30

// MinutesPerDay bounds a time-of-day value expressed in minutes from midnight.
const MinutesPerDay = 24 * 60

// TimeRange is a half-open interval [StartMin, EndMin) of minutes from
// midnight on a single day.  17:00-18:00 is {1020, 1080}; it touches but does
// not overlap 18:00-19:00.
type TimeRange struct {
	StartMin int `json:"start_min"`
	EndMin   int `json:"end_min"`
}

// ParseClock converts an "HH:MM" string into minutes from midnight.
// It accepts "24:00" so operating windows can close at end of day.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight back into "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseRange builds a TimeRange from "HH:MM" start and end strings.
func ParseRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{StartMin: s, EndMin: e}, nil
}

// String renders the range as "HH:MM-HH:MM" for conflict messages and logs.
func (r TimeRange) String() string {
	return FormatClock(r.StartMin) + "-" + FormatClock(r.EndMin)
}

// Duration returns the length of the range in minutes.
func (r TimeRange) Duration() int { return r.EndMin - r.StartMin }

// Overlaps reports whether two half-open ranges intersect.  Ranges that only
// touch at a boundary (end == start) do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.StartMin < o.EndMin && o.StartMin < r.EndMin
}

// Contains reports whether o lies entirely inside r.
func (r TimeRange) Contains(o TimeRange) bool {
	return r.StartMin <= o.StartMin && o.EndMin <= r.EndMin
}

// Validate checks that the range is well formed for booking purposes: end
// after start, both bounds inside the day and aligned to the slot grid.
func (r TimeRange) Validate() error {
	if r.EndMin <= r.StartMin {
		return &ValidationError{Reason: fmt.Sprintf("range %s: end must be after start", r)}
	}
	if r.StartMin < 0 || r.EndMin > MinutesPerDay {
		return &ValidationError{Reason: fmt.Sprintf("range %s: outside of day bounds", r)}
	}
	if r.StartMin%SlotMinutes != 0 || r.EndMin%SlotMinutes != 0 {
		return &ValidationError{Reason: fmt.Sprintf("range %s: not aligned to %d-minute grid", r, SlotMinutes)}
	}
	return nil
}

// Units splits the range into consecutive SlotMinutes-long units.  The range
// must already be validated; an unaligned range yields no units.
func (r TimeRange) Units() []TimeRange {
	if r.EndMin <= r.StartMin || r.StartMin%SlotMinutes != 0 || r.EndMin%SlotMinutes != 0 {
		return nil
	}
	units := make([]TimeRange, 0, r.Duration()/SlotMinutes)
	for cur := r.StartMin; cur < r.EndMin; cur += SlotMinutes {
		units = append(units, TimeRange{StartMin: cur, EndMin: cur + SlotMinutes})
	}
	return units
}

// NormalizeRanges validates a requested set of ranges as a unit: each range
// must be well formed, lie within the operating window, and no two ranges may
// overlap each other.  The returned slice is sorted by start time so callers
// get deterministic slot ordering.  Self-conflicting input is rejected here,
// before any stored data is consulted.
func NormalizeRanges(ranges []TimeRange, window TimeRange) ([]TimeRange, error) {
	if len(ranges) == 0 {
		return nil, &ValidationError{Reason: "at least one time range is required"}
	}
	out := make([]TimeRange, len(ranges))
	copy(out, ranges)
	for _, r := range out {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if !window.Contains(r) {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"range %s: outside operating window %s", r, window)}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMin < out[j].StartMin })
	for i := 1; i < len(out); i++ {
		if out[i-1].Overlaps(out[i]) {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"ranges %s and %s overlap each other", out[i-1], out[i])}
		}
	}
	return out, nil
}

// DateOf truncates a timestamp to its UTC calendar day.  Bookings are keyed
// by this value.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SlotEnd returns the absolute end instant of the latest slot of a booking on
// the given date.  Used to decide when a booking has fully elapsed.
func SlotEnd(date time.Time, ranges []TimeRange) time.Time {
	end := 0
	for _, r := range ranges {
		if r.EndMin > end {
			end = r.EndMin
		}
	}
	return DateOf(date).Add(time.Duration(end) * time.Minute)
}
