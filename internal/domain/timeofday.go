package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a minute offset from midnight in the exchange timezone.
// Session boundaries (open, selection close, EOD cutoff) are expressed this
// way so they survive date changes and DST-free exchange calendars.
type TimeOfDay int

// ParseTimeOfDay reads "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustTimeOfDay parses or panics; for package defaults only.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf extracts the minute offset of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// At anchors the offset onto the date of t, preserving t's location.
func (d TimeOfDay) At(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), int(d)/60, int(d)%60, 0, 0, t.Location())
}

func (d TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(d)/60, int(d)%60)
}
