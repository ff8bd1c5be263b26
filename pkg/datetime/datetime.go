// Package datetime provides the calendar arithmetic the alert engine needs:
// tenant-local day windows, month starts and wall-clock parsing.
package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateFormat is the date-only format (YYYY-MM-DD).
	DateFormat = "2006-01-02"

	// DisplayDateFormat is how renewal dates appear in alert cards ("Oct 30, 2026").
	DisplayDateFormat = "Jan 02, 2006"

	// MonthFormat labels monthly summaries ("October 2026").
	MonthFormat = "January 2006"
)

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// DaysFrom returns the one-day range of calendar dates n days after t's day
// in loc. Bounds are UTC midnights so they compare against CalendarDate values.
func DaysFrom(t time.Time, loc *time.Location, n int) Range {
	start := DateOf(t, loc).AddDate(0, 0, n)
	return Range{Start: start, End: start.AddDate(0, 0, 1)}
}

// CalendarDate reads a date column value as the calendar day it names.
// Drivers scan DATE as UTC midnight, so the day is taken in UTC.
func CalendarDate(t time.Time) time.Time {
	return DateOf(t, time.UTC)
}

// StartOfDate returns the instant a calendar date, as returned by
// CalendarDate, begins in loc.
func StartOfDate(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// DateOf returns t's calendar day in loc as a UTC midnight value, the form
// date columns are stored in.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first day of t's month in loc as a UTC date.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Clock is a wall-clock time of day in minutes after midnight.
type Clock int

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock(h*60 + m), nil
}

// ClockOf returns the wall-clock minute of t in loc.
func ClockOf(t time.Time, loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return Clock(t.Hour()*60 + t.Minute())
}

// On returns the instant this clock reads on t's calendar day in loc.
func (c Clock) On(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), int(c)/60, int(c)%60, 0, 0, loc)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}
