// Package timeutil converts between 24-hour "HH:MM" clock values, minutes of the day
// and the 12-hour strings shown to customers.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ClockLayout is the 24-hour wall clock format used on the wire.
	ClockLayout = "15:04"
	// DateLayout is the local calendar day format used by the reservation feed.
	DateLayout = "2006-01-02"
	// MinutesPerDay bounds a slot; a slot may end exactly at midnight but not after it.
	MinutesPerDay = 24 * 60
)

// ErrInvalidClock is returned for values that are not HH:MM within a day.
var ErrInvalidClock = errors.New("invalid clock value")

// Period is the half of the day on a 12-hour clock face.
type Period string

const (
	AM Period = "AM"
	PM Period = "PM"
)

// ParseClock parses "HH:MM" (hour may be a single digit) into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}

	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM". Values past midnight wrap
// around the clock face.
func FormatClock(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AddHours returns start shifted by hours using plain clock arithmetic, so 23:00 + 2
// becomes 01:00. Returns "" when start is empty or malformed.
func AddHours(start string, hours int) string {
	if start == "" {
		return ""
	}
	m, err := ParseClock(start)
	if err != nil {
		return ""
	}
	return FormatClock(m + hours*60)
}

// CrossesMidnight reports whether a slot starting at startMinutes and lasting hours
// ends after the end of its calendar day.
func CrossesMidnight(startMinutes, hours int) bool {
	return startMinutes+hours*60 > MinutesPerDay
}

// Display12h renders "HH:MM" as "9:05 AM". Empty input renders as "--:--".
func Display12h(s string) string {
	if s == "" {
		return "--:--"
	}
	m, err := ParseClock(s)
	if err != nil {
		return "--:--"
	}
	hour, minute := m/60, m%60

	period := AM
	if hour >= 12 {
		period = PM
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minute, period)
}

// DisplayRange renders "9:00 AM - 11:00 AM" for a start and a duration in hours.
func DisplayRange(start string, hours int) string {
	return Display12h(start) + " - " + Display12h(AddHours(start, hours))
}

// From12h converts a clock-face selection to "HH:MM". 12 AM is midnight, 12 PM is noon.
func From12h(hour12, minute int, period Period) string {
	h := hour12
	if period == PM && h != 12 {
		h += 12
	}
	if period == AM && h == 12 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, minute)
}

// DateKey is the calendar-day key used to match reservations: the local date, never
// shifted to UTC.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses "YYYY-MM-DD" as a local calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsBeforeDay reports whether date falls on a calendar day before now's.
func IsBeforeDay(date, now time.Time) bool {
	return StartOfDay(date).Before(StartOfDay(now.In(date.Location())))
}
