// Package availability decides whether a proposed studio slot is free, against the
// snapshot of confirmed reservations and against other slots placed in the same cart.
package availability

import (
	"errors"
	"fmt"

	"studiobook/internal/timeutil"
)

// ErrEmptyReservation is returned for a segment that ends when it starts.
var ErrEmptyReservation = errors.New("reservation has zero length")

// midnightEnd is the explicit end-of-day value a feed may send.
const midnightEnd = "24:00"

// Reason explains why a slot is unavailable.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonBooked       Reason = "Booked"       // clashes with a confirmed reservation
	ReasonOverlap      Reason = "Overlap"      // clashes with another slot in the same cart
	ReasonLoading      Reason = "Loading"      // reservation snapshot not received yet
	ReasonInvalidTime  Reason = "InvalidTime"  // start is not a valid HH:MM
	ReasonPastMidnight Reason = "PastMidnight" // slot would end on the next calendar day
)

// Result is the outcome of an availability check.
type Result struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason"`
}

func available() Result          { return Result{Available: true} }
func unavailable(r Reason) Result { return Result{Reason: r} }

// Reservation is one confirmed booked segment from the storage feed.
type Reservation struct {
	Date  string `json:"date"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two half-open intervals share any minute. Touching
// intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// Interval converts the reservation to minutes. An end before the start, or an end of
// "24:00", is read as running until midnight. A segment that ends when it starts
// covers nothing and is rejected.
func (r Reservation) Interval() (Interval, error) {
	start, err := timeutil.ParseClock(r.Start)
	if err != nil {
		return Interval{}, err
	}
	if r.End == midnightEnd {
		return Interval{Start: start, End: timeutil.MinutesPerDay}, nil
	}
	end, err := timeutil.ParseClock(r.End)
	if err != nil {
		return Interval{}, err
	}
	switch {
	case end == start:
		return Interval{}, fmt.Errorf("%w: %s-%s", ErrEmptyReservation, r.Start, r.End)
	case end < start:
		end = timeutil.MinutesPerDay
	}
	return Interval{Start: start, End: end}, nil
}

// Placed is another cart slot that already has a start time.
type Placed struct {
	ID    string
	Start string
	Hours int
}

// slotInterval validates start and converts (start, hours) to an interval that
// stays within one calendar day.
func slotInterval(start string, hours int) (Interval, Reason) {
	s, err := timeutil.ParseClock(start)
	if err != nil {
		return Interval{}, ReasonInvalidTime
	}
	if timeutil.CrossesMidnight(s, hours) {
		return Interval{}, ReasonPastMidnight
	}
	return Interval{Start: s, End: s + hours*60}, ReasonNone
}

// Check tests a proposed slot against the reservations booked on its date and against
// the other placed slots of the cart. The slot with excludeID is never compared with
// itself. Reservations are checked first, so a slot clashing with both reports Booked.
func Check(booked []Interval, start string, hours int, excludeID string, others []Placed) Result {
	proposed, reason := slotInterval(start, hours)
	if reason != ReasonNone {
		return unavailable(reason)
	}

	for _, b := range booked {
		if Overlaps(proposed, b) {
			return unavailable(ReasonBooked)
		}
	}

	for _, o := range others {
		if o.ID == excludeID || o.Start == "" {
			continue
		}
		s, err := timeutil.ParseClock(o.Start)
		if err != nil {
			continue
		}
		if Overlaps(proposed, Interval{Start: s, End: s + o.Hours*60}) {
			return unavailable(ReasonOverlap)
		}
	}

	return available()
}
