package cart

import (
	"fmt"
	"sort"

	"studiobook/internal/availability"
	"studiobook/internal/timeutil"
)

// SlotState is the selection state of a booking's time.
type SlotState string

const (
	SlotUnset       SlotState = "unset"
	SlotPending     SlotState = "pending" // start chosen, cannot be checked yet
	SlotValid       SlotState = "valid"
	SlotConflicting SlotState = "conflicting"
)

// Slot is a booking's placement on the chosen date.
type Slot struct {
	BookingID string              `json:"booking_id"`
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Hours     int                 `json:"hours"`
	State     SlotState           `json:"state"`
	Reason    availability.Reason `json:"reason,omitempty"`
}

// SetSplit switches between one shared start (false) and a start per booking (true).
// Starts chosen in either mode are kept.
func (c *Cart) SetSplit(split bool) { c.split = split }

func (c *Cart) Split() bool { return c.split }

// SetDate selects the booking day as "YYYY-MM-DD". Days before today are rejected;
// an empty date clears the selection.
func (c *Cart) SetDate(date string) error {
	key, err := c.dateKey(date)
	if err != nil {
		return err
	}
	c.date = key
	return nil
}

// dateKey normalises a selectable date. Empty stays empty.
func (c *Cart) dateKey(date string) (string, error) {
	if date == "" {
		return "", nil
	}
	d, err := timeutil.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	if timeutil.IsBeforeDay(d, c.now()) {
		return "", fmt.Errorf("%w: %s", ErrPastDate, date)
	}
	return timeutil.DateKey(d), nil
}

// ScheduleChange is a batch of timing edits. Nil fields and an empty Active are
// left as they are.
type ScheduleChange struct {
	Split  *bool
	Date   *string
	Start  *string
	Starts map[string]string
	Active string
}

// ApplySchedule validates every field of ch before changing anything, so a
// rejected change leaves the cart as it was.
func (c *Cart) ApplySchedule(ch ScheduleChange) error {
	date := c.date
	if ch.Date != nil {
		key, err := c.dateKey(*ch.Date)
		if err != nil {
			return err
		}
		date = key
	}
	if ch.Start != nil {
		if err := validStart(*ch.Start); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(ch.Starts))
	for id := range ch.Starts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := c.booking(id); err != nil {
			return err
		}
		if err := validStart(ch.Starts[id]); err != nil {
			return err
		}
	}
	if ch.Active != "" {
		if _, err := c.booking(ch.Active); err != nil {
			return err
		}
	}

	if ch.Split != nil {
		c.split = *ch.Split
	}
	c.date = date
	if ch.Start != nil {
		c.singleStart = *ch.Start
	}
	for _, id := range ids {
		if start := ch.Starts[id]; start == "" {
			delete(c.starts, id)
		} else {
			c.starts[id] = start
		}
	}
	if ch.Active != "" {
		c.active = ch.Active
	}
	return nil
}

func (c *Cart) Date() string { return c.date }

// SetStart sets the shared start used in single timing mode. Empty unsets it.
func (c *Cart) SetStart(start string) error {
	if err := validStart(start); err != nil {
		return err
	}
	c.singleStart = start
	return nil
}

func (c *Cart) Start() string { return c.singleStart }

// SetBookingStart sets the split timing start of one booking. Empty unsets it.
func (c *Cart) SetBookingStart(id, start string) error {
	if _, err := c.booking(id); err != nil {
		return err
	}
	if err := validStart(start); err != nil {
		return err
	}
	if start == "" {
		delete(c.starts, id)
	} else {
		c.starts[id] = start
	}
	return nil
}

func validStart(start string) error {
	if start == "" {
		return nil
	}
	_, err := timeutil.ParseClock(start)
	return err
}

// SetActive picks the booking whose time is being edited in split mode.
func (c *Cart) SetActive(id string) error {
	if _, err := c.booking(id); err != nil {
		return err
	}
	c.active = id
	return nil
}

// Active returns the booking being edited, or "" when the cart is empty.
func (c *Cart) Active() string { return c.active }

// Placed lists the bookings that already have a start, for intra-cart overlap checks.
// Single timing places bookings back-to-back, so there is nothing to overlap with.
func (c *Cart) Placed() []availability.Placed {
	if !c.split {
		return nil
	}
	out := make([]availability.Placed, 0, len(c.starts))
	for _, b := range c.bookings {
		if s := c.starts[b.ID]; s != "" {
			out = append(out, availability.Placed{ID: b.ID, Start: s, Hours: b.Hours})
		}
	}
	return out
}

// Check tests a proposed start on the cart's date. In split mode other placed
// bookings count as conflicts, except excludeID itself.
func (c *Cart) Check(start string, hours int, excludeID string) availability.Result {
	return c.checker.Check(c.date, start, hours, excludeID, c.Placed())
}

// Slots reports the placement and state of every booking. In single mode the
// bookings follow each other from the shared start and share one state, checked
// over the whole run.
func (c *Cart) Slots() []Slot {
	out := make([]Slot, 0, len(c.bookings))

	if !c.split {
		state, reason := c.state(c.singleStart, c.Check(c.singleStart, c.TotalHours(), ""))
		prior := 0
		for _, b := range c.bookings {
			s := Slot{BookingID: b.ID, Hours: b.Hours, State: state, Reason: reason}
			if c.singleStart != "" {
				s.Start = timeutil.AddHours(c.singleStart, prior)
				s.End = timeutil.AddHours(c.singleStart, prior+b.Hours)
			}
			out = append(out, s)
			prior += b.Hours
		}
		return out
	}

	placed := c.Placed()
	for _, b := range c.bookings {
		start := c.starts[b.ID]
		state, reason := c.state(start, c.checker.Check(c.date, start, b.Hours, b.ID, placed))
		out = append(out, Slot{
			BookingID: b.ID,
			Start:     start,
			End:       timeutil.AddHours(start, b.Hours),
			Hours:     b.Hours,
			State:     state,
			Reason:    reason,
		})
	}
	return out
}

// SlotState returns the state of a single booking.
func (c *Cart) SlotState(id string) (SlotState, error) {
	for _, s := range c.Slots() {
		if s.BookingID == id {
			return s.State, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownBooking, id)
}

func (c *Cart) state(start string, res availability.Result) (SlotState, availability.Reason) {
	switch {
	case start == "":
		return SlotUnset, availability.ReasonNone
	case c.date == "" || res.Reason == availability.ReasonLoading:
		return SlotPending, res.Reason
	case res.Available:
		return SlotValid, availability.ReasonNone
	default:
		return SlotConflicting, res.Reason
	}
}
