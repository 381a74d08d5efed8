// Package cart is the rental cart: an ordered list of session bookings priced by the
// cumulative-hour discount, placed on a date either back-to-back from one start or
// each at its own start, and confirmed into a booking request summary.
//
// A Cart is not safe for concurrent use.
package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"studiobook/internal/availability"
	"studiobook/internal/pricing"
)

// Checker answers availability questions against the reservation snapshot.
type Checker interface {
	Loaded() bool
	Check(date, start string, hours int, excludeID string, others []availability.Placed) availability.Result
}

// Option configures a Cart.
type Option func(*Cart)

// WithClock overrides the clock used to reject past dates.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) { c.now = now }
}

// WithID sets the cart id instead of a generated one.
func WithID(id string) Option {
	return func(c *Cart) { c.id = id }
}

type Cart struct {
	id      string
	rates   pricing.RateCard
	checker Checker
	now     func() time.Time

	bookings    []Booking
	split       bool
	date        string
	singleStart string
	starts      map[string]string
	active      string
}

// New creates an empty cart priced with rates.
func New(rates pricing.RateCard, checker Checker, opts ...Option) *Cart {
	c := &Cart{
		id:      uuid.NewString(),
		rates:   rates,
		checker: checker,
		now:     time.Now,
		starts:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cart) ID() string { return c.id }

// Add puts hours of a setup into the cart. A booking with the same merge key absorbs
// the hours and keeps its place and rate; otherwise a new booking is appended.
// Minimum hours are enforced by callers.
func (c *Cart) Add(kind pricing.ServiceKind, cameras, hours int) (Booking, error) {
	if hours < 1 {
		return Booking{}, fmt.Errorf("hours must be positive, got %d", hours)
	}
	rate, err := c.rates.Lookup(kind, cameras)
	if err != nil {
		return Booking{}, err
	}
	if kind == pricing.Audio {
		cameras = 0
	}

	key := MergeKey(kind, cameras)
	for i := range c.bookings {
		if c.bookings[i].MergeKey == key {
			c.bookings[i].Hours += hours
			return c.bookings[i], nil
		}
	}

	b := Booking{
		ID:          uuid.NewString(),
		Kind:        kind,
		Cameras:     cameras,
		Description: rate.Description,
		Equipment:   EquipmentLabel(kind, cameras),
		Hours:       hours,
		Rate:        rate.Rate,
		MergeKey:    key,
	}
	c.bookings = append(c.bookings, b)
	if c.active == "" {
		c.active = b.ID
	}
	return b, nil
}

// Remove deletes a booking. When it was the active selection target the first
// remaining booking becomes active.
func (c *Cart) Remove(id string) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBooking, id)
	}

	c.bookings = append(c.bookings[:idx], c.bookings[idx+1:]...)
	delete(c.starts, id)

	if c.active == id {
		c.active = ""
		if len(c.bookings) > 0 {
			c.active = c.bookings[0].ID
		}
	}
	return nil
}

// Clear empties the cart. Date and timing mode survive.
func (c *Cart) Clear() {
	c.bookings = nil
	c.starts = make(map[string]string)
	c.singleStart = ""
	c.active = ""
}

// Items returns the bookings in cart order.
func (c *Cart) Items() []Booking {
	return append([]Booking(nil), c.bookings...)
}

func (c *Cart) Len() int { return len(c.bookings) }

func (c *Cart) index(id string) int {
	for i := range c.bookings {
		if c.bookings[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) booking(id string) (Booking, error) {
	idx := c.index(id)
	if idx < 0 {
		return Booking{}, fmt.Errorf("%w: %s", ErrUnknownBooking, id)
	}
	return c.bookings[idx], nil
}

// Line is a booking priced at its position in the cart.
type Line struct {
	Booking
	PriorHours  int     `json:"prior_hours"`
	DisplayCost float64 `json:"display_cost"`
	Savings     float64 `json:"savings"`
}

// Totals is the priced cart.
type Totals struct {
	Lines        []Line  `json:"lines"`
	GrandTotal   float64 `json:"grand_total"`
	TotalSavings float64 `json:"total_savings"`
	TotalHours   int     `json:"total_hours"`
}

// Totals prices the cart from scratch in its current order.
func (c *Cart) Totals() Totals {
	in := make([]pricing.Line, len(c.bookings))
	for i, b := range c.bookings {
		in[i] = pricing.Line{ID: b.ID, Hours: b.Hours, Rate: b.Rate}
	}
	priced := c.rates.Discounts.Price(in)

	out := Totals{
		Lines:        make([]Line, len(c.bookings)),
		GrandTotal:   priced.GrandTotal,
		TotalSavings: priced.TotalSavings,
		TotalHours:   priced.TotalHours,
	}
	for i, p := range priced.Lines {
		out.Lines[i] = Line{
			Booking:     c.bookings[i],
			PriorHours:  p.PriorHours,
			DisplayCost: p.DisplayCost,
			Savings:     p.Savings,
		}
	}
	return out
}

// TotalHours is the sum of hours over all bookings.
func (c *Cart) TotalHours() int {
	total := 0
	for _, b := range c.bookings {
		total += b.Hours
	}
	return total
}

// Preview prices a booking that is being configured as if it were appended now.
func (c *Cart) Preview(kind pricing.ServiceKind, cameras, hours int) (pricing.Preview, error) {
	rate, err := c.rates.Lookup(kind, cameras)
	if err != nil {
		return pricing.Preview{}, err
	}
	return c.rates.Discounts.Preview(c.TotalHours(), hours, rate.Rate), nil
}

// DefaultHours is the hours value a configurator resets to for a setup.
func (c *Cart) DefaultHours(kind pricing.ServiceKind, cameras int) (int, error) {
	rate, err := c.rates.Lookup(kind, cameras)
	if err != nil {
		return 0, err
	}
	return rate.MinHours, nil
}
