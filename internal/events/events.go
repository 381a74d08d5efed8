// Package events is a small in-process pub/sub used to fan out reservation snapshot
// replacements and confirmed booking requests.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// TypeReservationsUpdated is published after the reservation snapshot is replaced.
	TypeReservationsUpdated = "reservations.updated"
	// TypeBookingConfirmed is published after a cart passed confirmation.
	TypeBookingConfirmed = "booking.confirmed"
)

// Event is a lightweight domain event. Payload is JSON.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// ReservationsUpdated describes a snapshot replacement.
type ReservationsUpdated struct {
	Count int `json:"count"`
}

// BookingConfirmed describes a confirmed cart.
type BookingConfirmed struct {
	CartID     string  `json:"cart_id"`
	Date       string  `json:"date"`
	Items      int     `json:"items"`
	TotalHours int     `json:"total_hours"`
	GrandTotal float64 `json:"grand_total"`
}

// New builds an event with v encoded as the payload.
func New(eventType string, v any) (Event, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: payload, CreatedAt: time.Now()}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewBus constructs an empty bus. Handler errors are logged when logger is set.
func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{subscribers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously, in
// subscription order.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON encodes v and publishes it under eventType.
func (b *Bus) PublishJSON(eventType string, v any) error {
	ev, err := New(eventType, v)
	if err != nil {
		return err
	}
	b.Publish(ev)
	return nil
}
