package availability

import (
	"sync"

	"studiobook/internal/events"
	"studiobook/internal/timeutil"
)

// Store holds the current reservation snapshot. Replace swaps the whole snapshot at
// once; readers never observe a partially applied update.
type Store struct {
	mu      sync.RWMutex
	all     []Reservation
	byDate  map[string][]Interval
	skipped int
	loaded  bool

	bus *events.Bus
}

// NewStore creates an empty, not yet loaded store. bus may be nil.
func NewStore(bus *events.Bus) *Store {
	return &Store{byDate: map[string][]Interval{}, bus: bus}
}

// Replace installs a new snapshot, marks the store loaded and publishes
// events.TypeReservationsUpdated. Segments with a malformed time are skipped.
func (s *Store) Replace(reservations []Reservation) {
	all := make([]Reservation, 0, len(reservations))
	byDate := make(map[string][]Interval)
	skipped := 0
	for _, r := range reservations {
		iv, err := r.Interval()
		if r.Date == "" || err != nil {
			skipped++
			continue
		}
		all = append(all, r)
		byDate[r.Date] = append(byDate[r.Date], iv)
	}

	s.mu.Lock()
	s.all = all
	s.byDate = byDate
	s.skipped = skipped
	s.loaded = true
	s.mu.Unlock()

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.TypeReservationsUpdated, events.ReservationsUpdated{Count: len(all)})
	}
}

// Loaded reports whether at least one snapshot has arrived.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Snapshot returns a copy of the current reservations.
func (s *Store) Snapshot() []Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Reservation(nil), s.all...)
}

// Skipped is the number of malformed segments dropped by the last Replace.
func (s *Store) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// Check runs the availability check for a slot on date. Without a date or start the
// slot is trivially available; otherwise an unloaded store fails closed.
func (s *Store) Check(date, start string, hours int, excludeID string, others []Placed) Result {
	if date == "" || start == "" {
		return available()
	}

	s.mu.RLock()
	loaded := s.loaded
	booked := s.byDate[date]
	s.mu.RUnlock()

	if !loaded {
		return unavailable(ReasonLoading)
	}
	return Check(booked, start, hours, excludeID, others)
}

// quarterHours are the minutes offered on the clock face.
var quarterHours = []int{0, 15, 30, 45}

// HourSelectable reports whether the clock-face hour button should be enabled: at
// least one quarter-hour start within that hour is available for the duration.
func (s *Store) HourSelectable(date string, hour12 int, period timeutil.Period, hours int, excludeID string, others []Placed) bool {
	for _, m := range quarterHours {
		start := timeutil.From12h(hour12, m, period)
		if s.Check(date, start, hours, excludeID, others).Available {
			return true
		}
	}
	return false
}
