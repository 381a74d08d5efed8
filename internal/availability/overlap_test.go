package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching", Interval{9 * 60, 11 * 60}, Interval{11 * 60, 13 * 60}, false},
		{"partial", Interval{9 * 60, 11 * 60}, Interval{10 * 60, 12 * 60}, true},
		{"contained", Interval{9 * 60, 18 * 60}, Interval{12 * 60, 13 * 60}, true},
		{"identical", Interval{600, 660}, Interval{600, 660}, true},
		{"disjoint", Interval{0, 60}, Interval{120, 180}, false},
		{"quarter hour clash", Interval{600, 660}, Interval{645, 705}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "symmetry")
		})
	}
}

func TestReservationInterval(t *testing.T) {
	iv, err := Reservation{Date: "2026-10-20", Start: "10:00", End: "12:30"}.Interval()
	require.NoError(t, err)
	assert.Equal(t, Interval{600, 750}, iv)

	iv, err = Reservation{Date: "2026-10-20", Start: "22:00", End: "00:00"}.Interval()
	require.NoError(t, err)
	assert.Equal(t, Interval{22 * 60, 24 * 60}, iv)

	iv, err = Reservation{Date: "2026-10-20", Start: "18:00", End: "24:00"}.Interval()
	require.NoError(t, err)
	assert.Equal(t, Interval{18 * 60, 24 * 60}, iv)

	_, err = Reservation{Date: "2026-10-20", Start: "10:00", End: "10:00"}.Interval()
	assert.ErrorIs(t, err, ErrEmptyReservation)

	_, err = Reservation{Start: "bad", End: "12:00"}.Interval()
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	booked := []Interval{{10 * 60, 12 * 60}}
	others := []Placed{
		{ID: "self", Start: "14:00", Hours: 2},
		{ID: "other", Start: "16:00", Hours: 1},
		{ID: "unplaced", Hours: 3},
	}

	tests := []struct {
		name    string
		start   string
		hours   int
		exclude string
		want    Result
	}{
		{"free morning", "08:00", 2, "self", Result{Available: true}},
		{"ends when reservation starts", "09:00", 1, "self", Result{Available: true}},
		{"clashes with reservation", "11:00", 1, "self", Result{Reason: ReasonBooked}},
		{"clashes with other cart slot", "15:30", 1, "self", Result{Reason: ReasonOverlap}},
		{"excluded from itself", "14:00", 2, "self", Result{Available: true}},
		{"booked wins over overlap", "11:00", 6, "self", Result{Reason: ReasonBooked}},
		{"crosses midnight", "23:00", 2, "self", Result{Reason: ReasonPastMidnight}},
		{"ends at midnight", "22:00", 2, "self", Result{Available: true}},
		{"invalid start", "25:00", 1, "self", Result{Reason: ReasonInvalidTime}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(booked, tt.start, tt.hours, tt.exclude, others))
		})
	}
}
