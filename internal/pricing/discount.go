// Package pricing holds the two price models of the studio: the cumulative-hour discount
// applied across a rental cart, and the monthly content package quote.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

// Band applies Multiplier to every cumulative hour index from FromHour (1-based,
// inclusive) up to the next band's FromHour.
type Band struct {
	FromHour   int     `yaml:"from_hour" json:"from_hour"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Schedule is a discount schedule ordered by FromHour.
type Schedule []Band

// DefaultSchedule: hours 1-2 full price, 3-4 at 90%, 5-7 at 85%, 8 and later at 80%.
var DefaultSchedule = Schedule{
	{FromHour: 1, Multiplier: 1.0},
	{FromHour: 3, Multiplier: 0.9},
	{FromHour: 5, Multiplier: 0.85},
	{FromHour: 8, Multiplier: 0.8},
}

var ErrInvalidSchedule = errors.New("invalid discount schedule")

// Validate checks that bands start at hour 1, are strictly ascending and never raise
// the price above the list rate.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no bands", ErrInvalidSchedule)
	}
	if s[0].FromHour != 1 {
		return fmt.Errorf("%w: first band must start at hour 1, got %d", ErrInvalidSchedule, s[0].FromHour)
	}
	for i, b := range s {
		if b.Multiplier <= 0 || b.Multiplier > 1 {
			return fmt.Errorf("%w: band[%d] multiplier %v out of (0,1]", ErrInvalidSchedule, i, b.Multiplier)
		}
		if i > 0 && b.FromHour <= s[i-1].FromHour {
			return fmt.Errorf("%w: band[%d] from_hour %d not ascending", ErrInvalidSchedule, i, b.FromHour)
		}
	}
	return nil
}

// Multiplier returns the price factor for the hourIndex-th hour of the whole cart.
func (s Schedule) Multiplier(hourIndex int) float64 {
	m := 1.0
	for _, b := range s {
		if hourIndex < b.FromHour {
			break
		}
		m = b.Multiplier
	}
	return m
}

// RangeCost prices duration hours at rate when priorHours hours of the cart come first.
// Each hour is looked up on its own, so one booking may straddle several bands.
func (s Schedule) RangeCost(priorHours, duration int, rate float64) float64 {
	cost := 0.0
	for k := 1; k <= duration; k++ {
		cost += rate * s.Multiplier(priorHours+k)
	}
	return cost
}

// Line is the pricing input for one booking: only hours and rate are stored, every
// derived amount is recomputed by Price.
type Line struct {
	ID    string
	Hours int
	Rate  float64
}

// PricedLine is a Line with its position-dependent cost. DisplayCost is unrounded.
type PricedLine struct {
	Line
	PriorHours  int
	DisplayCost float64
	Savings     float64
}

// OriginalCost is the undiscounted list price of the line.
func (p PricedLine) OriginalCost() float64 {
	return float64(p.Hours) * p.Rate
}

// Totals is the result of a single pass over an ordered cart.
type Totals struct {
	Lines        []PricedLine
	RawTotal     float64
	GrandTotal   float64 // RawTotal rounded once, after summation
	TotalSavings float64
	TotalHours   int
}

// Price folds over lines in order, carrying the cumulative hour count so that later
// lines fall into the steeper bands.
func (s Schedule) Price(lines []Line) Totals {
	out := Totals{Lines: make([]PricedLine, 0, len(lines))}

	cumulative := 0
	for _, l := range lines {
		raw := s.RangeCost(cumulative, l.Hours, l.Rate)
		savings := float64(l.Hours)*l.Rate - raw

		out.Lines = append(out.Lines, PricedLine{
			Line:        l,
			PriorHours:  cumulative,
			DisplayCost: raw,
			Savings:     savings,
		})

		cumulative += l.Hours
		out.RawTotal += raw
		out.TotalSavings += savings
	}

	out.TotalHours = cumulative
	out.GrandTotal = math.Round(out.RawTotal)
	return out
}

// Preview is the live price of a booking still being configured.
type Preview struct {
	Cost    float64
	Savings float64
}

// Preview prices a hypothetical next booking placed after totalHours hours of cart.
// The cost is rounded before savings are taken from it.
func (s Schedule) Preview(totalHours, hours int, rate float64) Preview {
	cost := math.Round(s.RangeCost(totalHours, hours, rate))
	return Preview{
		Cost:    cost,
		Savings: float64(hours)*rate - cost,
	}
}
