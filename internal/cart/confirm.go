package cart

import (
	"math"
	"time"

	"studiobook/internal/availability"
	"studiobook/internal/summary"
	"studiobook/internal/timeutil"
)

// Confirm validates the cart and re-checks every slot against the current
// reservation snapshot. It returns a *ConfirmError listing the blocking bookings, or
// the summary to hand over to the messaging collaborators. Any conflict blocks.
func (c *Cart) Confirm() (*summary.Summary, error) {
	if issues := c.validate(); len(issues) > 0 {
		return nil, &ConfirmError{Kind: KindValidation, Issues: issues}
	}

	if !c.checker.Loaded() {
		return nil, &ConfirmError{
			Kind:   KindUnavailable,
			Issues: []BookingIssue{{Problem: "reservations are still loading"}},
		}
	}

	if issues := c.conflicts(); len(issues) > 0 {
		return nil, &ConfirmError{Kind: KindConflict, Issues: issues}
	}

	return c.summary(), nil
}

func (c *Cart) validate() []BookingIssue {
	if len(c.bookings) == 0 {
		return []BookingIssue{{Problem: "cart is empty"}}
	}

	var issues []BookingIssue
	if c.date == "" {
		issues = append(issues, BookingIssue{Problem: "no date selected"})
	} else if d, err := timeutil.ParseDate(c.date); err != nil || timeutil.IsBeforeDay(d, c.now()) {
		issues = append(issues, BookingIssue{Problem: "date is in the past"})
	}

	if !c.split {
		if p := startProblem(c.singleStart, c.TotalHours()); p != "" {
			issues = append(issues, BookingIssue{Problem: p})
		}
		return issues
	}

	for _, b := range c.bookings {
		if p := startProblem(c.starts[b.ID], b.Hours); p != "" {
			issues = append(issues, BookingIssue{BookingID: b.ID, Description: b.Description, Problem: p})
		}
	}
	return issues
}

func startProblem(start string, hours int) string {
	if start == "" {
		return "no start time selected"
	}
	m, err := timeutil.ParseClock(start)
	if err != nil {
		return problem(availability.ReasonInvalidTime)
	}
	if timeutil.CrossesMidnight(m, hours) {
		return problem(availability.ReasonPastMidnight)
	}
	return ""
}

// conflicts checks each booking on its own range so the failure names the bookings
// that clash. In single mode the ranges follow each other from the shared start.
func (c *Cart) conflicts() []BookingIssue {
	var issues []BookingIssue
	placed := c.Placed()
	prior := 0
	for _, b := range c.bookings {
		var res availability.Result
		if c.split {
			res = c.checker.Check(c.date, c.starts[b.ID], b.Hours, b.ID, placed)
		} else {
			res = c.checker.Check(c.date, timeutil.AddHours(c.singleStart, prior), b.Hours, b.ID, nil)
		}
		prior += b.Hours

		if !res.Available {
			issues = append(issues, BookingIssue{
				BookingID:   b.ID,
				Description: b.Description,
				Problem:     problem(res.Reason),
			})
		}
	}
	return issues
}

func problem(r availability.Reason) string {
	switch r {
	case availability.ReasonBooked:
		return "selected time is already booked"
	case availability.ReasonOverlap:
		return "overlaps another session in this cart"
	case availability.ReasonPastMidnight:
		return "session would run past midnight"
	case availability.ReasonInvalidTime:
		return "invalid start time"
	case availability.ReasonLoading:
		return "reservations are still loading"
	default:
		return "selected time is unavailable"
	}
}

// Summary renders the cart as it stands, without validation. Confirm is the only
// path that guarantees a complete, conflict-free summary.
func (c *Cart) Summary() *summary.Summary {
	return c.summary()
}

func (c *Cart) summary() *summary.Summary {
	totals := c.Totals()
	var date time.Time
	if c.date != "" {
		date, _ = timeutil.ParseDate(c.date)
	}

	s := &summary.Summary{
		CartID:       c.id,
		Date:         date,
		Split:        c.split,
		TotalHours:   totals.TotalHours,
		Items:        make([]summary.Item, 0, len(totals.Lines)),
		GrandTotal:   totals.GrandTotal,
		TotalSavings: math.Round(totals.TotalSavings),
	}
	if !c.split {
		s.Start = c.singleStart
		s.End = timeutil.AddHours(c.singleStart, totals.TotalHours)
	}

	for _, l := range totals.Lines {
		start := c.starts[l.ID]
		if !c.split {
			start = timeutil.AddHours(c.singleStart, l.PriorHours)
		}
		s.Items = append(s.Items, summary.Item{
			BookingID:   l.ID,
			Description: l.Description,
			Equipment:   l.Equipment,
			Start:       start,
			End:         timeutil.AddHours(start, l.Hours),
			Hours:       l.Hours,
			Rate:        l.Rate,
			Cost:        math.Round(l.DisplayCost),
			Savings:     math.Round(l.Savings),
		})
	}
	return s
}
