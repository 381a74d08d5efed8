// Package summary renders a confirmed cart as the booking request sent to the studio
// manager: WhatsApp-flavoured text, a wa.me deep link and an XLSX quote.
package summary

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"studiobook/internal/timeutil"
)

const rule = "--------------------------------"

// Item is one priced session of the request. Money values are already rounded.
type Item struct {
	BookingID   string  `json:"booking_id"`
	Description string  `json:"description"`
	Equipment   string  `json:"equipment"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Hours       int     `json:"hours"`
	Rate        float64 `json:"rate"`
	Cost        float64 `json:"cost"`
	Savings     float64 `json:"savings"`
}

// Summary is the structured booking request handed to messaging collaborators.
type Summary struct {
	CartID       string    `json:"cart_id"`
	Date         time.Time `json:"date"`
	Split        bool      `json:"split"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	TotalHours   int       `json:"total_hours"`
	Items        []Item    `json:"items"`
	GrandTotal   float64   `json:"grand_total"`
	TotalSavings float64   `json:"total_savings"`
}

// DateLabel renders the date as "20 Oct 2026".
func (s *Summary) DateLabel() string {
	if s.Date.IsZero() {
		return "not selected"
	}
	return s.Date.Format("2 Jan 2006")
}

// Text renders the request message.
func (s *Summary) Text() string {
	var b strings.Builder

	b.WriteString("*STUDIO BOOKING REQUEST*\n\n")
	fmt.Fprintf(&b, "*Date:* %s\n", s.DateLabel())
	b.WriteString(rule + "\n\n")

	if s.Split {
		for i, it := range s.Items {
			fmt.Fprintf(&b, "*%d. %s*\n", i+1, it.Description)
			fmt.Fprintf(&b, "   Time: %s - %s (%d %s)\n",
				timeutil.Display12h(it.Start), timeutil.Display12h(it.End), it.Hours, hrs(it.Hours))
			fmt.Fprintf(&b, "   Cost: %s", FormatINR(it.Cost))
			if it.Savings > 0 {
				fmt.Fprintf(&b, "  _(Saved %s)_", FormatINR(it.Savings))
			}
			b.WriteString("\n\n")
		}
	} else {
		fmt.Fprintf(&b, "*Time:* %s - %s\n", timeutil.Display12h(s.Start), timeutil.Display12h(s.End))
		fmt.Fprintf(&b, "*Duration:* %d %s\n\n", s.TotalHours, hrs(s.TotalHours))
		b.WriteString("*Session Details:*\n")
		for _, it := range s.Items {
			fmt.Fprintf(&b, "- %s : %s", it.Description, FormatINR(it.Cost))
			if it.Savings > 0 {
				fmt.Fprintf(&b, " _(Saved %s)_", FormatINR(it.Savings))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "*GRAND TOTAL: %s*", FormatINR(s.GrandTotal))
	if s.TotalSavings > 0 {
		fmt.Fprintf(&b, "\n*Total Savings: %s*", FormatINR(s.TotalSavings))
	}
	b.WriteString("\n" + rule + "\n")
	b.WriteString("\nPlease confirm availability.")

	return b.String()
}

func hrs(n int) string {
	if n > 1 {
		return "hrs"
	}
	return "hr"
}

// WhatsAppLink builds a wa.me deep link that opens a chat with number prefilled
// with text.
func WhatsAppLink(number, text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + number + "?text=" + escaped
}
