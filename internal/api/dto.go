package api

import (
	"math"

	"studiobook/internal/cart"
	"studiobook/internal/summary"
)

type itemRequest struct {
	ServiceKind string `json:"service_kind" validate:"required,oneof=video audio"`
	CameraCount int    `json:"camera_count" validate:"min=0,max=3"`
	Hours       int    `json:"hours" validate:"required,min=1"`
}

type scheduleRequest struct {
	Date   *string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Split  *bool             `json:"split"`
	Start  *string           `json:"start"`
	Starts map[string]string `json:"starts"`
	Active string            `json:"active"`
}

type packageRequest struct {
	CameraCount     int  `json:"camera_count" validate:"required,min=1,max=3"`
	ReelCount       int  `json:"reel_count" validate:"required,min=1"`
	FullLengthCount int  `json:"full_length_count" validate:"min=0"`
	PosterCount     int  `json:"poster_count" validate:"min=0"`
	SameShoot       bool `json:"same_shoot"`
}

type previewResponse struct {
	Cost     float64 `json:"cost"`
	Savings  float64 `json:"savings"`
	MinHours int     `json:"min_hours"`
}

type lineView struct {
	cart.Booking
	PriorHours int     `json:"prior_hours"`
	Cost       float64 `json:"cost"`
	Savings    float64 `json:"savings"`
}

type cartView struct {
	ID           string      `json:"id"`
	Split        bool        `json:"split"`
	Date         string      `json:"date,omitempty"`
	Start        string      `json:"start,omitempty"`
	Active       string      `json:"active,omitempty"`
	Items        []lineView  `json:"items"`
	Slots        []cart.Slot `json:"slots"`
	TotalHours   int         `json:"total_hours"`
	GrandTotal   float64     `json:"grand_total"`
	TotalSavings float64     `json:"total_savings"`
}

func newCartView(c *cart.Cart) cartView {
	totals := c.Totals()
	v := cartView{
		ID:           c.ID(),
		Split:        c.Split(),
		Date:         c.Date(),
		Start:        c.Start(),
		Active:       c.Active(),
		Items:        make([]lineView, 0, len(totals.Lines)),
		Slots:        c.Slots(),
		TotalHours:   totals.TotalHours,
		GrandTotal:   totals.GrandTotal,
		TotalSavings: math.Round(totals.TotalSavings),
	}
	for _, l := range totals.Lines {
		v.Items = append(v.Items, lineView{
			Booking:    l.Booking,
			PriorHours: l.PriorHours,
			Cost:       math.Round(l.DisplayCost),
			Savings:    math.Round(l.Savings),
		})
	}
	return v
}

type confirmResponse struct {
	Summary      *summary.Summary `json:"summary"`
	Text         string           `json:"text"`
	WhatsAppLink string           `json:"whatsapp_link,omitempty"`
	Delivered    bool             `json:"delivered"`
}

type clockHour struct {
	Hour       int  `json:"hour"`
	Selectable bool `json:"selectable"`
}

type clockResponse struct {
	Date  string      `json:"date"`
	Hours int         `json:"hours"`
	AM    []clockHour `json:"am"`
	PM    []clockHour `json:"pm"`
}
