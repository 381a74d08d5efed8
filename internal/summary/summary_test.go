package summary

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample(split bool) *Summary {
	return &Summary{
		CartID:     "c1",
		Date:       time.Date(2026, 10, 20, 0, 0, 0, 0, time.Local),
		Split:      split,
		Start:      "09:00",
		End:        "14:00",
		TotalHours: 5,
		Items: []Item{
			{BookingID: "a", Description: "Single Cam Setup", Equipment: "1 Camera(s)", Start: "09:00", End: "11:00", Hours: 2, Rate: 1500, Cost: 3000},
			{BookingID: "b", Description: "Two Cam Setup", Equipment: "2 Camera(s)", Start: "11:00", End: "14:00", Hours: 3, Rate: 2500, Cost: 6625, Savings: 875},
		},
		GrandTotal:   9625,
		TotalSavings: 875,
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0"},
		{799, "₹799"},
		{3000, "₹3,000"},
		{9624.6, "₹9,625"},
		{123456, "₹1,23,456"},
		{12345678, "₹1,23,45,678"},
		{-1500, "-₹1,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatINR(tt.in))
	}
}

func TestTextSingleMode(t *testing.T) {
	want := "*STUDIO BOOKING REQUEST*\n\n" +
		"*Date:* 20 Oct 2026\n" +
		"--------------------------------\n\n" +
		"*Time:* 9:00 AM - 2:00 PM\n" +
		"*Duration:* 5 hrs\n\n" +
		"*Session Details:*\n" +
		"- Single Cam Setup : ₹3,000\n" +
		"- Two Cam Setup : ₹6,625 _(Saved ₹875)_\n" +
		"\n" +
		"--------------------------------\n" +
		"*GRAND TOTAL: ₹9,625*\n" +
		"*Total Savings: ₹875*\n" +
		"--------------------------------\n" +
		"\nPlease confirm availability."

	assert.Equal(t, want, sample(false).Text())
}

func TestTextSplitMode(t *testing.T) {
	s := sample(true)
	s.Items[0].Hours = 1
	s.Items[0].End = "10:00"

	text := s.Text()
	assert.Contains(t, text, "*1. Single Cam Setup*\n   Time: 9:00 AM - 10:00 AM (1 hr)\n   Cost: ₹3,000\n\n")
	assert.Contains(t, text, "*2. Two Cam Setup*\n   Time: 11:00 AM - 2:00 PM (3 hrs)\n   Cost: ₹6,625  _(Saved ₹875)_\n\n")
	assert.NotContains(t, text, "*Session Details:*")
}

func TestTextOmitsZeroSavings(t *testing.T) {
	s := sample(false)
	s.Items = s.Items[:1]
	s.TotalSavings = 0

	assert.NotContains(t, s.Text(), "Saved")
	assert.NotContains(t, s.Text(), "Total Savings")
}

func TestWhatsAppLink(t *testing.T) {
	link := WhatsAppLink("919999999999", "Hi there\n*Total:* ₹1,000 & more")

	require.True(t, strings.HasPrefix(link, "https://wa.me/919999999999?text="))
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "Hi%20there%0A")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n*Total:* ₹1,000 & more", u.Query().Get("text"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample(false).WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(quoteSheet, cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Studio booking request", get("A1"))
	assert.Equal(t, "20 Oct 2026", get("B1"))
	assert.Equal(t, "Session", get("B3"))
	assert.Equal(t, "Single Cam Setup", get("B4"))
	assert.Equal(t, "Two Cam Setup", get("B5"))
	assert.Equal(t, "3", get("F5"))
	assert.Equal(t, "Grand total", get("B8"))
	assert.Equal(t, "9625", get("H8"))

	isBold := func(cell string) bool {
		idx, err := f.GetCellStyle(quoteSheet, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(idx)
		require.NoError(t, err)
		return style.Font != nil && style.Font.Bold
	}
	assert.True(t, isBold("A1"))
	assert.True(t, isBold("I3"))
}

func TestSheetWriterBoldReportsErrors(t *testing.T) {
	w, err := newSheetWriter(quoteSheet)
	require.NoError(t, err)
	defer w.file.Close()

	// Nothing written yet, so there is no previous row to style.
	assert.Error(t, w.bold(2))

	require.NoError(t, w.writeRow([]any{"a", "b"}))
	assert.NoError(t, w.bold(2))
}
