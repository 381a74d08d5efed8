package notify

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"studiobook/internal/summary"
)

// NewSheetsService builds a Sheets client from a service account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return sheets.NewService(ctx, option.WithCredentials(creds))
}

// Sheets appends one row per session of every confirmed request to a spreadsheet.
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
	now           func() time.Time
}

func NewSheets(service *sheets.Service, spreadsheetID, writeRange string) *Sheets {
	return &Sheets{service: service, spreadsheetID: spreadsheetID, writeRange: writeRange, now: time.Now}
}

func (s *Sheets) Name() string { return "sheets" }

func (s *Sheets) Notify(ctx context.Context, sum *summary.Summary) error {
	vr := &sheets.ValueRange{Values: requestRowValues(sum, s.now())}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.writeRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append request %s: %w", sum.CartID, err)
	}
	return nil
}

// requestRowValues lays out the ledger rows: received at, cart, date, session,
// equipment, start, end, hours, cost, savings, grand total.
func requestRowValues(s *summary.Summary, receivedAt time.Time) [][]interface{} {
	rows := make([][]interface{}, 0, len(s.Items))
	for _, it := range s.Items {
		rows = append(rows, []interface{}{
			receivedAt.Format("2006-01-02 15:04:05"),
			s.CartID,
			s.Date.Format("2006-01-02"),
			it.Description,
			it.Equipment,
			it.Start,
			it.End,
			it.Hours,
			it.Cost,
			it.Savings,
			s.GrandTotal,
		})
	}
	return rows
}
