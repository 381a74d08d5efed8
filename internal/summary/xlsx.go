package summary

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const quoteSheet = "Quote"

var quoteColumns = []string{"#", "Session", "Equipment", "Start", "End", "Hours", "Rate", "Cost", "Savings"}

// sheetWriter appends rows to a single excelize sheet.
type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func newSheetWriter(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	return &sheetWriter{file: f, sheet: sheet, row: 1}, nil
}

func (w *sheetWriter) writeRow(values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, v); err != nil {
			return err
		}
	}
	w.row++
	return nil
}

// bold styles the first cols cells of the last written row.
func (w *sheetWriter) bold(cols int) error {
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create bold style: %w", err)
	}
	start, err := excelize.CoordinatesToCellName(1, w.row-1)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(cols, w.row-1)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(w.sheet, start, end, style)
}

// WriteXLSX writes the summary as a one-sheet workbook: a header block with the date,
// one row per session and the totals.
func (s *Summary) WriteXLSX(out io.Writer) error {
	w, err := newSheetWriter(quoteSheet)
	if err != nil {
		return err
	}
	defer w.file.Close()

	if err := w.writeRow([]any{"Studio booking request", s.DateLabel()}); err != nil {
		return err
	}
	if err := w.bold(2); err != nil {
		return err
	}
	w.row++

	if err := w.writeRow(toAny(quoteColumns)); err != nil {
		return err
	}
	if err := w.bold(len(quoteColumns)); err != nil {
		return err
	}

	for i, it := range s.Items {
		row := []any{i + 1, it.Description, it.Equipment, it.Start, it.End, it.Hours, it.Rate, it.Cost, it.Savings}
		if err := w.writeRow(row); err != nil {
			return fmt.Errorf("write item %d: %w", i+1, err)
		}
	}

	w.row++
	if err := w.writeRow([]any{"", "Total hours", "", "", "", s.TotalHours}); err != nil {
		return err
	}
	if err := w.writeRow([]any{"", "Grand total", "", "", "", "", "", s.GrandTotal}); err != nil {
		return err
	}
	if err := w.writeRow([]any{"", "Total savings", "", "", "", "", "", "", s.TotalSavings}); err != nil {
		return err
	}

	return w.file.Write(out)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
