// Package export renders derived daily attendance records for external
// consumers: CSV, JSON and XLSX.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

var csvHeader = []string{
	"date", "subject", "clock_in", "break_in", "break_out", "clock_out",
	"worked", "under_time", "flags",
}

// CSV writes the records as delimited text with a header row.
func CSV(w io.Writer, records []model.DailyRecord) error {
	if _, err := fmt.Fprintln(w, strings.Join(csvHeader, ",")); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date,
			csvEscape(r.SubjectID),
			orEmpty(r.ClockIn),
			orEmpty(r.BreakIn),
			orEmpty(r.BreakOut),
			orEmpty(r.ClockOut),
			timeutil.FormatMinutes(r.WorkedMinutes),
			timeutil.FormatMinutes(r.UnderTime),
			csvEscape(flagList(r)),
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes the records as an indented JSON array.
func JSON(w io.Writer, records []model.DailyRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// XLSX writes the records as a one-sheet workbook.
func XLSX(w io.Writer, records []model.DailyRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Attendance"
	f.SetSheetName("Sheet1", sheet)

	header := []any{"Date", "Subject", "Clock In", "Break In", "Break Out", "Clock Out", "Worked", "Under Time", "Flags"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Date,
			r.SubjectID,
			orEmpty(r.ClockIn),
			orEmpty(r.BreakIn),
			orEmpty(r.BreakOut),
			orEmpty(r.ClockOut),
			timeutil.FormatMinutes(r.WorkedMinutes),
			timeutil.FormatMinutes(r.UnderTime),
			flagList(r),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func flagList(r model.DailyRecord) string {
	parts := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ";")
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
