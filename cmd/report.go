package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/export"
	"github.com/warekit/punchd/internal/ledger"
	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

var (
	reportDate   string
	reportFrom   string
	reportTo     string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show derived daily attendance records",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Report a specific date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Range start (YYYY-MM-DD); required when --to is specified")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Range end (YYYY-MM-DD); defaults to today")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

// reportRange resolves the --date/--from/--to flags; the default is the
// current ISO week.
func reportRange(now time.Time) (time.Time, time.Time, error) {
	switch {
	case reportDate != "":
		d, err := time.Parse(timeutil.DateLayout, reportDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --date value %q: %v", reportDate, err)
		}
		return timeutil.StartOfDay(d), timeutil.EndOfDay(d), nil

	case reportFrom != "" || reportTo != "":
		if reportTo != "" && reportFrom == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--from is required when --to is specified")
		}
		from, err := time.Parse(timeutil.DateLayout, reportFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from value %q: %v", reportFrom, err)
		}
		to := timeutil.EndOfDay(now)
		if reportTo != "" {
			t, err := time.Parse(timeutil.DateLayout, reportTo)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --to value %q: %v", reportTo, err)
			}
			to = timeutil.EndOfDay(t)
		}
		return timeutil.StartOfDay(from), to, nil

	default:
		from, to := timeutil.WeekRange(now)
		return from, to, nil
	}
}

// rangeLabel names the reported range: the ISO week label when the default
// week is shown, the plain date range otherwise.
func rangeLabel(from, to time.Time) string {
	monday, sunday := timeutil.WeekRange(from)
	if timeutil.SameDay(from, monday) && timeutil.SameDay(to, sunday) {
		return timeutil.ISOWeekLabel(from)
	}
	if timeutil.SameDay(from, to) {
		return timeutil.CalendarDate(from)
	}
	return timeutil.CalendarDate(from) + " to " + timeutil.CalendarDate(to)
}

// deriveRange fetches the subject's events (merged with still-queued
// punches) and derives daily records for [from, to].
func (a *app) deriveRange(ctx context.Context, from, to, now time.Time) ([]model.DailyRecord, error) {
	var events []model.AttendanceEvent
	if a.store.Online(ctx) {
		var err error
		events, err = a.store.ListEvents(ctx, a.cfg.Subject.ID, from, to)
		if err != nil {
			return nil, err
		}
	} else {
		fmt.Fprintln(os.Stderr, "Warning: backend unreachable, deriving from queued punches only")
	}

	pending, err := a.queue.ListPending()
	if err != nil {
		return nil, err
	}

	merged := ledger.MergePending(events, pending, a.cfg.Subject.ID)
	return ledger.DeriveDaily(merged, a.cfg.Subject.ID, from, to, ledger.Options{
		Now:      now,
		Calendar: a.cfg.Schedule.HolidaySet(),
		RestDays: a.cfg.Schedule.RestWeekdays(),
	}), nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	now := time.Now()

	from, to, err := reportRange(now)
	if err != nil {
		fail(1, err)
	}

	a, err := newApp(ctx)
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	records, err := a.deriveRange(ctx, from, to, now)
	if err != nil {
		fail(2, err)
	}

	switch reportFormat {
	case "csv":
		if err := export.CSV(os.Stdout, records); err != nil {
			fail(2, err)
		}
	case "json":
		if err := export.JSON(os.Stdout, records); err != nil {
			fail(2, err)
		}
	default: // md
		printReport(rangeLabel(from, to), records)
	}
	return nil
}

func printReport(label string, records []model.DailyRecord) {
	fmt.Printf("Attendance %s\n", label)
	or := func(s *string) string {
		if s == nil {
			return "-"
		}
		return *s
	}
	fmt.Printf("%-12s %-9s %-9s %-9s %-9s %-8s %-8s %s\n",
		"date", "in", "break", "resume", "out", "worked", "under", "flags")
	fmt.Println("--------------------------------------------------------------------------------")
	var totalWorked, totalUnder int
	for _, r := range records {
		totalWorked += r.WorkedMinutes
		totalUnder += r.UnderTime
		flags := ""
		for i, f := range r.Flags {
			if i > 0 {
				flags += ";"
			}
			flags += string(f)
		}
		fmt.Printf("%-12s %-9s %-9s %-9s %-9s %-8s %-8s %s\n",
			r.Date, or(r.ClockIn), or(r.BreakIn), or(r.BreakOut), or(r.ClockOut),
			timeutil.FormatMinutes(r.WorkedMinutes), timeutil.FormatMinutes(r.UnderTime), flags)
	}
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("%-12s %-39s %-8s %-8s\n", "Total", "",
		timeutil.FormatMinutes(totalWorked), timeutil.FormatMinutes(totalUnder))
}
