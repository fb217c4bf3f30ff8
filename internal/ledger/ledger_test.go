package ledger_test

import (
	"testing"
	"time"

	"github.com/warekit/punchd/internal/ledger"
	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

const subject = "emp-042"

var day = time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC) // a Friday

// event builds a committed event on the test day whose server time tracks
// the display clock, which is good enough for ordering.
func event(kind model.PunchKind, display string) model.AttendanceEvent {
	m, err := timeutil.ParseClock(display)
	if err != nil {
		panic(err)
	}
	st := day.Add(time.Duration(m) * time.Minute)
	return model.AttendanceEvent{
		ID:           display + "/" + kind.String(),
		SubjectID:    subject,
		Kind:         kind,
		ServerTime:   &st,
		DisplayTime:  display,
		CalendarDate: timeutil.CalendarDate(day),
		Approval:     model.Approved,
	}
}

func deriveDay(t *testing.T, events []model.AttendanceEvent, opts ledger.Options) model.DailyRecord {
	t.Helper()
	records := ledger.DeriveDaily(events, subject, day, day, opts)
	if len(records) != 1 {
		t.Fatalf("DeriveDaily returned %d records, want 1", len(records))
	}
	return records[0]
}

func TestEarlyInAndOrdinaryOut(t *testing.T) {
	// Clock-in before 08:00 counts from 08:00; a 05:10 PM clock-out is
	// before the 17:30 boundary and counts as-is.
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "07:45 AM"),
		event(model.ClockOut, "05:10 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.WorkedMinutes != 550 {
		t.Errorf("WorkedMinutes = %d (%s), want 550 (9h 10m)", rec.WorkedMinutes, timeutil.FormatMinutes(rec.WorkedMinutes))
	}
	if rec.UnderTime != 0 {
		t.Errorf("UnderTime = %d, want 0", rec.UnderTime)
	}
	if !rec.HasFlag(model.FlagEarlyClockInAdjusted) {
		t.Error("missing early clock-in flag")
	}
	if rec.HasFlag(model.FlagLateClockOutTrunc) {
		t.Error("unexpected truncation flag for a 05:10 PM clock-out")
	}
}

func TestMissingClockOutPastBoundary(t *testing.T) {
	// Evaluated at 17:45 with no clock-out: the official end of day is
	// substituted and the record flagged.
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "08:00 AM"),
	}, ledger.Options{Now: day.Add(17*time.Hour + 45*time.Minute)})

	if rec.WorkedMinutes != 540 {
		t.Errorf("WorkedMinutes = %d, want 540 (9h)", rec.WorkedMinutes)
	}
	if !rec.HasFlag(model.FlagAutoClockOut) {
		t.Error("missing auto clock-out flag")
	}
}

func TestMissingClockOutBeforeBoundary(t *testing.T) {
	// At 16:00 the day is still open: no duration, no flags.
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "08:00 AM"),
	}, ledger.Options{Now: day.Add(16 * time.Hour)})

	if rec.WorkedMinutes != 0 {
		t.Errorf("WorkedMinutes = %d, want 0 for an open day", rec.WorkedMinutes)
	}
	if rec.HasFlag(model.FlagAutoClockOut) {
		t.Error("open day must not carry the auto clock-out flag")
	}
}

func TestBreakDeduction(t *testing.T) {
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "08:00 AM"),
		event(model.BreakIn, "12:00 PM"),
		event(model.BreakOut, "01:00 PM"),
		event(model.ClockOut, "05:00 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.WorkedMinutes != 480 {
		t.Errorf("WorkedMinutes = %d, want 480 (8h)", rec.WorkedMinutes)
	}
	if rec.UnderTime != 0 {
		t.Errorf("UnderTime = %d, want 0", rec.UnderTime)
	}
}

func TestInvalidBreakPairIgnored(t *testing.T) {
	// Break-out before break-in is not a valid pair; nothing is deducted.
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "08:00 AM"),
		event(model.BreakIn, "01:00 PM"),
		event(model.BreakOut, "12:00 PM"),
		event(model.ClockOut, "05:00 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.WorkedMinutes != 540 {
		t.Errorf("WorkedMinutes = %d, want 540 (no break deducted)", rec.WorkedMinutes)
	}
}

func TestUnderTime(t *testing.T) {
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "09:00 AM"),
		event(model.ClockOut, "03:00 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.WorkedMinutes != 360 {
		t.Errorf("WorkedMinutes = %d, want 360", rec.WorkedMinutes)
	}
	if rec.UnderTime != 120 {
		t.Errorf("UnderTime = %d, want 120", rec.UnderTime)
	}
}

func TestLateClockOutTruncated(t *testing.T) {
	// A real clock-out at 06:30 PM lands inside the truncation window and
	// counts as 05:00 PM.
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "08:00 AM"),
		event(model.ClockOut, "06:30 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.WorkedMinutes != 540 {
		t.Errorf("WorkedMinutes = %d, want 540 (truncated to 05:00 PM)", rec.WorkedMinutes)
	}
	if !rec.HasFlag(model.FlagLateClockOutTrunc) {
		t.Error("missing truncation flag")
	}
}

func TestDuplicateEventsAreIdempotent(t *testing.T) {
	events := []model.AttendanceEvent{
		event(model.ClockIn, "08:00 AM"),
		event(model.ClockOut, "05:00 PM"),
	}
	// The sweeper delivers at-least-once, so the same punches may appear
	// twice. Derivation must not change.
	doubled := append(append([]model.AttendanceEvent{}, events...), events...)

	once := deriveDay(t, events, ledger.Options{Now: day.Add(23 * time.Hour)})
	twice := deriveDay(t, doubled, ledger.Options{Now: day.Add(23 * time.Hour)})

	if once.WorkedMinutes != twice.WorkedMinutes || once.UnderTime != twice.UnderTime {
		t.Errorf("duplicated stream changed derivation: %d/%d vs %d/%d",
			once.WorkedMinutes, once.UnderTime, twice.WorkedMinutes, twice.UnderTime)
	}
}

func TestFirstPunchPerKindWins(t *testing.T) {
	// Two clock-ins: the one with the earlier server time wins regardless
	// of input order.
	rec := deriveDay(t, []model.AttendanceEvent{
		event(model.ClockIn, "09:30 AM"),
		event(model.ClockIn, "08:15 AM"),
		event(model.ClockOut, "05:00 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.ClockIn == nil || *rec.ClockIn != "08:15 AM" {
		t.Errorf("ClockIn = %v, want 08:15 AM", rec.ClockIn)
	}
}

func TestRealClockOutBeatsSentinel(t *testing.T) {
	// An automatic sentinel carries no server time and must lose to any
	// committed clock-out.
	sentinel := model.AttendanceEvent{
		ID:           "sentinel",
		SubjectID:    subject,
		Kind:         model.ClockOut,
		DisplayTime:  "05:00 PM",
		CalendarDate: timeutil.CalendarDate(day),
		Automatic:    true,
	}
	rec := deriveDay(t, []model.AttendanceEvent{
		sentinel,
		event(model.ClockIn, "08:00 AM"),
		event(model.ClockOut, "04:30 PM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if rec.ClockOut == nil || *rec.ClockOut != "04:30 PM" {
		t.Errorf("ClockOut = %v, want the real 04:30 PM punch", rec.ClockOut)
	}
	if rec.HasFlag(model.FlagAutoClockOut) {
		t.Error("real clock-out must not carry the auto flag")
	}
}

func TestAutomaticClockOutFlagged(t *testing.T) {
	sentinel := model.AttendanceEvent{
		ID:           "sentinel",
		SubjectID:    subject,
		Kind:         model.ClockOut,
		DisplayTime:  "05:00 PM",
		CalendarDate: timeutil.CalendarDate(day),
		Automatic:    true,
	}
	rec := deriveDay(t, []model.AttendanceEvent{
		sentinel,
		event(model.ClockIn, "08:00 AM"),
	}, ledger.Options{Now: day.Add(23 * time.Hour)})

	if !rec.HasFlag(model.FlagAutoClockOut) {
		t.Error("missing auto clock-out flag for a sentinel-closed day")
	}
	if rec.WorkedMinutes != 540 {
		t.Errorf("WorkedMinutes = %d, want 540", rec.WorkedMinutes)
	}
}

type holidays map[string]bool

func (h holidays) IsHoliday(date string) bool { return h[date] }

func TestEmptyDayClassification(t *testing.T) {
	saturday := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		day  time.Time
		opts ledger.Options
		want model.AnomalyFlag
	}{
		{"workday", day, ledger.Options{Now: now}, model.FlagAbsent},
		{"holiday", day, ledger.Options{Now: now, Calendar: holidays{timeutil.CalendarDate(day): true}}, model.FlagHoliday},
		{"rest day", saturday, ledger.Options{Now: now, RestDays: []time.Weekday{time.Saturday, time.Sunday}}, model.FlagRestDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := ledger.DeriveDaily(nil, subject, tt.day, tt.day, tt.opts)
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if !records[0].HasFlag(tt.want) {
				t.Errorf("flags = %v, want %s", records[0].Flags, tt.want)
			}
			if records[0].WorkedMinutes != 0 {
				t.Errorf("WorkedMinutes = %d, want 0", records[0].WorkedMinutes)
			}
		})
	}
}

func TestOtherSubjectsIgnored(t *testing.T) {
	foreign := event(model.ClockIn, "08:00 AM")
	foreign.SubjectID = "someone-else"
	rec := deriveDay(t, []model.AttendanceEvent{foreign},
		ledger.Options{Now: day.Add(23 * time.Hour)})

	if !rec.HasFlag(model.FlagAbsent) {
		t.Errorf("flags = %v, want absent (foreign events ignored)", rec.Flags)
	}
}

func TestDeriveDailyRange(t *testing.T) {
	monday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	friday := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	records := ledger.DeriveDaily(nil, subject, monday, friday,
		ledger.Options{Now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)})
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if records[0].Date != "2026-02-23" || records[4].Date != "2026-02-27" {
		t.Errorf("range = [%s, %s], want [2026-02-23, 2026-02-27]", records[0].Date, records[4].Date)
	}
}

func TestMergePending(t *testing.T) {
	captured := day.Add(8 * time.Hour)
	pending := []model.QueuedEntry{{
		LocalID:    "local-1",
		EnqueuedAt: captured,
		Record: model.CaptureRecord{
			CapturedAt: captured,
			Kind:       model.ClockIn,
		},
	}}

	merged := ledger.MergePending(nil, pending, subject)
	if len(merged) != 1 {
		t.Fatalf("merged = %d events, want 1", len(merged))
	}
	ev := merged[0]
	if ev.ServerTime != nil {
		t.Error("projected event must carry no server time")
	}
	if ev.DisplayTime != "08:00 AM" {
		t.Errorf("DisplayTime = %q, want 08:00 AM", ev.DisplayTime)
	}

	// A committed clock-in of the same day must win over the projection.
	committed := event(model.ClockIn, "07:55 AM")
	rec := deriveDay(t, ledger.MergePending([]model.AttendanceEvent{committed}, pending, subject),
		ledger.Options{Now: day.Add(10 * time.Hour)})
	if rec.ClockIn == nil || *rec.ClockIn != "07:55 AM" {
		t.Errorf("ClockIn = %v, want the committed 07:55 AM punch", rec.ClockIn)
	}
}
