// Package ledger derives daily attendance records from the append-only
// punch event stream. Derivation is pure and recomputed on every read:
// nothing here is persisted, and any renderer can consume the output.
//
// Duplicate events are expected (the sweeper delivers at-least-once); the
// first event per (date, kind) in canonical order wins, which makes the
// derivation idempotent under duplication.
package ledger

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

// Workday rule constants, in minutes of day. 17:30 is the canonical
// evaluation boundary for both synthesizing and truncating a clock-out;
// 20:00 is only the backend sentinel writer's cutoff, which this engine
// merely tolerates through nulls-last ordering.
const (
	dayStart      = 8 * 60     // 08:00, earliest counted clock-in
	dayEnd        = 17 * 60    // 17:00, official end of day
	evalBoundary  = 17*60 + 30 // 17:30, missing/late clock-out boundary
	lateWindowEnd = 20 * 60    // 20:00, end of the truncation window
	standardDay   = 8 * 60     // expected worked minutes
	minutesPerDay = 24 * 60
)

// HolidayCalendar marks calendar dates as holidays. Implementations are
// external (a config list, a backend feed); nil means no holidays.
type HolidayCalendar interface {
	IsHoliday(date string) bool
}

// Options tune a derivation run.
type Options struct {
	// Now is the evaluation time for open days; zero means time.Now().
	Now time.Time
	// Calendar flags holidays; nil disables holiday annotation.
	Calendar HolidayCalendar
	// RestDays are the weekly rest days (e.g. Saturday, Sunday).
	RestDays []time.Weekday
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) restDay(wd time.Weekday) bool {
	for _, d := range o.RestDays {
		if d == wd {
			return true
		}
	}
	return false
}

// DeriveDaily derives one record per calendar day in [from, to] for the
// subject. Input ordering is irrelevant; events for other subjects are
// ignored. Output is sorted by date ascending.
func DeriveDaily(events []model.AttendanceEvent, subjectID string, from, to time.Time, opts Options) []model.DailyRecord {
	byDate := map[string][]model.AttendanceEvent{}
	for _, ev := range events {
		if ev.SubjectID != subjectID {
			continue
		}
		byDate[ev.CalendarDate] = append(byDate[ev.CalendarDate], ev)
	}

	var records []model.DailyRecord
	for d := timeutil.StartOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		date := timeutil.CalendarDate(d)
		records = append(records, deriveOneDay(byDate[date], subjectID, d, opts))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records
}

// selectPunches picks the winning event per punch kind: canonical order is
// server time ascending with nil server times last, so a real clock-out
// always beats an automatic sentinel.
func selectPunches(events []model.AttendanceEvent) map[model.PunchKind]model.AttendanceEvent {
	ordered := make([]model.AttendanceEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].ServerTime, ordered[j].ServerTime
		switch {
		case a == nil && b == nil:
			return ordered[i].DisplayTime < ordered[j].DisplayTime
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	selected := map[model.PunchKind]model.AttendanceEvent{}
	for _, ev := range ordered {
		if _, taken := selected[ev.Kind]; !taken {
			selected[ev.Kind] = ev
		}
	}
	return selected
}

func deriveOneDay(events []model.AttendanceEvent, subjectID string, day time.Time, opts Options) model.DailyRecord {
	rec := model.DailyRecord{Date: timeutil.CalendarDate(day), SubjectID: subjectID}

	holiday := opts.Calendar != nil && opts.Calendar.IsHoliday(rec.Date)
	rest := opts.restDay(day.Weekday())

	selected := selectPunches(events)
	if len(selected) == 0 {
		switch {
		case holiday:
			rec.Flags = append(rec.Flags, model.FlagHoliday)
		case rest:
			rec.Flags = append(rec.Flags, model.FlagRestDay)
		default:
			rec.Flags = append(rec.Flags, model.FlagAbsent)
		}
		return rec
	}
	if holiday {
		rec.Flags = append(rec.Flags, model.FlagHoliday)
	}

	minutes := map[model.PunchKind]int{}
	for kind, ev := range selected {
		display := ev.DisplayTime
		m, err := timeutil.ParseClock(display)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: unparseable punch time %q on %s, skipping %s\n", display, rec.Date, kind)
			continue
		}
		minutes[kind] = m
		d := display
		switch kind {
		case model.ClockIn:
			rec.ClockIn = &d
		case model.BreakIn:
			rec.BreakIn = &d
		case model.BreakOut:
			rec.BreakOut = &d
		case model.ClockOut:
			rec.ClockOut = &d
		}
	}

	rawIn, hasIn := minutes[model.ClockIn]
	rawOut, hasOut := minutes[model.ClockOut]
	if !hasIn {
		// Punches without a clock-in derive no duration.
		return rec
	}

	effIn := rawIn
	if effIn < dayStart {
		effIn = dayStart
		rec.Flags = append(rec.Flags, model.FlagEarlyClockInAdjusted)
	}

	var effOut int
	hasEffOut := false
	switch {
	case hasOut:
		effOut = rawOut
		hasEffOut = true
		if effOut >= evalBoundary && effOut <= lateWindowEnd && !selected[model.ClockOut].Automatic {
			effOut = dayEnd
			rec.Flags = append(rec.Flags, model.FlagLateClockOutTrunc)
		}
		if selected[model.ClockOut].Automatic {
			effOut = dayEnd
			rec.Flags = append(rec.Flags, model.FlagAutoClockOut)
		}
	case evalMinutes(day, opts.now()) >= evalBoundary:
		// Day is past the boundary with no clock-out: substitute the
		// official end of day.
		effOut = dayEnd
		hasEffOut = true
		rec.Flags = append(rec.Flags, model.FlagAutoClockOut)
	}

	if !hasEffOut {
		return rec
	}

	breakDur := 0
	if bi, ok := minutes[model.BreakIn]; ok {
		if bo, ok2 := minutes[model.BreakOut]; ok2 && bi < bo && bi >= effIn && bo <= effOut {
			breakDur = bo - bi
		}
	}

	worked := effOut - effIn - breakDur
	if worked < 0 {
		worked = 0
	}
	rec.WorkedMinutes = worked
	rec.UnderTime = standardDay - worked
	if rec.UnderTime < 0 {
		rec.UnderTime = 0
	}
	return rec
}

// evalMinutes returns the evaluation time for a day in minutes of day: the
// current wall clock for today, end of day for past days, and start of day
// for future days (nothing to auto-close yet).
func evalMinutes(day, now time.Time) int {
	if timeutil.SameDay(day, now) {
		return now.Hour()*60 + now.Minute()
	}
	if now.After(timeutil.EndOfDay(day)) {
		return minutesPerDay
	}
	return 0
}

// MergePending projects still-queued entries into not-yet-synced events so
// callers can derive a merged remote+local view. Projected events carry no
// server time, so any committed event of the same kind wins selection.
func MergePending(events []model.AttendanceEvent, pending []model.QueuedEntry, subjectID string) []model.AttendanceEvent {
	merged := make([]model.AttendanceEvent, len(events), len(events)+len(pending))
	copy(merged, events)
	for _, e := range pending {
		merged = append(merged, model.AttendanceEvent{
			ID:           e.LocalID,
			SubjectID:    subjectID,
			Kind:         e.Record.Kind,
			DisplayTime:  e.Record.CapturedAt.Format(timeutil.DisplayLayout),
			CalendarDate: timeutil.CalendarDate(e.Record.CapturedAt),
			Location:     e.Record.Location,
			Approval:     model.Pending,
			Note:         e.Record.Note,
		})
	}
	return merged
}
