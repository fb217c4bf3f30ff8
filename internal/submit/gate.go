package submit

import (
	"context"
	"fmt"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

// Gate checks that starting a capture session of the given kind respects
// the business order for today: ClockIn first, BreakOut only after BreakIn,
// no duplicate kind, nothing after ClockOut. Already-committed events and
// still-queued entries both count; offline, only the queue is visible,
// which is the best the device can know.
func (p *Pipeline) Gate(ctx context.Context, kind model.PunchKind) error {
	today := timeutil.CalendarDate(p.now())
	seen := map[model.PunchKind]bool{}

	if p.Remote.Online(ctx) {
		events, err := p.Remote.ListEvents(ctx, p.SubjectID, timeutil.StartOfDay(p.now()), timeutil.EndOfDay(p.now()))
		if err != nil {
			return fmt.Errorf("checking today's punches: %w", err)
		}
		for _, ev := range events {
			if ev.CalendarDate == today && !ev.Automatic {
				seen[ev.Kind] = true
			}
		}
	}

	pending, err := p.Queue.ListPending()
	if err != nil {
		return fmt.Errorf("checking queued punches: %w", err)
	}
	for _, e := range pending {
		if timeutil.SameDay(e.Record.CapturedAt, p.now()) {
			seen[e.Record.Kind] = true
		}
	}

	return checkOrder(seen, kind)
}

// checkOrder applies the one valid ordering of a day's punches.
func checkOrder(seen map[model.PunchKind]bool, kind model.PunchKind) error {
	if seen[kind] {
		return fmt.Errorf("%s already recorded today", kind)
	}
	if seen[model.ClockOut] {
		return fmt.Errorf("already clocked out today")
	}
	if kind != model.ClockIn && !seen[model.ClockIn] {
		return fmt.Errorf("%s requires a clock-in first", kind)
	}
	if kind == model.BreakOut && !seen[model.BreakIn] {
		return fmt.Errorf("break-out requires a break-in first")
	}
	return nil
}
