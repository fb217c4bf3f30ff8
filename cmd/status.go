package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/ledger"
	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's punches and queue depth",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	now := time.Now()
	online := a.store.Online(ctx)

	var events []model.AttendanceEvent
	if online {
		events, err = a.store.ListEvents(ctx, a.cfg.Subject.ID, timeutil.StartOfDay(now), timeutil.EndOfDay(now))
		if err != nil {
			fail(2, err)
		}
	}

	pending, err := a.queue.ListPending()
	if err != nil {
		fail(2, err)
	}

	merged := ledger.MergePending(events, pending, a.cfg.Subject.ID)
	records := ledger.DeriveDaily(merged, a.cfg.Subject.ID, now, now, ledger.Options{
		Now:      now,
		Calendar: a.cfg.Schedule.HolidaySet(),
		RestDays: a.cfg.Schedule.RestWeekdays(),
	})

	if online {
		fmt.Println("Backend: online")
	} else {
		fmt.Println("Backend: offline (showing local data only)")
	}

	rec := records[0]
	punches := map[model.PunchKind]*string{
		model.ClockIn:  rec.ClockIn,
		model.BreakIn:  rec.BreakIn,
		model.BreakOut: rec.BreakOut,
		model.ClockOut: rec.ClockOut,
	}
	fmt.Printf("Today (%s):\n", rec.Date)
	printed := false
	for _, kind := range model.Kinds() {
		if v := punches[kind]; v != nil {
			fmt.Printf("  %-10s %s\n", kind, *v)
			printed = true
		}
	}
	if !printed {
		fmt.Println("  no punches yet")
	}
	if rec.WorkedMinutes > 0 || rec.ClockOut != nil {
		fmt.Printf("  worked     %s\n", timeutil.FormatMinutes(rec.WorkedMinutes))
	}
	for _, f := range rec.Flags {
		fmt.Printf("  flag       %s\n", f)
	}

	if len(pending) > 0 {
		fmt.Printf("\n%d punch(es) waiting to sync.\n", len(pending))
	}
	return nil
}
