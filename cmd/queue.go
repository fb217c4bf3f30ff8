package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/timeutil"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List punches waiting to sync",
	Args:  cobra.NoArgs,
	RunE:  runQueue,
}

func runQueue(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	entries, err := a.queue.ListPending()
	if err != nil {
		fail(2, err)
	}

	if len(entries) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}

	now := time.Now()
	for _, e := range entries {
		stale := ""
		if e.AttemptCount >= a.cfg.Sweep.StaleAfterAttempts {
			stale = " [stale]"
		}
		age := now.Sub(e.EnqueuedAt).Round(time.Minute)
		fmt.Printf("%s  %-9s  captured %s  queued %s (%d attempts)%s\n",
			e.LocalID,
			e.Record.Kind,
			e.Record.CapturedAt.Format("2006-01-02 15:04"),
			timeutil.FormatMinutes(int(age.Minutes()))+" ago",
			e.AttemptCount,
			stale,
		)
	}
	fmt.Printf("\n%d pending. Run \"punchd sync\" to reconcile.\n", len(entries))
	return nil
}
