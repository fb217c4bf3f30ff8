package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/sweep"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in the background, syncing whenever connectivity returns",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Connectivity probe interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	sweeper := a.sweeper()

	// The broadcaster is the cross-component "sync requested" signal: any
	// loop that notices pending work asks for a sweep instead of running
	// one itself, so sweeps happen in exactly one place.
	bcast := sweep.NewBroadcaster()
	requests, cancelSub := bcast.Subscribe()
	defer cancelSub()

	// Probe loop: wake the sweeper whenever the backend is reachable and
	// entries are pending. Connectivity restoration is just the first
	// reachable probe after a failed one.
	go func() {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !a.store.Online(ctx) {
					continue
				}
				pending, err := a.queue.ListPending()
				if err != nil {
					fmt.Fprintf(os.Stderr, "Warning: cannot inspect queue: %v\n", err)
					continue
				}
				if len(pending) > 0 {
					bcast.Notify()
				}
			}
		}
	}()

	// Live view: the day's committed punches, re-delivered on change.
	sub := a.store.Subscribe(ctx, a.cfg.Subject.ID, watchInterval)
	defer sub.Cancel()

	fmt.Printf("Watching for connectivity (probe every %s). Ctrl-C to stop.\n", watchInterval)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped.")
			return nil
		case <-requests:
			result, err := sweeper.Sweep(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Sweep error: %v\n", err)
				continue
			}
			if result.Succeeded+result.Failed > 0 {
				fmt.Printf("Sweep: %d synced, %d still queued\n", result.Succeeded, result.Failed)
			}
		case events, ok := <-sub.Snapshots:
			if !ok {
				continue
			}
			fmt.Printf("Today: %d punch(es) on record\n", len(events))
		case err, ok := <-sub.Errs:
			if ok && err != nil {
				fmt.Fprintf(os.Stderr, "Warning: live query: %v\n", err)
			}
		}
	}
}
