package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile queued punches against the backend",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	if !a.store.Online(ctx) {
		fmt.Fprintln(os.Stderr, "Backend is unreachable; queued punches stay pending.")
		os.Exit(1)
	}

	fmt.Println("Sweeping queued punches...")
	result, err := a.sweeper().Sweep(ctx)
	if err != nil {
		fail(2, err)
	}

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  %d synced\n", result.Succeeded)
	fmt.Printf("  %d failed (still queued)\n", result.Failed)
	if result.Failed > 0 {
		// Partial failure is a count, not an exception; entries stay
		// queued for the next trigger.
		os.Exit(2)
	}
	return nil
}
