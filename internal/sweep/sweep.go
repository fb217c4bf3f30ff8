// Package sweep drains the local durable queue when connectivity returns,
// committing each entry to the remote store. Entries leave the queue only
// after a confirmed remote commit; a transient failure leaves them queued
// for the next sweep. Remote delivery is at-least-once — the ledger's
// first-wins selection tolerates the resulting duplicates.
package sweep

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/warekit/punchd/internal/queue"
	"github.com/warekit/punchd/internal/remote"
	"github.com/warekit/punchd/internal/submit"
	"github.com/warekit/punchd/internal/timeutil"
)

// Result holds counters for one sweep.
type Result struct {
	Succeeded int
	Failed    int
}

// Sweeper reconciles queued entries against the remote store.
type Sweeper struct {
	Queue     *queue.Queue
	Remote    remote.Store
	SubjectID string
	// Quiet suppresses the per-entry progress lines.
	Quiet bool
}

// Sweep runs one reconciliation pass over a snapshot of the pending set
// taken at sweep start. Entries enqueued mid-sweep are simply not in the
// snapshot and wait for the next trigger. Safe to invoke repeatedly and
// concurrently with new enqueues: listing and removal are scoped to
// individual local ids.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var result Result

	entries, err := s.Queue.ListPending()
	if err != nil {
		return result, fmt.Errorf("listing pending entries: %w", err)
	}

	for _, e := range entries {
		// The deferred commit mirrors the pipeline's online path exactly;
		// the event's server time is the moment of this commit.
		_, err := submit.Commit(ctx, s.Remote, s.SubjectID, e.Record, time.Now())
		if err != nil {
			result.Failed++
			if bumpErr := s.Queue.Bump(e); bumpErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not record attempt for %s: %v\n", e.LocalID, bumpErr)
			}
			s.printf("  ! Failed:  %s %s (%v)\n", e.Record.Kind, e.LocalID, err)
			continue
		}

		if _, err := s.Queue.Remove(e); err != nil {
			// The event is committed but the entry could not be removed;
			// the next sweep redelivers it and the ledger dedups.
			fmt.Fprintf(os.Stderr, "Warning: committed %s but could not dequeue: %v\n", e.LocalID, err)
		}
		result.Succeeded++
		s.printf("  ✓ Synced:  %s %s (%s)\n",
			e.Record.Kind, e.LocalID, timeutil.CalendarDate(e.Record.CapturedAt))
	}

	return result, nil
}

func (s *Sweeper) printf(format string, args ...any) {
	if !s.Quiet {
		fmt.Printf(format, args...)
	}
}
