package remote

import (
	"context"
	"strings"
	"time"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

// Subscription is a cancellable live-query handle. Each delivery is the full
// current matching set for the subject's day, mirroring the backend's
// push-based re-delivery semantics. Re-subscribing restarts the stream.
type Subscription struct {
	Snapshots <-chan []model.AttendanceEvent
	Errs      <-chan error
	cancel    context.CancelFunc
}

// Cancel stops the subscription. The snapshot channel is closed afterwards.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Subscribe polls the subject's events for the current day at the given
// interval and delivers a snapshot whenever the set changes. A zero interval
// defaults to 30 seconds.
func (c *Client) Subscribe(ctx context.Context, subjectID string, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	snapshots := make(chan []model.AttendanceEvent, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errs)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastSig := "\x00" // never matches a real snapshot
		deliver := func() {
			now := time.Now()
			events, err := c.ListEvents(ctx, subjectID, timeutil.StartOfDay(now), timeutil.EndOfDay(now))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case errs <- err:
				default:
				}
				return
			}
			sig := snapshotSignature(events)
			if sig == lastSig {
				return
			}
			lastSig = sig
			select {
			case snapshots <- events:
			case <-ctx.Done():
			}
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deliver()
			}
		}
	}()

	return &Subscription{Snapshots: snapshots, Errs: errs, cancel: cancel}
}

// snapshotSignature fingerprints a result set by id and approval status,
// the one field a committed event can change; a same-size set with a
// flipped approval still counts as a change.
func snapshotSignature(events []model.AttendanceEvent) string {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString(ev.ID)
		b.WriteByte('=')
		b.WriteString(string(ev.Approval))
		b.WriteByte('\n')
	}
	return b.String()
}
