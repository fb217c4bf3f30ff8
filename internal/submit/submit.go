// Package submit is the submission pipeline: it tries to commit a capture
// record to the remote store and falls back to the local durable queue on
// any failure. No synchronous retries happen here — retrying queued entries
// is the sweeper's job.
package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/queue"
	"github.com/warekit/punchd/internal/remote"
	"github.com/warekit/punchd/internal/timeutil"
)

// State is the uniform result of a submission.
type State int

const (
	// Committed: photo uploaded and event written remotely.
	Committed State = iota
	// Queued: remote commit failed or device offline; the record is held
	// in the local durable queue for a later sweep.
	Queued
	// Failed: both queue backends failed. The capture is lost unless the
	// caller surfaces this loudly.
	Failed
)

// Outcome reports how a capture record was disposed of.
type Outcome struct {
	State    State
	PhotoURL string // set when Committed
	LocalID  string // set when Queued
	Err      error  // set when Failed
}

// Pipeline commits capture records for one subject.
type Pipeline struct {
	Remote    remote.Store
	Queue     *queue.Queue
	SubjectID string
	Now       func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Submit disposes of one capture record: remote commit when online, local
// enqueue otherwise. Once a record reaches Submit it is never silently
// dropped — the outcome is Committed, Queued, or a loud Failed.
func (p *Pipeline) Submit(ctx context.Context, rec model.CaptureRecord) Outcome {
	if p.Remote.Online(ctx) {
		url, err := Commit(ctx, p.Remote, p.SubjectID, rec, p.now())
		if err == nil {
			return Outcome{State: Committed, PhotoURL: url}
		}
		// Fall through to the queue; a remote failure is not a user error.
	}

	localID, err := p.Queue.Enqueue(rec, p.now())
	if err != nil {
		return Outcome{State: Failed, Err: err}
	}
	return Outcome{State: Queued, LocalID: localID}
}

// Commit performs the online path: upload the photo, then write the event
// referencing its URL. The sweeper reuses it verbatim for queued entries,
// so deferred commits are indistinguishable from live ones.
func Commit(ctx context.Context, store remote.Store, subjectID string, rec model.CaptureRecord, serverTime time.Time) (string, error) {
	date := timeutil.CalendarDate(rec.CapturedAt)
	name := fmt.Sprintf("%s-%s-%s", rec.Kind, rec.CapturedAt.Format("150405"), uuid.NewString()[:8])

	url, err := store.UploadPhoto(ctx, "punches", date, name, rec.Image)
	if err != nil {
		return "", fmt.Errorf("uploading photo: %w", err)
	}

	st := serverTime
	ev := model.AttendanceEvent{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		Kind:         rec.Kind,
		ServerTime:   &st,
		DisplayTime:  rec.CapturedAt.Format(timeutil.DisplayLayout),
		CalendarDate: date,
		PhotoURL:     url,
		Location:     rec.Location,
		Approval:     model.Pending,
		Note:         rec.Note,
	}
	if err := store.WriteEvent(ctx, ev); err != nil {
		return "", fmt.Errorf("writing event: %w", err)
	}
	return url, nil
}
