// Package queue implements the local durable queue holding capture records
// that have not yet been committed to the remote store. Two backends back
// the queue: a primary per-entry JSON store and a simpler flat textual
// store. Backends are tried in order, and an entry is always removed from
// the backend that served it.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/timeutil"
)

// ErrUnrecoverableStorage is returned when every backend failed. A capture
// hitting this error is about to be lost; callers must surface it loudly.
var ErrUnrecoverableStorage = errors.New("unrecoverable local storage")

// Backend is one strategy for durably holding queued entries. Enqueue
// upserts by local id and returns the id the entry was stored under (the
// fallback backend keys by its own time-derived scheme), so persisting an
// updated attempt count is a re-enqueue.
type Backend interface {
	Name() string
	Enqueue(e model.QueuedEntry) (string, error)
	ListPending() ([]model.QueuedEntry, error)
	Remove(localID string) (bool, error)
}

// Queue is an ordered list of backends with an explicit lifecycle. It is
// constructed once and handed to the submission pipeline and the sweeper;
// there is no ambient global instance.
type Queue struct {
	backends []Backend
	open     bool
}

// Open builds a queue over the standard backends under baseDir:
// baseDir/queue (primary) and baseDir/fallback (textual fallback).
func Open(baseDir string) (*Queue, error) {
	primary, err := NewFileBackend(baseDir)
	if err != nil {
		return nil, err
	}
	fallback, err := NewTextBackend(baseDir)
	if err != nil {
		return nil, err
	}
	return New(primary, fallback), nil
}

// New builds a queue over an explicit backend list, first backend preferred.
func New(backends ...Backend) *Queue {
	return &Queue{backends: backends, open: true}
}

// Close marks the queue unusable. Backends are plain directories, so there
// is nothing to flush; Close exists so lifecycle mistakes fail fast.
func (q *Queue) Close() error {
	q.open = false
	return nil
}

func (q *Queue) check() error {
	if !q.open {
		return errors.New("queue is closed")
	}
	if len(q.backends) == 0 {
		return fmt.Errorf("queue has no backends: %w", ErrUnrecoverableStorage)
	}
	return nil
}

// Enqueue durably stores a capture record and returns its local id. Backends
// are tried in order; only when all of them fail does the error wrap
// ErrUnrecoverableStorage.
func (q *Queue) Enqueue(rec model.CaptureRecord, now time.Time) (string, error) {
	if err := q.check(); err != nil {
		return "", err
	}
	entry := model.QueuedEntry{
		LocalID:    timeutil.GenerateID(now),
		EnqueuedAt: now,
		Record:     rec,
	}
	var errs []error
	for _, b := range q.backends {
		e := entry
		e.Backend = b.Name()
		localID, err := b.Enqueue(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		return localID, nil
	}
	return "", fmt.Errorf("enqueue failed on all backends (%v): %w", errors.Join(errs...), ErrUnrecoverableStorage)
}

// ListPending returns a point-in-time snapshot of every queued entry across
// all backends, oldest first. A backend that fails to list is skipped unless
// every backend fails.
func (q *Queue) ListPending() ([]model.QueuedEntry, error) {
	if err := q.check(); err != nil {
		return nil, err
	}
	var entries []model.QueuedEntry
	var errs []error
	failed := 0
	for _, b := range q.backends {
		got, err := b.ListPending()
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		for _, e := range got {
			e.Backend = b.Name()
			entries = append(entries, e)
		}
	}
	if failed == len(q.backends) {
		return nil, fmt.Errorf("list failed on all backends (%v): %w", errors.Join(errs...), ErrUnrecoverableStorage)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		}
		return entries[i].LocalID < entries[j].LocalID
	})
	return entries, nil
}

// Remove deletes the entry with the given local id. When the entry came from
// a ListPending snapshot its Backend field routes the removal; otherwise
// every backend is tried. Removal of an unknown id reports false, not an
// error, so repeated sweeps stay idempotent.
func (q *Queue) Remove(e model.QueuedEntry) (bool, error) {
	if err := q.check(); err != nil {
		return false, err
	}
	var firstErr error
	for _, b := range q.backends {
		if e.Backend != "" && e.Backend != b.Name() {
			continue
		}
		ok, err := b.Remove(e.LocalID)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", b.Name(), err)
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

// Bump persists an incremented attempt count for a failed entry. The count
// is informational (surfaced by the queue listing), never a drop criterion,
// so persistence failures are returned for logging only.
func (q *Queue) Bump(e model.QueuedEntry) error {
	if err := q.check(); err != nil {
		return err
	}
	e.AttemptCount++
	for _, b := range q.backends {
		if e.Backend != "" && e.Backend != b.Name() {
			continue
		}
		_, err := b.Enqueue(e)
		return err
	}
	return fmt.Errorf("no backend %q for entry %s", e.Backend, e.LocalID)
}
