package queue_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/queue"
)

func testRecord(kind model.PunchKind, at time.Time) model.CaptureRecord {
	return model.CaptureRecord{
		Image:      []byte("png-bytes"),
		CapturedAt: at,
		Kind:       kind,
	}
}

// brokenBackend fails every operation, simulating an unavailable store.
type brokenBackend struct{}

func (brokenBackend) Name() string { return "broken" }
func (brokenBackend) Enqueue(model.QueuedEntry) (string, error) {
	return "", errors.New("store unavailable")
}
func (brokenBackend) ListPending() ([]model.QueuedEntry, error) {
	return nil, errors.New("store unavailable")
}
func (brokenBackend) Remove(string) (bool, error) {
	return false, errors.New("store unavailable")
}

func TestEnqueueListRemove(t *testing.T) {
	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	at := time.Date(2026, 2, 27, 7, 45, 0, 0, time.UTC)
	localID, err := q.Enqueue(testRecord(model.ClockIn, at), at)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if localID == "" {
		t.Fatal("Enqueue returned empty local id")
	}

	pending, err := q.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(pending))
	}
	e := pending[0]
	if e.LocalID != localID {
		t.Errorf("LocalID = %q, want %q", e.LocalID, localID)
	}
	if e.Record.Kind != model.ClockIn {
		t.Errorf("Kind = %v, want ClockIn", e.Record.Kind)
	}
	if string(e.Record.Image) != "png-bytes" {
		t.Errorf("Image = %q, want original payload", e.Record.Image)
	}

	removed, err := q.Remove(e)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("Remove reported false for an existing entry")
	}

	pending, err = q.ListPending()
	if err != nil {
		t.Fatalf("ListPending after remove: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after remove = %d entries, want 0", len(pending))
	}
}

func TestRemoveUnknownIDIsNotAnError(t *testing.T) {
	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	removed, err := q.Remove(model.QueuedEntry{LocalID: "never-enqueued"})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Error("Remove reported true for an unknown id")
	}
}

func TestFallbackServesWhenPrimaryFails(t *testing.T) {
	fallback, err := queue.NewTextBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewTextBackend: %v", err)
	}
	q := queue.New(brokenBackend{}, fallback)
	defer q.Close()

	at := time.Date(2026, 2, 27, 7, 45, 0, 0, time.UTC)
	localID, err := q.Enqueue(testRecord(model.BreakIn, at), at)
	if err != nil {
		t.Fatalf("Enqueue with broken primary: %v", err)
	}
	if !strings.HasPrefix(localID, "attendance_") {
		t.Errorf("fallback local id = %q, want attendance_<millis> key", localID)
	}

	pending, err := q.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(pending))
	}
	if pending[0].Backend != "text" {
		t.Errorf("serving backend = %q, want %q", pending[0].Backend, "text")
	}

	// Removal must target the backend that served the entry.
	removed, err := q.Remove(pending[0])
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("Remove reported false for a fallback entry")
	}
}

func TestAllBackendsFailing(t *testing.T) {
	q := queue.New(brokenBackend{}, brokenBackend{})
	defer q.Close()

	at := time.Now()
	_, err := q.Enqueue(testRecord(model.ClockIn, at), at)
	if !errors.Is(err, queue.ErrUnrecoverableStorage) {
		t.Fatalf("Enqueue error = %v, want ErrUnrecoverableStorage", err)
	}

	if _, err := q.ListPending(); !errors.Is(err, queue.ErrUnrecoverableStorage) {
		t.Fatalf("ListPending error = %v, want ErrUnrecoverableStorage", err)
	}
}

func TestListPendingOrderedByEnqueueTime(t *testing.T) {
	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	base := time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)
	later, err := q.Enqueue(testRecord(model.BreakIn, base.Add(time.Hour)), base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	earlier, err := q.Enqueue(testRecord(model.ClockIn, base), base)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := q.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d entries, want 2", len(pending))
	}
	if pending[0].LocalID != earlier || pending[1].LocalID != later {
		t.Errorf("order = [%s, %s], want oldest first", pending[0].LocalID, pending[1].LocalID)
	}
}

func TestBumpPersistsAttemptCount(t *testing.T) {
	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	at := time.Now()
	if _, err := q.Enqueue(testRecord(model.ClockIn, at), at); err != nil {
		t.Fatal(err)
	}

	pending, err := q.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Bump(pending[0]); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if err := q.Bump(pending[0]); err != nil {
		t.Fatalf("Bump: %v", err)
	}

	pending, err = q.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d entries, want 1 (Bump must not duplicate)", len(pending))
	}
	if pending[0].AttemptCount != 1 {
		// Bump persists from the caller's snapshot, so two bumps of the
		// same stale snapshot record one attempt each time.
		t.Errorf("AttemptCount = %d, want 1", pending[0].AttemptCount)
	}
}

func TestFallbackCorruptEntryBackedUpOnce(t *testing.T) {
	base := t.TempDir()
	fallback, err := queue.NewTextBackend(base)
	if err != nil {
		t.Fatalf("NewTextBackend: %v", err)
	}

	dir := filepath.Join(base, "fallback")
	if err := os.WriteFile(filepath.Join(dir, "attendance_1700000000000"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Repeated listings must back the damaged entry up exactly once and
	// then stop seeing it.
	for i := 0; i < 3; i++ {
		entries, err := fallback.ListPending()
		if err != nil {
			t.Fatalf("ListPending #%d: %v", i+1, err)
		}
		if len(entries) != 0 {
			t.Fatalf("ListPending #%d = %d entries, want 0", i+1, len(entries))
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "attendance_1700000000000.corrupt")); err != nil {
		t.Errorf("backup file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "attendance_1700000000000.corrupt.corrupt")); err == nil {
		t.Error("backup file was renamed again on a later listing")
	}
}

func TestClosedQueueRejectsOperations(t *testing.T) {
	q, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(testRecord(model.ClockIn, time.Now()), time.Now()); err == nil {
		t.Fatal("Enqueue on closed queue: expected error, got nil")
	}
}
