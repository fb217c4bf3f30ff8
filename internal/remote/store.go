// Package remote talks to the hosted attendance backend: blob uploads,
// event writes, event queries and a polling live subscription. The rest of
// the module consumes the Store interface so tests can substitute fakes.
package remote

import (
	"context"
	"time"

	"github.com/warekit/punchd/internal/model"
)

// Store is the remote surface the submission pipeline, the sweeper and the
// ledger consume.
type Store interface {
	// UploadPhoto stores a PNG under {category}/{date}/{name}.png and
	// returns its stable retrievable URL.
	UploadPhoto(ctx context.Context, category, date, name string, png []byte) (string, error)
	// WriteEvent appends one immutable attendance event document.
	WriteEvent(ctx context.Context, ev model.AttendanceEvent) error
	// ListEvents returns the subject's events in [from, to], server time
	// descending, following pagination links.
	ListEvents(ctx context.Context, subjectID string, from, to time.Time) ([]model.AttendanceEvent, error)
	// Online reports whether the backend is reachable right now. It is a
	// cheap probe; a true result does not guarantee later calls succeed.
	Online(ctx context.Context) bool
}
