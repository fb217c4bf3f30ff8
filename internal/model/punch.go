package model

import (
	"fmt"
	"strings"
	"time"
)

// PunchKind identifies one of the four clock events of a working day.
// A day follows exactly one order: ClockIn → BreakIn → BreakOut → ClockOut,
// each optional except that ClockIn must precede the others.
type PunchKind int

const (
	ClockIn PunchKind = iota
	BreakIn
	BreakOut
	ClockOut
)

var punchNames = [...]string{"clock-in", "break-in", "break-out", "clock-out"}

func (k PunchKind) String() string {
	if k < ClockIn || k > ClockOut {
		return fmt.Sprintf("PunchKind(%d)", int(k))
	}
	return punchNames[k]
}

// Kinds returns all punch kinds in business order.
func Kinds() []PunchKind {
	return []PunchKind{ClockIn, BreakIn, BreakOut, ClockOut}
}

// ParsePunchKind accepts the canonical names plus common aliases
// ("in", "out", "breakin", "break_out", ...).
func ParsePunchKind(s string) (PunchKind, error) {
	switch strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(strings.TrimSpace(s))) {
	case "clock-in", "clockin", "in":
		return ClockIn, nil
	case "break-in", "breakin":
		return BreakIn, nil
	case "break-out", "breakout":
		return BreakOut, nil
	case "clock-out", "clockout", "out":
		return ClockOut, nil
	}
	return ClockIn, fmt.Errorf("unknown punch kind %q (want clock-in, break-in, break-out or clock-out)", s)
}

// MarshalText / UnmarshalText keep queued entries and event documents
// readable on disk and on the wire.
func (k PunchKind) MarshalText() ([]byte, error) {
	if k < ClockIn || k > ClockOut {
		return nil, fmt.Errorf("invalid punch kind %d", int(k))
	}
	return []byte(punchNames[k]), nil
}

func (k *PunchKind) UnmarshalText(b []byte) error {
	parsed, err := ParsePunchKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Location is an optional device fix attached to a capture. Address is
// filled only when reverse geocoding succeeded; coordinates are always set.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

func (l Location) String() string {
	if l.Address != "" {
		return l.Address
	}
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// CaptureRecord is the unit produced by a capture session: the confirmed
// photo plus its metadata. It is immutable after Finalize and consumed
// exactly once by the submission pipeline.
type CaptureRecord struct {
	Image      []byte    `json:"image"`
	CapturedAt time.Time `json:"captured_at"`
	Location   *Location `json:"location,omitempty"`
	Kind       PunchKind `json:"kind"`
	Note       string    `json:"note,omitempty"`
}

// QueuedEntry is a CaptureRecord waiting in the local durable queue for a
// remote commit. It exists if and only if the corresponding remote event has
// not been durably committed yet.
type QueuedEntry struct {
	LocalID      string        `json:"local_id"`
	EnqueuedAt   time.Time     `json:"enqueued_at"`
	AttemptCount int           `json:"attempt_count"`
	Backend      string        `json:"-"` // which queue backend served this entry
	Record       CaptureRecord `json:"record"`
}
