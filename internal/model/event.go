package model

import "time"

// ApprovalStatus is the review state of a committed attendance event.
// Only an authorized reviewer (outside this client) changes it.
type ApprovalStatus string

const (
	Pending  ApprovalStatus = "pending"
	Approved ApprovalStatus = "approved"
	Rejected ApprovalStatus = "rejected"
)

// AttendanceEvent is one immutable punch document in the remote store.
// ServerTime is the authoritative ordering key; it is nil only for
// automatic sentinel clock-outs written by the backend's cutoff job.
// Duplicates can exist (at-least-once delivery from the sweeper); the
// ledger's first-wins rule is the dedup mechanism.
type AttendanceEvent struct {
	ID           string         `json:"id"`
	SubjectID    string         `json:"subject_id"`
	Kind         PunchKind      `json:"kind"`
	ServerTime   *time.Time     `json:"server_time,omitempty"`
	DisplayTime  string         `json:"display_time"`  // device-local, e.g. "07:45 AM"
	CalendarDate string         `json:"calendar_date"` // subject-local day label, YYYY-MM-DD
	PhotoURL     string         `json:"photo_url"`
	Location     *Location      `json:"location,omitempty"`
	Approval     ApprovalStatus `json:"approval"`
	Automatic    bool           `json:"automatic"`
	Note         string         `json:"note,omitempty"`
}

// AnomalyFlag marks a business-rule adjustment or exception on a derived
// daily record.
type AnomalyFlag string

const (
	FlagAutoClockOut         AnomalyFlag = "auto-clock-out"
	FlagEarlyClockInAdjusted AnomalyFlag = "early-clock-in-adjusted"
	FlagLateClockOutTrunc    AnomalyFlag = "late-clock-out-truncated"
	FlagAbsent               AnomalyFlag = "absent"
	FlagHoliday              AnomalyFlag = "holiday"
	FlagRestDay              AnomalyFlag = "rest-day"
)

// DailyRecord is a derived per-subject per-day attendance row. It is never
// persisted; the ledger recomputes it from the event stream on every read.
// Punch fields hold display times; nil means no punch of that kind.
type DailyRecord struct {
	Date          string        `json:"date"`
	SubjectID     string        `json:"subject_id"`
	ClockIn       *string       `json:"clock_in,omitempty"`
	BreakIn       *string       `json:"break_in,omitempty"`
	BreakOut      *string       `json:"break_out,omitempty"`
	ClockOut      *string       `json:"clock_out,omitempty"`
	WorkedMinutes int           `json:"worked_minutes"`
	UnderTime     int           `json:"under_time_minutes"`
	Flags         []AnomalyFlag `json:"flags,omitempty"`
}

// HasFlag reports whether the record carries the given anomaly flag.
func (r DailyRecord) HasFlag(f AnomalyFlag) bool {
	for _, have := range r.Flags {
		if have == f {
			return true
		}
	}
	return false
}
