package timeutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// DateLayout is the calendar-day label used in queue files, event documents
// and blob paths.
const DateLayout = "2006-01-02"

// DisplayLayout is the human punch time written into event documents.
const DisplayLayout = "03:04 PM"

// GenerateID creates a unique local id based on timestamp and random suffix.
// Ids sort roughly by creation time, which keeps queue listings readable.
func GenerateID(t time.Time) string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 5)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		suffix[i] = chars[n.Int64()]
	}
	return fmt.Sprintf("%s-%s", t.Format("20060102-150405"), string(suffix))
}

// CalendarDate returns the local calendar-day label for t.
func CalendarDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseClock parses a wall-clock string into minutes of day. It accepts the
// 12-hour display form ("07:45 AM") and the 24-hour form ("17:10").
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DisplayLayout, "3:04 PM", "15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("cannot parse clock time %q", s)
}

// FormatClock renders minutes of day in the 12-hour display form.
func FormatClock(minutes int) string {
	h, m := minutes/60, minutes%60
	t := time.Date(2000, 1, 1, h, m, 0, 0, time.UTC)
	return t.Format(DisplayLayout)
}

// FormatMinutes formats a minute count as a human-readable string like
// "9h 10m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	sunday = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, t.Location())
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
