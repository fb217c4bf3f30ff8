package cmd

import (
	"testing"
	"time"
)

func resetReportFlags() {
	reportDate, reportFrom, reportTo = "", "", ""
}

func TestReportRange(t *testing.T) {
	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC) // a Friday

	t.Run("default is the current week", func(t *testing.T) {
		resetReportFlags()
		from, to, err := reportRange(now)
		if err != nil {
			t.Fatal(err)
		}
		if got := from.Format("2006-01-02"); got != "2026-02-23" {
			t.Errorf("from = %s, want Monday 2026-02-23", got)
		}
		if got := to.Format("2006-01-02"); got != "2026-03-01" {
			t.Errorf("to = %s, want Sunday 2026-03-01", got)
		}
	})

	t.Run("single date", func(t *testing.T) {
		resetReportFlags()
		reportDate = "2026-02-14"
		from, to, err := reportRange(now)
		if err != nil {
			t.Fatal(err)
		}
		if from.Format("2006-01-02") != "2026-02-14" || to.Format("2006-01-02") != "2026-02-14" {
			t.Errorf("range = [%s, %s], want the single day", from, to)
		}
	})

	t.Run("from without to runs until today", func(t *testing.T) {
		resetReportFlags()
		reportFrom = "2026-02-01"
		from, to, err := reportRange(now)
		if err != nil {
			t.Fatal(err)
		}
		if from.Format("2006-01-02") != "2026-02-01" {
			t.Errorf("from = %s", from)
		}
		if to.Format("2006-01-02") != "2026-02-27" {
			t.Errorf("to = %s, want today", to)
		}
	})

	t.Run("to without from is rejected", func(t *testing.T) {
		resetReportFlags()
		reportTo = "2026-02-27"
		if _, _, err := reportRange(now); err == nil {
			t.Error("expected error for --to without --from")
		}
	})

	t.Run("invalid date is rejected", func(t *testing.T) {
		resetReportFlags()
		reportDate = "27.02.2026"
		if _, _, err := reportRange(now); err == nil {
			t.Error("expected error for a malformed --date")
		}
	})
}

func TestRangeLabel(t *testing.T) {
	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)

	resetReportFlags()
	from, to, err := reportRange(now)
	if err != nil {
		t.Fatal(err)
	}
	if got := rangeLabel(from, to); got != "2026-W09" {
		t.Errorf("week label = %q, want 2026-W09", got)
	}

	reportDate = "2026-02-14"
	from, to, err = reportRange(now)
	if err != nil {
		t.Fatal(err)
	}
	if got := rangeLabel(from, to); got != "2026-02-14" {
		t.Errorf("single-day label = %q, want the date", got)
	}

	resetReportFlags()
	reportFrom, reportTo = "2026-02-01", "2026-02-15"
	from, to, err = reportRange(now)
	if err != nil {
		t.Fatal(err)
	}
	if got := rangeLabel(from, to); got != "2026-02-01 to 2026-02-15" {
		t.Errorf("range label = %q", got)
	}
}
