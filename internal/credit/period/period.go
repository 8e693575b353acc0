package period

import (
	"time"

	"github.com/smallbiznis/commcredit/internal/config"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
)

// Resolve returns the half-open UTC window that contains now.
// Anniversary alignment needs an anchor day in 1..31; without one it behaves as calendar.
func Resolve(now time.Time, anchorDay int, alignment string) creditdomain.Window {
	now = now.UTC()
	if alignment == config.PeriodAlignmentAnniversary && anchorDay >= 1 && anchorDay <= 31 {
		return anniversary(now, anchorDay)
	}
	return calendar(now)
}

func calendar(now time.Time) creditdomain.Window {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return creditdomain.Window{Start: start, End: start.AddDate(0, 1, 0)}
}

func anniversary(now time.Time, anchorDay int) creditdomain.Window {
	start := anchorIn(now.Year(), now.Month(), anchorDay)
	if now.Before(start) {
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		start = anchorIn(prev.Year(), prev.Month(), anchorDay)
	}
	next := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return creditdomain.Window{Start: start, End: anchorIn(next.Year(), next.Month(), anchorDay)}
}

// anchorIn clamps the anchor to the last day of short months.
func anchorIn(year int, month time.Month, anchorDay int) time.Time {
	if last := daysIn(year, month); anchorDay > last {
		anchorDay = last
	}
	return time.Date(year, month, anchorDay, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Continue keeps the ledger free of overlapping windows when the derived window
// moves (anchor day or alignment changed). latest is the tenant's most recent
// stored window starting at or before now. A window that still covers now is
// kept; a derived window reaching back into latest starts where latest ended,
// so the new anchor takes effect from the next period.
func Continue(now time.Time, derived creditdomain.Window, latest *creditdomain.Window) creditdomain.Window {
	if latest == nil {
		return derived
	}
	stored := creditdomain.Window{Start: latest.Start.UTC(), End: latest.End.UTC()}
	if stored.Contains(now.UTC()) {
		return stored
	}
	if stored.End.After(derived.Start) {
		return creditdomain.Window{Start: stored.End, End: derived.End}
	}
	return derived
}
