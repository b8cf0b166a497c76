package watcher

import (
	"time"

	"github.com/maruel/ksid"
)

// CrashRecord is one Watcher-observed restart event. The ID correlates
// the record with the watcher.log lines it produced.
type CrashRecord struct {
	ID ksid.ID
	At time.Time
}

// CrashBudget is the sliding-window crash counter that decides when the
// Watcher stops restarting the Runner and alerts a human instead.
type CrashBudget struct {
	// Window is how far back a crash still counts.
	Window time.Duration
	// Limit is the crash count at which restarts stop.
	Limit int

	records []CrashRecord
}

// NewCrashBudget returns a budget with the default window and limit.
func NewCrashBudget() *CrashBudget {
	return &CrashBudget{Window: CrashWindow, Limit: CrashLimit}
}

// Record appends a crash at now, evicts records older than Window, and
// returns the new record.
func (b *CrashBudget) Record(now time.Time) CrashRecord {
	rec := CrashRecord{ID: ksid.NewID(), At: now}
	b.records = append(b.records, rec)
	b.evict(now)
	return rec
}

// evict drops records older than Window relative to now.
func (b *CrashBudget) evict(now time.Time) {
	cutoff := now.Add(-b.Window)
	kept := b.records[:0]
	for _, r := range b.records {
		if r.At.After(cutoff) {
			kept = append(kept, r)
		}
	}
	b.records = kept
}

// Len returns the number of crashes inside the window as of the last
// Record call.
func (b *CrashBudget) Len() int { return len(b.records) }

// Exhausted reports whether the crash count has reached the limit.
func (b *CrashBudget) Exhausted() bool { return len(b.records) >= b.Limit }
