// Package lifecycle implements the tab lifecycle state machine: the activity
// ledger, event ingest, the pure freeze/close policy, the warning controller
// and the periodic sweep that drives host actions.
//
// The ledger is the only shared mutable state. Every mutation goes through
// its methods and is applied atomically under one mutex, so per-tab
// transitions are totally ordered by when their triggering events are
// processed. Host actions never hold the ledger lock.
package lifecycle

import (
	"sync"
	"time"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// Ledger maps tab ids to lifecycle records. All operations are idempotent
// and never fail. Mutating an absent tab first creates its record with
// LastActiveAt set to now, which is the tab's first observation.
type Ledger struct {
	mu      sync.Mutex
	records map[tabid.ID]*Record
	nowFunc func() time.Time
}

// NewLedger creates an empty ledger reading time from clock.
func NewLedger(clock Clock) *Ledger {
	return &Ledger{
		records: make(map[tabid.ID]*Record),
		nowFunc: clock.Now,
	}
}

// ensure returns the record for id, creating it if needed. Caller holds mu.
func (l *Ledger) ensure(id tabid.ID, now time.Time) *Record {
	rec, ok := l.records[id]
	if !ok {
		rec = &Record{LastActiveAt: now}
		l.records[id] = rec
	}

	return rec
}

// RecordActivity marks fresh activity: it resets the idle clock and clears
// the freeze episode, the warning flag and any grace window.
func (l *Ledger) RecordActivity(id tabid.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	rec := l.ensure(id, now)
	rec.LastActiveAt = now
	rec.FrozenAt = time.Time{}
	rec.Notified = false
	rec.IgnoreUntil = time.Time{}
}

// MarkFrozen starts a freeze episode. LastActiveAt is left alone. A tab that
// is already frozen keeps its original FrozenAt and Notified flag, so a
// discard completion and a host discard notification for the same episode
// do not restart the close clock.
func (l *Ledger) MarkFrozen(id tabid.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	rec := l.ensure(id, now)

	if rec.Frozen() {
		return
	}

	rec.FrozenAt = now
	rec.Notified = false
}

// MarkUnfrozen ends the freeze episode without touching the idle clock.
func (l *Ledger) MarkUnfrozen(id tabid.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.ensure(id, l.nowFunc())
	rec.FrozenAt = time.Time{}
	rec.Notified = false
}

// GrantGrace exempts the tab from freeze and close evaluation until the
// given time. It does not touch the idle or frozen clocks.
func (l *Ledger) GrantGrace(id tabid.ID, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.ensure(id, l.nowFunc())
	rec.IgnoreUntil = until
}

// MarkNotified sets the warning flag for the current freeze episode and
// reports whether this call set it. It returns false, changing nothing, when
// the tab is absent, not frozen, or already warned in this episode.
func (l *Ledger) MarkNotified(id tabid.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok || !rec.Frozen() || rec.Notified {
		return false
	}

	rec.Notified = true

	return true
}

// Remove deletes the tab's record. Removing an absent tab is a no-op.
func (l *Ledger) Remove(id tabid.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, id)
}

// Get returns a copy of the tab's record.
func (l *Ledger) Get(id tabid.ID) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return Record{}, false
	}

	return *rec, true
}

// Snapshot returns a copy of every record.
func (l *Ledger) Snapshot() map[tabid.ID]Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[tabid.ID]Record, len(l.records))
	for id, rec := range l.records {
		out[id] = *rec
	}

	return out
}

// Len returns the number of tracked tabs.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// PruneMissing deletes records for tabs that are absent from open and whose
// last activity predates since (the moment the open set was queried). A tab
// created after the query has LastActiveAt >= since and survives. Returns
// the pruned ids. This reconciles removals the host never reported, such as
// tabs closed while the daemon was disconnected.
func (l *Ledger) PruneMissing(open map[tabid.ID]struct{}, since time.Time) []tabid.ID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pruned []tabid.ID

	for id, rec := range l.records {
		if _, ok := open[id]; ok {
			continue
		}

		if !rec.LastActiveAt.Before(since) {
			continue
		}

		delete(l.records, id)
		pruned = append(pruned, id)
	}

	return pruned
}
