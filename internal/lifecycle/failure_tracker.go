package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// Discard suppression. A tab the host keeps refusing to discard (for
// example a page holding a wake lock) would otherwise cost one failed host
// round-trip per tick.
const (
	failureThreshold = 3                // skip after this many failures
	failureCooldown  = 30 * time.Second // forget failures older than this
)

// failureRecord tracks failures for a single tab.
type failureRecord struct {
	count  int
	lastAt time.Time
}

// failureTracker suppresses tabs whose discard fails repeatedly. Tabs that
// fail >= failureThreshold times within failureCooldown are skipped with a
// single Warn log. Success clears the record.
type failureTracker struct {
	mu      sync.Mutex
	records map[tabid.ID]*failureRecord
	logger  *slog.Logger
	nowFunc func() time.Time
}

func newFailureTracker(logger *slog.Logger, nowFunc func() time.Time) *failureTracker {
	return &failureTracker{
		records: make(map[tabid.ID]*failureRecord),
		logger:  logger,
		nowFunc: nowFunc,
	}
}

// shouldSkip returns true if the tab has failed enough times within the
// cooldown window that it should be suppressed.
func (ft *failureTracker) shouldSkip(id tabid.ID) bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	rec, ok := ft.records[id]
	if !ok {
		return false
	}

	// Forget stale failures.
	if ft.nowFunc().Sub(rec.lastAt) > failureCooldown {
		delete(ft.records, id)
		return false
	}

	return rec.count >= failureThreshold
}

// recordFailure increments the failure counter for a tab. The error is
// only reported in the suppression warning.
func (ft *failureTracker) recordFailure(id tabid.ID, err error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	rec, ok := ft.records[id]
	if !ok {
		rec = &failureRecord{}
		ft.records[id] = rec
	}

	if ft.nowFunc().Sub(rec.lastAt) > failureCooldown {
		rec.count = 0
	}

	rec.count++
	rec.lastAt = ft.nowFunc()

	if rec.count == failureThreshold {
		ft.logger.Warn("tab suppressed after repeated discard failures",
			slog.String("tab", id.String()),
			slog.Int("failures", rec.count),
			slog.String("last_error", err.Error()),
			slog.Duration("cooldown", failureCooldown),
		)
	}
}

// recordSuccess clears the failure record for a tab.
func (ft *failureTracker) recordSuccess(id tabid.ID) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	delete(ft.records, id)
}

// forget drops state for a closed tab.
func (ft *failureTracker) forget(id tabid.ID) {
	ft.recordSuccess(id)
}
