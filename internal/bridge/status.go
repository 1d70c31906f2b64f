package bridge

import (
	"slices"
	"time"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// Status is the daemon's view of tracked tabs, served on GET /status.
type Status struct {
	Now      time.Time           `json:"now"`
	Tabs     []TabStatus         `json:"tabs"`
	Overlays []lifecycle.Overlay `json:"overlays"`
}

// TabStatus is one ledger record with its derived state.
type TabStatus struct {
	ID           tabid.ID  `json:"id"`
	State        string    `json:"state"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	FrozenAt     time.Time `json:"frozenAt,omitzero"`
	Notified     bool      `json:"notified,omitempty"`
	IgnoreUntil  time.Time `json:"ignoreUntil,omitzero"`
}

// Count returns how many tabs are in the given state.
func (s *Status) Count(state lifecycle.State) int {
	name := state.String()
	n := 0

	for _, t := range s.Tabs {
		if t.State == name {
			n++
		}
	}

	return n
}

func buildStatus(ledger *lifecycle.Ledger, notifier *lifecycle.Notifier, now time.Time) Status {
	snap := ledger.Snapshot()
	tabs := make([]TabStatus, 0, len(snap))

	for id, rec := range snap {
		tabs = append(tabs, TabStatus{
			ID:           id,
			State:        rec.State(now).String(),
			LastActiveAt: rec.LastActiveAt,
			FrozenAt:     rec.FrozenAt,
			Notified:     rec.Notified,
			IgnoreUntil:  rec.IgnoreUntil,
		})
	}

	slices.SortFunc(tabs, func(a, b TabStatus) int {
		return a.ID.Compare(b.ID)
	})

	overlays := notifier.Recent()
	if overlays == nil {
		overlays = []lifecycle.Overlay{}
	}

	return Status{Now: now, Tabs: tabs, Overlays: overlays}
}
