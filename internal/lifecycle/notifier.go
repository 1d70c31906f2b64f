package lifecycle

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// maxRecentOverlays bounds the overlay history kept for status output.
const maxRecentOverlays = 32

// Warning is a tab that became warn-eligible in a sweep.
type Warning struct {
	Tab    Tab
	Record Record
}

// Notifier decides where "closing soon" warnings go and builds the overlay
// requests. Rendering belongs to the host adapter.
//
// When several tabs become warn-eligible in the same sweep, each gets its
// own overlay, ordered most urgent (earliest freeze) first. When no tab is
// in the foreground the warning is still consumed and only logged, so the
// close clock is never held back by a missing audience.
type Notifier struct {
	mu     sync.Mutex
	recent []Overlay
	clock  Clock
	logger *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(clock Clock, logger *slog.Logger) *Notifier {
	return &Notifier{clock: clock, logger: logger}
}

// Plan returns one overlay request per warning, targeting foreground.
func (n *Notifier) Plan(foreground *Tab, warnings []Warning, s Settings) []Overlay {
	if len(warnings) == 0 {
		return nil
	}

	ordered := slices.Clone(warnings)
	slices.SortStableFunc(ordered, func(a, b Warning) int {
		if c := a.Record.FrozenAt.Compare(b.Record.FrozenAt); c != 0 {
			return c
		}

		return a.Tab.ID.Compare(b.Tab.ID)
	})

	if foreground == nil {
		for _, w := range ordered {
			n.logger.Info("tab closing soon, no foreground tab to warn in",
				slog.String("tab", w.Tab.ID.String()),
				slog.String("title", w.Tab.Title),
			)
		}

		return nil
	}

	now := n.clock.Now()
	overlays := make([]Overlay, 0, len(ordered))

	for _, w := range ordered {
		overlays = append(overlays, Overlay{
			ID:          uuid.NewString(),
			Target:      foreground.ID,
			FrozenTab:   w.Tab.ID,
			Title:       displayTitle(w.Tab),
			Duration:    s.OverlayFor,
			Responses:   []Response{ResponseGoToTab, ResponseDismiss},
			RequestedAt: now,
		})
	}

	n.remember(overlays)

	return overlays
}

// Recent returns the most recent overlay requests, oldest first.
func (n *Notifier) Recent() []Overlay {
	n.mu.Lock()
	defer n.mu.Unlock()

	return slices.Clone(n.recent)
}

func (n *Notifier) remember(overlays []Overlay) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.recent = append(n.recent, overlays...)
	if extra := len(n.recent) - maxRecentOverlays; extra > 0 {
		n.recent = slices.Delete(n.recent, 0, extra)
	}
}

// displayTitle falls back to the URL for untitled tabs.
func displayTitle(t Tab) string {
	if t.Title != "" {
		return t.Title
	}

	return t.URL
}

// foregroundTab returns the first active tab in the snapshot, or nil.
func foregroundTab(tabs []Tab) *Tab {
	for i := range tabs {
		if tabs[i].Active {
			return &tabs[i]
		}
	}

	return nil
}
