package lifecycle

import (
	"context"
	"time"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// StatusComplete is the load status of a fully loaded tab.
const StatusComplete = "complete"

// Tab is a point-in-time snapshot of one open tab as reported by the host.
type Tab struct {
	ID        tabid.ID `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Active    bool     `json:"active"`
	Pinned    bool     `json:"pinned"`
	Discarded bool     `json:"discarded"`
	Audible   bool     `json:"audible"`
	Status    string   `json:"status"`
}

// Response is a user reaction offered by a warning overlay.
type Response string

// Overlay responses. The in-page overlay reports them back as Reactivate and
// Dismiss events for the frozen tab.
const (
	ResponseGoToTab Response = "goToTab"
	ResponseDismiss Response = "dismiss"
)

// Overlay is a request to render a "closing soon" warning inside Target.
type Overlay struct {
	ID          string        `json:"id"`
	Target      tabid.ID      `json:"target"`
	FrozenTab   tabid.ID      `json:"frozenTab"`
	Title       string        `json:"title"`
	Duration    time.Duration `json:"duration"`
	Responses   []Response    `json:"responses"`
	RequestedAt time.Time     `json:"requestedAt"`
}

// Activator brings a tab to the foreground.
type Activator interface {
	Activate(ctx context.Context, id tabid.ID) error
}

// Host is the tab-management capability the lifecycle core depends on.
// Implementations return errors wrapping ErrTabNotFound for vanished tabs.
type Host interface {
	Activator
	Tabs(ctx context.Context) ([]Tab, error)
	Discard(ctx context.Context, id tabid.ID) error
	Remove(ctx context.Context, id tabid.ID) error
	Create(ctx context.Context, url string) (tabid.ID, error)
	ShowOverlay(ctx context.Context, o Overlay) error
}

// Handler consumes normalized events. *Ingest is the production Handler.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// EventSource delivers host tab events to a Handler until ctx is canceled.
type EventSource interface {
	Watch(ctx context.Context, h Handler) error
}
