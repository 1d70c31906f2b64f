package lifecycle

import "github.com/tonimelisma/tabwarden/internal/tabid"

// Kind identifies the external signal an Event carries.
type Kind int

// Event kinds. The zero value is invalid so that an unset Kind is caught as
// a malformed event.
const (
	KindInteraction Kind = iota + 1
	KindActivated
	KindUpdated
	KindCreated
	KindRemoved
	KindReactivate
	KindDismiss
)

func (k Kind) String() string {
	switch k {
	case KindInteraction:
		return "interaction"
	case KindActivated:
		return "activated"
	case KindUpdated:
		return "updated"
	case KindCreated:
		return "created"
	case KindRemoved:
		return "removed"
	case KindReactivate:
		return "reactivate"
	case KindDismiss:
		return "dismiss"
	default:
		return "unknown"
	}
}

// Event is one normalized signal from the host, an in-page script, or a
// bridge client.
//
// For KindUpdated, Discarded is non-nil only when the discarded flag changed
// and holds the new value. Status carries the load status when it changed.
type Event struct {
	Kind      Kind
	Tab       tabid.ID
	Status    string
	Discarded *bool
}

// NewEvent builds an event with no update payload.
func NewEvent(kind Kind, id tabid.ID) Event {
	return Event{Kind: kind, Tab: id}
}

// DiscardChanged builds an update event for a discarded-flag transition.
func DiscardChanged(id tabid.ID, discarded bool) Event {
	return Event{Kind: KindUpdated, Tab: id, Discarded: &discarded}
}

// StatusChanged builds an update event for a load status transition.
func StatusChanged(id tabid.ID, status string) Event {
	return Event{Kind: KindUpdated, Tab: id, Status: status}
}
