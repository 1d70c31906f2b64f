package lifecycle

import "time"

// State is the lifecycle state of a tab, derived from its Record. It is
// never stored.
type State int

// Derived states. A tab that has been closed has no record, so there is no
// CLOSED value.
const (
	StateActive State = iota
	StateFrozen
	StateWarned
	StateGrace
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFrozen:
		return "frozen"
	case StateWarned:
		return "warned"
	case StateGrace:
		return "grace"
	default:
		return "unknown"
	}
}

// Record is the per-tab lifecycle record. Zero times mean "absent":
// a zero FrozenAt means the tab is not frozen and a zero IgnoreUntil means
// no grace window is in effect.
type Record struct {
	LastActiveAt time.Time
	FrozenAt     time.Time
	Notified     bool
	IgnoreUntil  time.Time
}

// Frozen reports whether the tab is in a freeze episode.
func (r Record) Frozen() bool {
	return !r.FrozenAt.IsZero()
}

// InGrace reports whether now falls inside the grace window.
func (r Record) InGrace(now time.Time) bool {
	return now.Before(r.IgnoreUntil)
}

// IdleFor returns how long the tab has gone without activity.
func (r Record) IdleFor(now time.Time) time.Duration {
	return now.Sub(r.LastActiveAt)
}

// FrozenFor returns how long the current freeze episode has lasted, or 0
// when the tab is not frozen.
func (r Record) FrozenFor(now time.Time) time.Duration {
	if !r.Frozen() {
		return 0
	}

	return now.Sub(r.FrozenAt)
}

// State derives ACTIVE, FROZEN, WARNED or GRACE. Grace only applies to
// frozen tabs; an unfrozen tab inside a grace window is still active.
func (r Record) State(now time.Time) State {
	switch {
	case !r.Frozen():
		return StateActive
	case r.InGrace(now):
		return StateGrace
	case r.Notified:
		return StateWarned
	default:
		return StateFrozen
	}
}
