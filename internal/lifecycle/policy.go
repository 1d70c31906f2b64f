package lifecycle

import (
	"strings"
	"time"
)

// The functions in this file are pure: they read a host tab snapshot, a
// ledger record and thresholds, and never call the host. Grace windows
// suppress transitions but never reset the idle or frozen clocks, so when a
// window lapses evaluation resumes from the original timestamps.

// IsRestricted reports whether url belongs to the browser itself or to an
// extension. Restricted pages are never frozen or closed.
func IsRestricted(url string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}

	return false
}

// isNavigable reports whether the tab has a URL worth managing.
func isNavigable(url string, restricted []string) bool {
	return strings.TrimSpace(url) != "" && !IsRestricted(url, restricted)
}

// IsFreezeEligible reports whether tab should be discarded now.
func IsFreezeEligible(tab Tab, rec Record, ok bool, now time.Time, freezeAfter time.Duration, restricted []string) bool {
	if tab.Active || tab.Pinned || tab.Discarded || tab.Audible {
		return false
	}

	if !isNavigable(tab.URL, restricted) || tab.Status != StatusComplete {
		return false
	}

	if !ok || rec.InGrace(now) {
		return false
	}

	return rec.IdleFor(now) >= freezeAfter
}

// IsCloseCandidate reports whether tab is subject to the close pass at all:
// discarded, in the background and not restricted.
func IsCloseCandidate(tab Tab, restricted []string) bool {
	return tab.Discarded && !tab.Active && isNavigable(tab.URL, restricted)
}

// IsWarnEligible reports whether a "closing soon" warning is due. The warning
// fires warnLead before the close threshold, or immediately when warnLead is
// not shorter than closeAfter.
func IsWarnEligible(rec Record, now time.Time, closeAfter, warnLead time.Duration) bool {
	if !rec.Frozen() || rec.InGrace(now) || rec.Notified {
		return false
	}

	return rec.FrozenFor(now) >= max(closeAfter-warnLead, 0)
}

// IsCloseEligible reports whether the tab has been frozen long enough to
// close.
func IsCloseEligible(rec Record, now time.Time, closeAfter time.Duration) bool {
	if !rec.Frozen() || rec.InGrace(now) {
		return false
	}

	return rec.FrozenFor(now) >= closeAfter
}
