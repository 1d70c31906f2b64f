// Package bridge exposes the tab lifecycle message protocol over local HTTP
// and WebSocket transports. Companion extensions, in-page helpers, and the
// tabwarden CLI all talk to the daemon through it.
package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/session"
	"github.com/tonimelisma/tabwarden/internal/store"
)

// Message actions understood by the bridge.
const (
	ActionUpdateActivity      = "updateActivity"
	ActionActivateFrozenTab   = "activateFrozenTab"
	ActionDismissFrozenTab    = "dismissFrozenTab"
	ActionGetGroupBookmarks   = "getGroupBookmarks"
	ActionSaveSession         = "saveSession"
	ActionRestoreSession      = "restoreSession"
	ActionBookmarkGroup       = "bookmarkGroup"
	ActionRestoreGroup        = "restoreGroup"
	ActionRemoveGroupBookmark = "removeGroupBookmark"
)

// Sentinel errors for request classification.
var (
	ErrBadRequest    = errors.New("bridge: bad request")
	ErrUnknownAction = fmt.Errorf("%w: unknown action", ErrBadRequest)
	ErrRateLimited   = errors.New("bridge: rate limit exceeded")
)

// Request is one protocol message.
type Request struct {
	Action    string `json:"action"`
	TabID     string `json:"tabId,omitempty"`
	GroupName string `json:"groupName,omitempty"`
}

// Response answers a Request. Groups is only set for getGroupBookmarks and
// is present (possibly empty) whenever it is set.
type Response struct {
	Status string                `json:"status,omitempty"`
	Groups []store.GroupBookmark `json:"groups,omitzero"`
	Error  string                `json:"error,omitempty"`
}

// Error is a failed request as seen by a Client.
type Error struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusFor maps a dispatch error to the HTTP status reported for it.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, lifecycle.ErrMalformedEvent),
		errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrEmptyGroup):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// sentinelFor is the inverse of statusFor used by the client.
func sentinelFor(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}

// SessionSummary is one saved session as listed on GET /sessions.
type SessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenGroup is one group of currently open tabs as listed on GET /groups.
type OpenGroup struct {
	Name string           `json:"groupName"`
	Tabs []store.SavedTab `json:"tabs"`
}
