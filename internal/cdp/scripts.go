package cdp

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// bindingName is the Runtime binding the in-page scripts call. It must match
// the name used in scripts/activity.js.
const bindingName = "__tabwarden"

//go:embed scripts/activity.js
var activityJS string

//go:embed scripts/overlay.js
var overlayJS string

//go:embed scripts/probe.js
var probeJS string

// bindingMessage is what the in-page scripts send through the binding.
type bindingMessage struct {
	Type  string   `json:"type"`
	TabID tabid.ID `json:"tabId"`
}

// probeResult is the page state reported by scripts/probe.js.
type probeResult struct {
	Visible bool   `json:"visible"`
	Ready   string `json:"ready"`
	Audible bool   `json:"audible"`
}

// eventFromBinding maps a binding payload sent by the page of tab source to
// a lifecycle event. Overlay responses name the frozen tab they refer to;
// activity pings and freeze/resume notices refer to the page that sent them.
func eventFromBinding(source tabid.ID, payload string) (lifecycle.Event, error) {
	var msg bindingMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return lifecycle.Event{}, fmt.Errorf("%w: binding payload: %v", lifecycle.ErrMalformedEvent, err)
	}

	switch msg.Type {
	case "activity":
		return lifecycle.NewEvent(lifecycle.KindInteraction, source), nil
	case "freeze":
		return lifecycle.DiscardChanged(source, true), nil
	case "resume":
		return lifecycle.DiscardChanged(source, false), nil
	case string(lifecycle.ResponseGoToTab):
		return lifecycle.NewEvent(lifecycle.KindReactivate, msg.TabID), nil
	case string(lifecycle.ResponseDismiss):
		return lifecycle.NewEvent(lifecycle.KindDismiss, msg.TabID), nil
	default:
		return lifecycle.Event{}, fmt.Errorf("%w: binding message type %q", lifecycle.ErrMalformedEvent, msg.Type)
	}
}

func parseProbe(raw string) (probeResult, error) {
	var p probeResult
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return probeResult{}, fmt.Errorf("cdp: decoding page probe: %w", err)
	}

	return p, nil
}

// overlayArgs are the arguments scripts/overlay.js is called with.
func overlayArgs(o lifecycle.Overlay) []any {
	return []any{o.ID, o.FrozenTab.String(), o.Title, o.Duration.Milliseconds()}
}
