package cdp

import (
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

func TestEventFromBinding(t *testing.T) {
	t.Parallel()

	source := tabid.New("AB12")

	tests := []struct {
		name    string
		payload string
		want    lifecycle.Event
	}{
		{
			name:    "activity refers to the sending page",
			payload: `{"type":"activity"}`,
			want:    lifecycle.NewEvent(lifecycle.KindInteraction, source),
		},
		{
			name:    "browser freeze marks the sending page discarded",
			payload: `{"type":"freeze"}`,
			want:    lifecycle.DiscardChanged(source, true),
		},
		{
			name:    "browser resume clears the discard mark",
			payload: `{"type":"resume"}`,
			want:    lifecycle.DiscardChanged(source, false),
		},
		{
			name:    "go to tab refers to the frozen tab",
			payload: `{"type":"goToTab","tabId":"cd34"}`,
			want:    lifecycle.NewEvent(lifecycle.KindReactivate, tabid.New("CD34")),
		},
		{
			name:    "dismiss refers to the frozen tab",
			payload: `{"type":"dismiss","tabId":"CD34"}`,
			want:    lifecycle.NewEvent(lifecycle.KindDismiss, tabid.New("CD34")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := eventFromBinding(source, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventFromBinding_Malformed(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{`not json`, `{"type":"explode"}`, `{}`} {
		_, err := eventFromBinding(tabid.New("1"), payload)
		assert.ErrorIs(t, err, lifecycle.ErrMalformedEvent, payload)
	}
}

func TestNoteDiscard_TracksBrowserFreezes(t *testing.T) {
	t.Parallel()

	h := &Host{frozen: make(map[proto.TargetTargetID]struct{})}
	id := proto.TargetTargetID("ab12")

	h.noteDiscard(id, lifecycle.NewEvent(lifecycle.KindInteraction, tabid.New("AB12")))
	assert.False(t, h.isFrozen(id))

	h.noteDiscard(id, lifecycle.DiscardChanged(tabid.New("AB12"), true))
	assert.True(t, h.isFrozen(id))

	h.noteDiscard(id, lifecycle.DiscardChanged(tabid.New("AB12"), false))
	assert.False(t, h.isFrozen(id))
}

func TestParseProbe(t *testing.T) {
	t.Parallel()

	p, err := parseProbe(`{"visible":true,"ready":"complete","audible":false}`)
	require.NoError(t, err)
	assert.True(t, p.Visible)
	assert.Equal(t, lifecycle.StatusComplete, p.Ready)
	assert.False(t, p.Audible)

	_, err = parseProbe(`undefined`)
	assert.Error(t, err)
}

func TestTabFromTarget(t *testing.T) {
	t.Parallel()

	info := &proto.TargetTargetInfo{
		TargetID: "ab12",
		Type:     proto.TargetTargetInfoTypePage,
		Title:    "Docs",
		URL:      "https://docs.example.com",
	}

	live := tabFromTarget(info, probeResult{Visible: true, Ready: "interactive", Audible: true}, false)
	assert.Equal(t, tabid.New("AB12"), live.ID)
	assert.Equal(t, "Docs", live.Title)
	assert.True(t, live.Active)
	assert.True(t, live.Audible)
	assert.False(t, live.Discarded)
	assert.False(t, live.Pinned)
	assert.Equal(t, "interactive", live.Status)

	frozen := tabFromTarget(info, probeResult{}, true)
	assert.True(t, frozen.Discarded)
	assert.False(t, frozen.Active)
	assert.Equal(t, lifecycle.StatusComplete, frozen.Status)
}

func TestIsTab(t *testing.T) {
	t.Parallel()

	assert.True(t, isTab(&proto.TargetTargetInfo{Type: proto.TargetTargetInfoTypePage}))
	assert.False(t, isTab(&proto.TargetTargetInfo{Type: "service_worker"}))
	assert.False(t, isTab(nil))
}

func TestTargetID_RoundTrip(t *testing.T) {
	t.Parallel()

	raw := proto.TargetTargetID("5F2A9C0D1E")
	assert.Equal(t, raw, targetID(tabid.New(string(raw))))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classify("closing", nil))

	gone := &cdp.Error{Code: -32602, Message: "No target with given id found"}
	err := classify("closing", gone)
	assert.ErrorIs(t, err, lifecycle.ErrTabNotFound)
	assert.ErrorIs(t, err, gone)

	other := errors.New("websocket: close 1006")
	err = classify("closing", other)
	assert.NotErrorIs(t, err, lifecycle.ErrTabNotFound)
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "cdp: closing")
}

func TestOverlayArgs(t *testing.T) {
	t.Parallel()

	o := lifecycle.Overlay{
		ID:        "ov-1",
		Target:    tabid.New("FG"),
		FrozenTab: tabid.New("BG"),
		Title:     "Recipes",
		Duration:  5 * time.Second,
	}

	assert.Equal(t, []any{"ov-1", "BG", "Recipes", int64(5000)}, overlayArgs(o))
}

func TestScriptsEmbedded(t *testing.T) {
	t.Parallel()

	assert.Contains(t, activityJS, bindingName)
	assert.Contains(t, activityJS, "tabwarden:"+string(lifecycle.ResponseGoToTab))
	assert.Contains(t, activityJS, `addEventListener("freeze"`)
	assert.Contains(t, activityJS, `addEventListener("resume"`)
	assert.Contains(t, overlayJS, "tabwarden:")
	assert.Contains(t, overlayJS, `querySelectorAll("[id^=tabwarden-]")`)
	assert.Contains(t, overlayJS, `"bottom:" + bottom + "px"`)
	assert.Contains(t, probeJS, "visibilityState")
}
