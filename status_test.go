package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/tabwarden/internal/bridge"
	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/store"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

func TestTabRow(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	row := tabRow(now, &bridge.TabStatus{
		ID:           tabid.New("AB12"),
		State:        "grace",
		LastActiveAt: now.Add(-2 * time.Hour),
		FrozenAt:     now.Add(-90 * time.Minute),
		IgnoreUntil:  now.Add(10 * time.Minute),
	})

	assert.Equal(t, []string{"AB12", "grace", "2h", "1h30m", "10m left"}, row)
}

func TestTabRow_ActiveHasNoFrozenOrGrace(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	row := tabRow(now, &bridge.TabStatus{
		ID:           tabid.New("CD34"),
		State:        "active",
		LastActiveAt: now.Add(-5 * time.Second),
		IgnoreUntil:  now.Add(-time.Minute),
	})

	assert.Equal(t, []string{"CD34", "active", "5s", "-", "-"}, row)
}

func TestPrintStatusText(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	st := &bridge.Status{
		Now: now,
		Tabs: []bridge.TabStatus{
			{ID: tabid.New("AA"), State: "active", LastActiveAt: now.Add(-time.Minute)},
			{ID: tabid.New("BB"), State: "frozen", LastActiveAt: now.Add(-3 * time.Hour), FrozenAt: now.Add(-time.Hour)},
			{ID: tabid.New("CC"), State: "warned", LastActiveAt: now.Add(-5 * time.Hour), FrozenAt: now.Add(-4 * time.Hour)},
		},
		Overlays: []lifecycle.Overlay{{
			ID:          "ov-1",
			Target:      tabid.New("AA"),
			FrozenTab:   tabid.New("CC"),
			Title:       "Quarterly report",
			RequestedAt: now.Add(-30 * time.Second),
		}},
	}

	var buf bytes.Buffer
	printStatusText(&buf, st, 4242)

	out := buf.String()
	assert.Contains(t, out, "Daemon: running (pid 4242)")
	assert.Contains(t, out, "3 tracked (1 active, 1 frozen, 1 warned, 0 grace)")
	assert.Contains(t, out, "TAB")
	assert.Contains(t, out, "GRACE")
	assert.Contains(t, out, "Recent warnings:")
	assert.Contains(t, out, `30s ago  "Quarterly report" (tab CC, shown in AA)`)
}

func TestPrintStatusText_Empty(t *testing.T) {
	var buf bytes.Buffer
	printStatusText(&buf, &bridge.Status{Now: time.Now()}, 0)

	out := buf.String()
	assert.Contains(t, out, "Daemon: running\n")
	assert.Contains(t, out, "0 tracked")
	assert.NotContains(t, out, "TAB")
	assert.NotContains(t, out, "Recent warnings")
}

func TestPrintGroups(t *testing.T) {
	var buf bytes.Buffer

	printGroups(&buf, []store.GroupBookmark{
		{Name: "Research", UpdatedAt: time.Now(), Tabs: []store.SavedTab{{URL: "https://a"}, {URL: "https://b"}}},
		{Name: "Shopping", UpdatedAt: time.Now(), Tabs: []store.SavedTab{{URL: "https://c"}}},
	})

	out := buf.String()
	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "Research")
	assert.Contains(t, out, "Shopping")
}

func TestPrintOpenGroups(t *testing.T) {
	var buf bytes.Buffer

	printOpenGroups(&buf, []bridge.OpenGroup{
		{Name: "Recipes", Tabs: []store.SavedTab{{URL: "https://food.example/soup", Title: "Soup"}}},
		{Name: "example.org", Tabs: []store.SavedTab{{URL: "https://example.org/"}}},
	})

	assert.Equal(t, "Recipes (1)\n  Soup\n\nexample.org (1)\n  https://example.org/\n", buf.String())
}
