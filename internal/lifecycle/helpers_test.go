package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// epoch is an arbitrary fixed start time for manual clocks.
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// manualClock is a Clock whose time only moves when Advance is called.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{now: epoch}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

// Advance moves time forward and fires every ticker whose period elapsed.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, tk := range tickers {
		tk.fire(now)
	}
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	tk := &manualTicker{period: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, tk)

	return tk
}

func (c *manualClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, tk := range c.tickers {
		if !tk.isStopped() {
			n++
		}
	}

	return n
}

type manualTicker struct {
	mu      sync.Mutex
	period  time.Duration
	next    time.Time
	stopped bool
	ch      chan time.Time
}

func (tk *manualTicker) C() <-chan time.Time { return tk.ch }

func (tk *manualTicker) Stop() {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	tk.stopped = true
}

func (tk *manualTicker) isStopped() bool {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	return tk.stopped
}

func (tk *manualTicker) fire(now time.Time) {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	if tk.stopped || now.Before(tk.next) {
		return
	}

	for !tk.next.After(now) {
		tk.next = tk.next.Add(tk.period)
	}

	// Drop the tick if the reader is behind, like time.Ticker.
	select {
	case tk.ch <- now:
	default:
	}
}

// fakeHost is an in-memory Host. Discard and Remove mutate the tab list the
// way a browser would.
type fakeHost struct {
	mu        sync.Mutex
	tabs      []Tab
	nextID    int
	tabsErr   error
	errs      map[string]error // keyed by "op:tab"
	discards  []tabid.ID
	removes   []tabid.ID
	activates []tabid.ID
	creates   []string
	overlays  []Overlay
}

func newFakeHost(tabs ...Tab) *fakeHost {
	return &fakeHost{tabs: tabs, errs: make(map[string]error)}
}

func (h *fakeHost) failOn(op string, id tabid.ID, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errs[op+":"+id.String()] = err
}

func (h *fakeHost) errFor(op string, id tabid.ID) error {
	return h.errs[op+":"+id.String()]
}

func (h *fakeHost) index(id tabid.ID) int {
	for i := range h.tabs {
		if h.tabs[i].ID == id {
			return i
		}
	}

	return -1
}

func (h *fakeHost) Tabs(context.Context) ([]Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tabsErr != nil {
		return nil, h.tabsErr
	}

	return append([]Tab(nil), h.tabs...), nil
}

func (h *fakeHost) Discard(_ context.Context, id tabid.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.discards = append(h.discards, id)

	if err := h.errFor("discard", id); err != nil {
		return err
	}

	i := h.index(id)
	if i < 0 {
		return fmt.Errorf("discard %s: %w", id, ErrTabNotFound)
	}

	h.tabs[i].Discarded = true

	return nil
}

func (h *fakeHost) Remove(_ context.Context, id tabid.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removes = append(h.removes, id)

	if err := h.errFor("remove", id); err != nil {
		return err
	}

	i := h.index(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrTabNotFound)
	}

	h.tabs = append(h.tabs[:i], h.tabs[i+1:]...)

	return nil
}

func (h *fakeHost) Activate(_ context.Context, id tabid.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.activates = append(h.activates, id)

	if err := h.errFor("activate", id); err != nil {
		return err
	}

	i := h.index(id)
	if i < 0 {
		return fmt.Errorf("activate %s: %w", id, ErrTabNotFound)
	}

	for j := range h.tabs {
		h.tabs[j].Active = j == i
	}

	h.tabs[i].Discarded = false

	return nil
}

func (h *fakeHost) Create(_ context.Context, url string) (tabid.ID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := tabid.New(fmt.Sprintf("new-%d", h.nextID))
	h.creates = append(h.creates, url)
	h.tabs = append(h.tabs, Tab{ID: id, URL: url, Status: StatusComplete})

	return id, nil
}

func (h *fakeHost) ShowOverlay(_ context.Context, o Overlay) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.errFor("overlay", o.Target); err != nil {
		return err
	}

	h.overlays = append(h.overlays, o)

	return nil
}

func (h *fakeHost) setActive(id tabid.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.tabs {
		h.tabs[i].Active = h.tabs[i].ID == id
	}
}

func (h *fakeHost) discardCalls() []tabid.ID {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]tabid.ID(nil), h.discards...)
}

func (h *fakeHost) removeCalls() []tabid.ID {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]tabid.ID(nil), h.removes...)
}

func (h *fakeHost) overlayCalls() []Overlay {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Overlay(nil), h.overlays...)
}

// webTab is a loaded, background, freezable tab.
func webTab(id string) Tab {
	return Tab{
		ID:     tabid.New(id),
		Title:  "Page " + id,
		URL:    "https://example.com/" + id,
		Status: StatusComplete,
	}
}

// foreground is the user's current tab.
func foreground(id string) Tab {
	t := webTab(id)
	t.Active = true

	return t
}

// fixedSettings returns a SettingsFunc over a mutable copy of s.
func fixedSettings(s *Settings) SettingsFunc {
	return func() Settings { return *s }
}

// scenarioSettings are the thresholds used by the documented scenarios:
// freeze 5s, close 300s, warn lead 5s, grace 30s.
func scenarioSettings() Settings {
	s := DefaultSettings()
	s.SweepInterval = time.Second

	return s
}

// settingsBox is a concurrency-safe mutable settings source.
type settingsBox struct {
	mu sync.Mutex
	s  Settings
}

func newSettingsBox(s Settings) *settingsBox {
	return &settingsBox{s: s}
}

func (b *settingsBox) get() Settings {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.s
}

func (b *settingsBox) update(fn func(*Settings)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fn(&b.s)
}

func (c *manualClock) tickersCreated() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tickers)
}
