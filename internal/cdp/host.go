// Package cdp implements the lifecycle Host and EventSource on top of the
// Chrome DevTools protocol using go-rod. It attaches to an already running
// browser; it never launches or closes one.
//
// DevTools has no notion of a discarded tab, so "discarding" here means
// moving the page to the frozen web lifecycle state. The adapter remembers
// which targets are frozen, whether it froze them or the browser did, and
// reports them as Discarded. DevTools does not
// expose pinning either, so Pinned is always false.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

const (
	// probeTimeout bounds the page-state probe. Frozen pages do not run
	// script, so their probe times out until the browser thaws them.
	probeTimeout = 250 * time.Millisecond

	defaultProbeParallel = 8
	eventBuffer          = 256
)

// Host is a lifecycle.Host backed by a DevTools connection.
type Host struct {
	browser  *rod.Browser
	cancel   context.CancelFunc
	logger   *slog.Logger
	parallel int

	mu     sync.Mutex
	frozen map[proto.TargetTargetID]struct{}

	// events carries adapter-originated events (thaws) to Watch.
	events chan lifecycle.Event
}

// Connect attaches to the browser at addr, which is either a host:port
// DevTools endpoint or a ws:// debugger URL. The connection lives until ctx
// is canceled or Close is called.
func Connect(ctx context.Context, addr string, parallel int, logger *slog.Logger) (*Host, error) {
	u, err := launcher.ResolveURL(addr)
	if err != nil {
		return nil, fmt.Errorf("cdp: resolving %s: %w", addr, err)
	}

	connCtx, cancel := context.WithCancel(ctx)

	browser := rod.New().ControlURL(u).Context(connCtx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("cdp: connecting to %s: %w", u, err)
	}

	if parallel <= 0 {
		parallel = defaultProbeParallel
	}

	logger.Info("connected to browser", slog.String("url", u))

	return &Host{
		browser:  browser,
		cancel:   cancel,
		logger:   logger,
		parallel: parallel,
		frozen:   make(map[proto.TargetTargetID]struct{}),
		events:   make(chan lifecycle.Event, eventBuffer),
	}, nil
}

// Close drops the DevTools connection. The browser keeps running.
func (h *Host) Close() {
	h.cancel()
}

// Tabs lists every page target with its current state.
func (h *Host) Tabs(ctx context.Context) ([]lifecycle.Tab, error) {
	res, err := proto.TargetGetTargets{}.Call(h.browser.Context(ctx))
	if err != nil {
		return nil, classify("listing targets", err)
	}

	infos := make([]*proto.TargetTargetInfo, 0, len(res.TargetInfos))
	for _, info := range res.TargetInfos {
		if isTab(info) {
			infos = append(infos, info)
		}
	}

	tabs := make([]lifecycle.Tab, len(infos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallel)

	for i, info := range infos {
		g.Go(func() error {
			tabs[i] = h.describe(gctx, info)
			return nil
		})
	}

	_ = g.Wait()

	return tabs, nil
}

// describe builds the Tab for one target, probing the page for visibility,
// load state, and media playback.
func (h *Host) describe(ctx context.Context, info *proto.TargetTargetInfo) lifecycle.Tab {
	frozen := h.isFrozen(info.TargetID)

	probe, err := h.probe(ctx, info.TargetID)
	if err != nil {
		if !frozen {
			h.logger.Debug("page probe failed",
				slog.String("tab", string(info.TargetID)),
				slog.String("error", err.Error()),
			)
		}

		return tabFromTarget(info, probeResult{}, frozen)
	}

	if frozen && probe.Visible {
		// The browser resumed a page we froze because the user switched
		// to it.
		h.thaw(info.TargetID)
		frozen = false
	}

	return tabFromTarget(info, probe, frozen)
}

func (h *Host) probe(ctx context.Context, id proto.TargetTargetID) (probeResult, error) {
	page, err := h.browser.PageFromTarget(id)
	if err != nil {
		return probeResult{}, classify("attaching", err)
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res, err := page.Context(pctx).Eval(probeJS)
	if err != nil {
		return probeResult{}, classify("probing", err)
	}

	return parseProbe(res.Value.Str())
}

// Discard freezes the page.
func (h *Host) Discard(ctx context.Context, id tabid.ID) error {
	tid := targetID(id)

	page, err := h.browser.PageFromTarget(tid)
	if err != nil {
		return classify("attaching", err)
	}

	err = proto.PageSetWebLifecycleState{State: proto.PageSetWebLifecycleStateStateFrozen}.Call(page.Context(ctx))
	if err != nil {
		return classify("freezing", err)
	}

	h.mu.Lock()
	h.frozen[tid] = struct{}{}
	h.mu.Unlock()

	return nil
}

// Activate resumes the page if it is frozen and brings it to the front.
func (h *Host) Activate(ctx context.Context, id tabid.ID) error {
	tid := targetID(id)

	if h.isFrozen(tid) {
		page, err := h.browser.PageFromTarget(tid)
		if err != nil {
			return classify("attaching", err)
		}

		err = proto.PageSetWebLifecycleState{State: proto.PageSetWebLifecycleStateStateActive}.Call(page.Context(ctx))
		if err != nil {
			return classify("resuming", err)
		}

		h.forget(tid)
	}

	if err := (proto.TargetActivateTarget{TargetID: tid}).Call(h.browser.Context(ctx)); err != nil {
		return classify("activating", err)
	}

	return nil
}

// Remove closes the tab.
func (h *Host) Remove(ctx context.Context, id tabid.ID) error {
	tid := targetID(id)

	page, err := h.browser.PageFromTarget(tid)
	if err != nil {
		return classify("attaching", err)
	}

	if err := page.Context(ctx).Close(); err != nil {
		return classify("closing", err)
	}

	h.forget(tid)

	return nil
}

// Create opens url in a new tab.
func (h *Host) Create(ctx context.Context, url string) (tabid.ID, error) {
	page, err := h.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return tabid.ID{}, classify("creating tab", err)
	}

	return tabid.New(string(page.TargetID)), nil
}

// ShowOverlay renders the closing-soon warning inside the target page.
func (h *Host) ShowOverlay(ctx context.Context, o lifecycle.Overlay) error {
	page, err := h.browser.PageFromTarget(targetID(o.Target))
	if err != nil {
		return classify("attaching", err)
	}

	if _, err := page.Context(ctx).Eval(overlayJS, overlayArgs(o)...); err != nil {
		return classify("showing overlay", err)
	}

	return nil
}

func (h *Host) isFrozen(id proto.TargetTargetID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.frozen[id]

	return ok
}

func (h *Host) forget(id proto.TargetTargetID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.frozen, id)
}

// noteDiscard keeps the freeze marks in step with a discard transition the
// page reported itself.
func (h *Host) noteDiscard(id proto.TargetTargetID, ev lifecycle.Event) {
	if ev.Discarded == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if *ev.Discarded {
		h.frozen[id] = struct{}{}
	} else {
		delete(h.frozen, id)
	}
}

// thaw clears the adapter's freeze mark and reports the tab as activated.
// Dropping the event when Watch is not draining is fine: the next
// interaction ping records the same activity.
func (h *Host) thaw(id proto.TargetTargetID) {
	h.forget(id)

	select {
	case h.events <- lifecycle.NewEvent(lifecycle.KindActivated, tabid.New(string(id))):
	default:
	}
}

// isTab reports whether a target is a browser tab.
func isTab(info *proto.TargetTargetInfo) bool {
	return info != nil && info.Type == proto.TargetTargetInfoTypePage
}

func tabFromTarget(info *proto.TargetTargetInfo, p probeResult, frozen bool) lifecycle.Tab {
	t := lifecycle.Tab{
		ID:        tabid.New(string(info.TargetID)),
		Title:     info.Title,
		URL:       info.URL,
		Discarded: frozen,
		Active:    p.Visible && !frozen,
		Audible:   p.Audible,
		Status:    p.Ready,
	}

	// A frozen page finished loading before it was frozen.
	if frozen {
		t.Status = lifecycle.StatusComplete
	}

	return t
}

// targetID converts a tab id back to a DevTools target id. tabid.New
// upper-cases, which matches the hex form DevTools uses.
func targetID(id tabid.ID) proto.TargetTargetID {
	return proto.TargetTargetID(id.String())
}
