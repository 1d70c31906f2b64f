package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// targetChange is a DevTools target event, queued from the rod event
// callback to the Watch loop so that no CDP call runs inside a callback.
type targetChange struct {
	created   *proto.TargetTargetInfo
	changed   *proto.TargetTargetInfo
	destroyed proto.TargetTargetID
}

// watchedPage is a tab with the activity script installed.
type watchedPage struct {
	url    string
	cancel context.CancelFunc
}

// Watch feeds tab events to h until ctx is canceled. Existing tabs are
// reported as created first so the ledger starts tracking them.
func (h *Host) Watch(ctx context.Context, handler lifecycle.Handler) error {
	browser := h.browser.Context(ctx)

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(browser); err != nil {
		return classify("enabling target discovery", err)
	}

	changes := make(chan targetChange, eventBuffer)

	wait := browser.EachEvent(
		func(e *proto.TargetTargetCreated) {
			queue(ctx, changes, targetChange{created: e.TargetInfo})
		},
		func(e *proto.TargetTargetInfoChanged) {
			queue(ctx, changes, targetChange{changed: e.TargetInfo})
		},
		func(e *proto.TargetTargetDestroyed) {
			queue(ctx, changes, targetChange{destroyed: e.TargetID})
		},
	)

	disconnected := make(chan struct{})

	go func() {
		wait()
		close(disconnected)
	}()

	pages := make(map[proto.TargetTargetID]*watchedPage)
	defer func() {
		for _, p := range pages {
			p.cancel()
		}
	}()

	res, err := proto.TargetGetTargets{}.Call(browser)
	if err != nil {
		return classify("listing targets", err)
	}

	for _, info := range res.TargetInfos {
		if isTab(info) {
			h.track(ctx, handler, pages, info)
		}
	}

	h.logger.Info("watching browser tabs", slog.Int("tabs", len(pages)))

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-disconnected:
			if ctx.Err() != nil {
				return nil
			}

			return ErrDisconnected

		case ev := <-h.events:
			h.deliver(ctx, handler, ev)

		case c := <-changes:
			h.apply(ctx, handler, pages, c)
		}
	}
}

func queue(ctx context.Context, changes chan<- targetChange, c targetChange) {
	select {
	case changes <- c:
	case <-ctx.Done():
	}
}

func (h *Host) apply(ctx context.Context, handler lifecycle.Handler, pages map[proto.TargetTargetID]*watchedPage, c targetChange) {
	switch {
	case c.created != nil:
		if isTab(c.created) {
			h.track(ctx, handler, pages, c.created)
		}

	case c.changed != nil:
		p, ok := pages[c.changed.TargetID]
		if !ok || !isTab(c.changed) {
			return
		}

		// A new URL means the tab navigated; the load counts as activity
		// just like a completed update.
		if c.changed.URL != p.url {
			p.url = c.changed.URL
			h.deliver(ctx, handler, lifecycle.StatusChanged(tabid.New(string(c.changed.TargetID)), lifecycle.StatusComplete))
		}

	case c.destroyed != "":
		p, ok := pages[c.destroyed]
		if !ok {
			return
		}

		p.cancel()
		delete(pages, c.destroyed)
		h.forget(c.destroyed)
		h.deliver(ctx, handler, lifecycle.NewEvent(lifecycle.KindRemoved, tabid.New(string(c.destroyed))))
	}
}

// track starts following a tab: reports it as created and installs the
// activity script and binding listener.
func (h *Host) track(ctx context.Context, handler lifecycle.Handler, pages map[proto.TargetTargetID]*watchedPage, info *proto.TargetTargetInfo) {
	if _, ok := pages[info.TargetID]; ok {
		return
	}

	id := tabid.New(string(info.TargetID))
	pctx, cancel := context.WithCancel(ctx)
	pages[info.TargetID] = &watchedPage{url: info.URL, cancel: cancel}

	h.deliver(ctx, handler, lifecycle.NewEvent(lifecycle.KindCreated, id))

	page, err := h.browser.PageFromTarget(info.TargetID)
	if err != nil {
		h.logger.Debug("cannot attach to tab", slog.String("tab", id.String()), slog.String("error", err.Error()))
		return
	}

	if err := instrument(page.Context(pctx)); err != nil {
		h.logger.Debug("cannot instrument tab", slog.String("tab", id.String()), slog.String("error", err.Error()))
		return
	}

	go page.Context(pctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		ev, err := eventFromBinding(id, e.Payload)
		if err != nil {
			h.logger.Debug("dropping binding message", slog.String("tab", id.String()), slog.String("error", err.Error()))
			return
		}

		h.noteDiscard(info.TargetID, ev)

		select {
		case h.events <- ev:
		case <-pctx.Done():
		}
	})()
}

// instrument installs the binding and the activity script on the current
// document and on every document the tab loads later.
func instrument(page *rod.Page) error {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return fmt.Errorf("adding binding: %w", err)
	}

	if _, err := page.EvalOnNewDocument(activityJS); err != nil {
		return fmt.Errorf("installing activity script: %w", err)
	}

	if _, err := (proto.RuntimeEvaluate{Expression: activityJS}).Call(page); err != nil {
		return fmt.Errorf("running activity script: %w", err)
	}

	return nil
}

func (h *Host) deliver(ctx context.Context, handler lifecycle.Handler, ev lifecycle.Event) {
	if err := handler.Handle(ctx, ev); err != nil && !errors.Is(err, lifecycle.ErrMalformedEvent) {
		h.logger.Warn("event handling failed",
			slog.String("kind", ev.Kind.String()),
			slog.String("tab", ev.Tab.String()),
			slog.String("error", err.Error()),
		)
	}
}
