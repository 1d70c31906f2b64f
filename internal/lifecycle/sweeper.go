package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// TickResult summarizes the decisions of one sweep.
type TickResult struct {
	Skipped  bool // sweeping disabled or host unreachable
	Tabs     int
	Discards int
	Warnings int
	Closes   int
	Pruned   int
}

// actionKind is the host action a sweep decided on.
type actionKind int

const (
	actionDiscard actionKind = iota
	actionClose
	actionOverlay
)

type action struct {
	kind    actionKind
	tab     tabid.ID
	seenAt  time.Time // LastActiveAt observed when a discard was decided
	overlay Overlay
}

// Sweeper is the periodic driver. Each tick runs a synchronous decision
// pass under tickMu, then hands the resulting host actions to a bounded
// errgroup and returns without waiting for them. A per-tab in-flight set
// keeps a slow discard or close from being requested twice.
type Sweeper struct {
	ledger   *Ledger
	host     Host
	notifier *Notifier
	settings SettingsFunc
	clock    Clock
	logger   *slog.Logger
	failures *failureTracker

	tickMu sync.Mutex

	inflightMu sync.Mutex
	inflight   map[tabid.ID]struct{}

	pending sync.WaitGroup
}

// NewSweeper wires a sweeper to its collaborators.
func NewSweeper(
	ledger *Ledger, host Host, notifier *Notifier, settings SettingsFunc, clock Clock, logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		host:     host,
		notifier: notifier,
		settings: settings,
		clock:    clock,
		logger:   logger,
		failures: newFailureTracker(logger, clock.Now),
		inflight: make(map[tabid.ID]struct{}),
	}
}

// Run ticks until ctx is canceled, then waits for outstanding host actions.
// A changed sweep_interval takes effect on the tick after the reload.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.settings().SweepInterval
	ticker := s.clock.NewTicker(interval)

	defer func() { ticker.Stop() }()

	s.logger.Info("sweeper started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.Wait()
			s.logger.Info("sweeper stopped")

			return nil

		case <-ticker.C():
			s.Tick(ctx)

			if next := s.settings().SweepInterval; next != interval {
				ticker.Stop()
				ticker = s.clock.NewTicker(next)

				s.logger.Info("sweep interval changed",
					slog.Duration("old", interval),
					slog.Duration("new", next),
				)

				interval = next
			}
		}
	}
}

// Wait blocks until every host action issued so far has completed.
func (s *Sweeper) Wait() {
	s.pending.Wait()
}

// Tick runs one sweep. Ticks are serialized: a tick does not start its
// decision pass until the previous one has finished deciding. Host actions
// are dispatched asynchronously.
func (s *Sweeper) Tick(ctx context.Context) TickResult {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	set := s.settings()
	if !set.Enabled {
		return TickResult{Skipped: true}
	}

	queriedAt := s.clock.Now()

	tabs, err := s.host.Tabs(ctx)
	if err != nil {
		s.logger.Warn("sweep: listing tabs failed", slog.String("error", err.Error()))
		return TickResult{Skipped: true}
	}

	res := TickResult{Tabs: len(tabs)}

	open := make(map[tabid.ID]struct{}, len(tabs))
	for i := range tabs {
		open[tabs[i].ID] = struct{}{}
	}

	for _, id := range s.ledger.PruneMissing(open, queriedAt) {
		s.failures.forget(id)
		res.Pruned++
		s.logger.Debug("pruned record of vanished tab", slog.String("tab", id.String()))
	}

	now := s.clock.Now()

	var actions []action

	if set.FreezerEnabled {
		actions = s.freezePass(tabs, now, set, actions)
	}

	res.Discards = len(actions)

	actions, warnings := s.closePass(tabs, now, set, actions)
	res.Closes = len(actions) - res.Discards

	for _, o := range s.notifier.Plan(foregroundTab(tabs), warnings, set) {
		actions = append(actions, action{kind: actionOverlay, tab: o.Target, overlay: o})
	}

	res.Warnings = len(warnings)

	s.dispatch(ctx, set, actions)

	if res.Discards+res.Closes+res.Warnings > 0 {
		s.logger.Debug("sweep decided",
			slog.Int("tabs", res.Tabs),
			slog.Int("discards", res.Discards),
			slog.Int("warnings", res.Warnings),
			slog.Int("closes", res.Closes),
		)
	}

	return res
}

// freezePass appends a discard for every freeze-eligible tab.
func (s *Sweeper) freezePass(tabs []Tab, now time.Time, set Settings, actions []action) []action {
	for i := range tabs {
		t := &tabs[i]
		rec, ok := s.ledger.Get(t.ID)

		if !IsFreezeEligible(*t, rec, ok, now, set.FreezeAfter, set.Restricted) {
			continue
		}

		if s.failures.shouldSkip(t.ID) || !s.claim(t.ID) {
			continue
		}

		actions = append(actions, action{kind: actionDiscard, tab: t.ID, seenAt: rec.LastActiveAt})
	}

	return actions
}

// closePass evaluates discarded tabs. Warning and closing are checked
// independently, so a tab that crossed both thresholds since the last tick
// is warned and closed in the same sweep.
func (s *Sweeper) closePass(tabs []Tab, now time.Time, set Settings, actions []action) ([]action, []Warning) {
	var warnings []Warning

	for i := range tabs {
		t := &tabs[i]
		if !IsCloseCandidate(*t, set.Restricted) {
			continue
		}

		rec, ok := s.ledger.Get(t.ID)
		if !ok {
			continue
		}

		if IsWarnEligible(rec, now, set.CloseAfter, set.WarnLead) && s.ledger.MarkNotified(t.ID) {
			warnings = append(warnings, Warning{Tab: *t, Record: rec})
		}

		if IsCloseEligible(rec, now, set.CloseAfter) && s.claim(t.ID) {
			actions = append(actions, action{kind: actionClose, tab: t.ID})
		}
	}

	return actions, warnings
}

// claim marks id as having an action in flight. Returns false when one
// already is.
func (s *Sweeper) claim(id tabid.ID) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	if _, busy := s.inflight[id]; busy {
		return false
	}

	s.inflight[id] = struct{}{}

	return true
}

func (s *Sweeper) release(id tabid.ID) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	delete(s.inflight, id)
}

// dispatch runs actions on a bounded errgroup in the background. Action
// failures are logged by the handlers and never cancel sibling actions.
func (s *Sweeper) dispatch(ctx context.Context, set Settings, actions []action) {
	if len(actions) == 0 {
		return
	}

	s.pending.Add(1)

	go func() {
		defer s.pending.Done()

		var g errgroup.Group
		g.SetLimit(max(set.MaxParallel, 1))

		for _, a := range actions {
			g.Go(func() error {
				actx, cancel := context.WithTimeout(ctx, set.ActionTimeout)
				defer cancel()

				switch a.kind {
				case actionDiscard:
					s.discard(actx, a)
				case actionClose:
					s.closeTab(actx, set, a)
				case actionOverlay:
					s.showOverlay(actx, a)
				}

				return nil
			})
		}

		_ = g.Wait()
	}()
}

// discard freezes one tab. Activity recorded after the decision wins: the
// discard is abandoned rather than freezing a tab the user just touched.
func (s *Sweeper) discard(ctx context.Context, a action) {
	defer s.release(a.tab)

	rec, ok := s.ledger.Get(a.tab)
	if !ok || rec.LastActiveAt.After(a.seenAt) {
		s.logger.Debug("discard abandoned, tab active or gone", slog.String("tab", a.tab.String()))
		return
	}

	if err := s.host.Discard(ctx, a.tab); err != nil {
		err = hostError("discard", a.tab, err)
		s.failures.recordFailure(a.tab, err)
		s.logHostError(err)

		return
	}

	s.failures.recordSuccess(a.tab)
	s.ledger.MarkFrozen(a.tab)
	s.logger.Info("tab frozen",
		slog.String("tab", a.tab.String()),
		slog.Duration("idle", s.clock.Now().Sub(rec.LastActiveAt)),
	)
}

// closeTab removes one frozen tab, re-checking eligibility first so a
// reactivation or dismissal that raced the decision keeps the tab open.
func (s *Sweeper) closeTab(ctx context.Context, set Settings, a action) {
	defer s.release(a.tab)

	rec, ok := s.ledger.Get(a.tab)
	if !ok || !IsCloseEligible(rec, s.clock.Now(), set.CloseAfter) {
		s.logger.Debug("close abandoned, tab no longer eligible", slog.String("tab", a.tab.String()))
		return
	}

	if err := s.host.Remove(ctx, a.tab); err != nil {
		err = hostError("remove", a.tab, err)
		if errors.Is(err, ErrTabNotFound) {
			s.ledger.Remove(a.tab)
		}

		s.logHostError(err)

		return
	}

	s.ledger.Remove(a.tab)
	s.failures.forget(a.tab)
	s.logger.Info("frozen tab closed",
		slog.String("tab", a.tab.String()),
		slog.Duration("frozen", s.clock.Now().Sub(rec.FrozenAt)),
	)
}

func (s *Sweeper) showOverlay(ctx context.Context, a action) {
	if err := s.host.ShowOverlay(ctx, a.overlay); err != nil {
		s.logHostError(hostError("overlay", a.tab, err))
		return
	}

	s.logger.Info("close warning shown",
		slog.String("overlay", a.overlay.ID),
		slog.String("frozen_tab", a.overlay.FrozenTab.String()),
		slog.String("target", a.overlay.Target.String()),
	)
}

// logHostError logs at debug for vanished tabs, which the removal event will
// reconcile, and at warn for everything else.
func (s *Sweeper) logHostError(err error) {
	if errors.Is(err, ErrTabNotFound) {
		s.logger.Debug("host action on vanished tab", slog.String("error", err.Error()))
		return
	}

	s.logger.Warn("host action failed", slog.String("error", err.Error()))
}
