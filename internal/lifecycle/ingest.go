package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// Ingest is the single dispatcher that maps events to ledger mutations.
// Every event source (host watch, in-page bindings, bridge clients) feeds
// it, which keeps the event-to-mutation table in one place.
type Ingest struct {
	ledger   *Ledger
	host     Activator
	settings SettingsFunc
	clock    Clock
	logger   *slog.Logger
}

// NewIngest creates an Ingest. host is only used for Reactivate events.
func NewIngest(ledger *Ledger, host Activator, settings SettingsFunc, clock Clock, logger *slog.Logger) *Ingest {
	return &Ingest{
		ledger:   ledger,
		host:     host,
		settings: settings,
		clock:    clock,
		logger:   logger,
	}
}

// Handle applies ev to the ledger. The only error it returns wraps
// ErrMalformedEvent; host failures during reactivation degrade to a grace
// window and are logged.
func (in *Ingest) Handle(ctx context.Context, ev Event) error {
	if ev.Tab.IsZero() {
		in.logger.Debug("dropping event without tab id", slog.String("kind", ev.Kind.String()))
		return fmt.Errorf("%w: %s event without tab id", ErrMalformedEvent, ev.Kind)
	}

	switch ev.Kind {
	case KindInteraction, KindActivated, KindCreated:
		in.ledger.RecordActivity(ev.Tab)

	case KindUpdated:
		in.handleUpdated(ev)

	case KindRemoved:
		in.ledger.Remove(ev.Tab)

	case KindReactivate:
		in.reactivate(ctx, ev.Tab)

	case KindDismiss:
		until := in.clock.Now().Add(in.settings().DismissGrace)
		in.ledger.GrantGrace(ev.Tab, until)
		in.logger.Debug("warning dismissed",
			slog.String("tab", ev.Tab.String()),
			slog.Time("ignore_until", until),
		)

	default:
		in.logger.Debug("dropping event of unknown kind",
			slog.Int("kind", int(ev.Kind)),
			slog.String("tab", ev.Tab.String()),
		)

		return fmt.Errorf("%w: unknown kind %d", ErrMalformedEvent, ev.Kind)
	}

	return nil
}

// handleUpdated applies discard transitions first. A load completion counts
// as activity unless the same update reports the tab being discarded.
func (in *Ingest) handleUpdated(ev Event) {
	discarding := false

	if ev.Discarded != nil {
		if *ev.Discarded {
			discarding = true
			in.ledger.MarkFrozen(ev.Tab)
		} else {
			in.ledger.MarkUnfrozen(ev.Tab)
		}
	}

	if ev.Status == StatusComplete && !discarding {
		in.ledger.RecordActivity(ev.Tab)
	}
}

// reactivate brings the tab forward and records activity. When the host
// cannot activate it, the tab gets a grace window instead so the user's
// click still protects it from closing while the host catches up.
func (in *Ingest) reactivate(ctx context.Context, id tabid.ID) {
	s := in.settings()

	actx, cancel := context.WithTimeout(ctx, s.ActionTimeout)
	defer cancel()

	if err := in.host.Activate(actx, id); err != nil {
		until := in.clock.Now().Add(s.DismissGrace)
		in.ledger.GrantGrace(id, until)

		level := slog.LevelWarn
		if errors.Is(err, ErrTabNotFound) {
			level = slog.LevelDebug
		}

		in.logger.Log(ctx, level, "reactivate failed, granting grace",
			slog.String("tab", id.String()),
			slog.String("error", err.Error()),
			slog.Time("ignore_until", until),
		)

		return
	}

	in.ledger.RecordActivity(id)
	in.logger.Info("frozen tab reactivated", slog.String("tab", id.String()))
}
