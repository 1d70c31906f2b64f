// Package session saves and restores sets of open tabs: whole-window
// sessions and named group bookmarks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/tabwarden/internal/config"
	"github.com/tonimelisma/tabwarden/internal/grouping"
	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/store"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// ErrEmptyGroup is returned when bookmarking a group that has no open tabs.
var ErrEmptyGroup = errors.New("session: no open tabs in group")

// Host is the part of the browser the service needs.
type Host interface {
	Tabs(ctx context.Context) ([]lifecycle.Tab, error)
	Create(ctx context.Context, url string) (tabid.ID, error)
}

// Options are the config values the service reads on every call.
type Options struct {
	Mode         grouping.Mode
	KeepSessions int
	Restricted   []string
}

// OptionsFrom converts a loaded config.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Mode:         grouping.Mode(cfg.GroupingMode),
		KeepSessions: cfg.KeepSessions,
		Restricted:   cfg.RestrictedURLPrefixes,
	}
}

// Service implements the session and group bookmark operations.
type Service struct {
	host    Host
	store   *store.Store
	options func() Options
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(host Host, st *store.Store, options func() Options, logger *slog.Logger) *Service {
	return &Service{host: host, store: st, options: options, logger: logger}
}

// savable returns the tabs worth persisting: those with a URL that is not a
// browser or extension page.
func savable(tabs []lifecycle.Tab, restricted []string) []store.SavedTab {
	out := make([]store.SavedTab, 0, len(tabs))

	for _, t := range tabs {
		if t.URL == "" || lifecycle.IsRestricted(t.URL, restricted) {
			continue
		}

		out = append(out, store.SavedTab{URL: t.URL, Title: t.Title})
	}

	return out
}

// SaveSession records every open tab as a new session.
func (s *Service) SaveSession(ctx context.Context) (*store.Session, error) {
	opts := s.options()

	tabs, err := s.host.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: listing tabs: %w", err)
	}

	return s.store.SaveSession(ctx, savable(tabs, opts.Restricted), opts.KeepSessions)
}

// RestoreSession reopens the tabs of the latest session and returns how
// many were opened. A tab that fails to open does not stop the rest; the
// failures are joined into the returned error.
func (s *Service) RestoreSession(ctx context.Context) (int, error) {
	sess, err := s.store.LatestSession(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.open(ctx, sess.Tabs)

	s.logger.Info("session restored",
		slog.String("id", sess.ID),
		slog.Int("opened", n),
		slog.Int("saved", len(sess.Tabs)),
	)

	return n, err
}

// BookmarkGroup saves the open tabs that belong to the named group.
func (s *Service) BookmarkGroup(ctx context.Context, name string) (*store.GroupBookmark, error) {
	opts := s.options()

	tabs, err := s.host.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: listing tabs: %w", err)
	}

	members := grouping.NewClassifier(opts.Mode).Select(tabs, name)

	saved := savable(members, opts.Restricted)
	if len(saved) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyGroup, name)
	}

	return s.store.SaveGroup(ctx, name, saved)
}

// RestoreGroup reopens the tabs of a group bookmark.
func (s *Service) RestoreGroup(ctx context.Context, name string) (int, error) {
	g, err := s.store.Group(ctx, name)
	if err != nil {
		return 0, err
	}

	n, err := s.open(ctx, g.Tabs)

	s.logger.Info("group restored", slog.String("group", g.Name), slog.Int("opened", n))

	return n, err
}

// RemoveGroup deletes a group bookmark.
func (s *Service) RemoveGroup(ctx context.Context, name string) error {
	return s.store.RemoveGroup(ctx, name)
}

// Groups lists the group bookmarks.
func (s *Service) Groups(ctx context.Context) ([]store.GroupBookmark, error) {
	return s.store.ListGroups(ctx)
}

// Sessions lists up to limit saved sessions, newest first, without tabs.
func (s *Service) Sessions(ctx context.Context, limit int) ([]store.Session, error) {
	return s.store.ListSessions(ctx, limit)
}

// CurrentGroups classifies the open tabs without saving anything.
func (s *Service) CurrentGroups(ctx context.Context) ([]grouping.Group, error) {
	tabs, err := s.host.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: listing tabs: %w", err)
	}

	return grouping.NewClassifier(s.options().Mode).Group(tabs), nil
}

func (s *Service) open(ctx context.Context, tabs []store.SavedTab) (int, error) {
	var (
		opened int
		errs   []error
	)

	for _, t := range tabs {
		if _, err := s.host.Create(ctx, t.URL); err != nil {
			errs = append(errs, fmt.Errorf("opening %s: %w", t.URL, err))
			continue
		}

		opened++
	}

	return opened, errors.Join(errs...)
}
