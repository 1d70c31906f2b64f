// Package store persists saved sessions and named group bookmarks in a
// local SQLite database. It is the only package that touches the database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Sentinel errors.
var (
	ErrNotFound    = errors.New("store: not found")
	ErrInvalidName = errors.New("store: invalid group name")
)

// SQL statements.
const (
	sqlInsertSession    = `INSERT INTO sessions (id, created_at) VALUES (?, ?)`
	sqlInsertSessionTab = `INSERT INTO session_tabs (session_id, position, url, title) VALUES (?, ?, ?, ?)`
	sqlLatestSession    = `SELECT id, created_at FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT 1`
	sqlListSessions     = `SELECT id, created_at FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?`
	sqlSessionTabs      = `SELECT url, title FROM session_tabs WHERE session_id = ? ORDER BY position`
	sqlDeleteOldSession = `DELETE FROM sessions WHERE id NOT IN
		(SELECT id FROM sessions ORDER BY created_at DESC, rowid DESC LIMIT ?)`

	sqlUpsertGroup = `INSERT INTO group_bookmarks (name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`
	sqlClearGroupTabs = `DELETE FROM group_bookmark_tabs WHERE group_name = ?`
	sqlInsertGroupTab = `INSERT INTO group_bookmark_tabs (group_name, position, url, title) VALUES (?, ?, ?, ?)`
	sqlGetGroup       = `SELECT name, created_at, updated_at FROM group_bookmarks WHERE name = ?`
	sqlListGroups     = `SELECT name, created_at, updated_at FROM group_bookmarks ORDER BY name`
	sqlGroupTabs      = `SELECT url, title FROM group_bookmark_tabs WHERE group_name = ? ORDER BY position`
	sqlDeleteGroup    = `DELETE FROM group_bookmarks WHERE name = ?`
	sqlCountGroups    = `SELECT COUNT(*) FROM group_bookmarks`
)

// SavedTab is a tab captured in a session or group bookmark.
type SavedTab struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Session is a saved set of open tabs.
type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Tabs      []SavedTab `json:"tabs"`
}

// GroupBookmark is a named, saved set of tabs.
type GroupBookmark struct {
	Name      string     `json:"groupName"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Tabs      []SavedTab `json:"tabs"`
}

// Store wraps the session database. The database uses WAL mode and a
// single connection, so Store is the sole writer.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the database at dbPath and runs
// migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: creating database dir %s: %w", dir, err)
		}
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("session store opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: closing database: %w", err)
	}

	return nil
}

// NormalizeGroupName trims and NFC-normalizes a group name so that names
// typed on different platforms compare equal.
func NormalizeGroupName(name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" {
		return "", ErrInvalidName
	}

	return n, nil
}

// SaveSession stores tabs as a new session and keeps at most keep sessions
// (keep <= 0 keeps everything).
func (s *Store) SaveSession(ctx context.Context, tabs []SavedTab, keep int) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: s.nowFunc().UTC(),
		Tabs:      tabs,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin save session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqlInsertSession, sess.ID, sess.CreatedAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("store: inserting session: %w", err)
	}

	if err := insertTabs(ctx, tx, sqlInsertSessionTab, sess.ID, tabs); err != nil {
		return nil, err
	}

	if keep > 0 {
		if _, err := tx.ExecContext(ctx, sqlDeleteOldSession, keep); err != nil {
			return nil, fmt.Errorf("store: pruning old sessions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: committing session: %w", err)
	}

	s.logger.Info("session saved", slog.String("id", sess.ID), slog.Int("tabs", len(tabs)))

	return sess, nil
}

// LatestSession returns the most recently saved session, or ErrNotFound.
func (s *Store) LatestSession(ctx context.Context) (*Session, error) {
	var (
		sess    Session
		created int64
	)

	err := s.db.QueryRowContext(ctx, sqlLatestSession).Scan(&sess.ID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no saved session: %w", ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("store: loading latest session: %w", err)
	}

	sess.CreatedAt = time.Unix(0, created).UTC()

	if sess.Tabs, err = s.loadTabs(ctx, sqlSessionTabs, sess.ID); err != nil {
		return nil, err
	}

	return &sess, nil
}

// ListSessions returns up to limit sessions, newest first, without tabs.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, sqlListSessions, limit)
	if err != nil {
		return nil, fmt.Errorf("store: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session

	for rows.Next() {
		var (
			sess    Session
			created int64
		)

		if err := rows.Scan(&sess.ID, &created); err != nil {
			return nil, fmt.Errorf("store: scanning session row: %w", err)
		}

		sess.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating session rows: %w", err)
	}

	return out, nil
}

// SaveGroup creates or replaces the named group bookmark.
func (s *Store) SaveGroup(ctx context.Context, name string, tabs []SavedTab) (*GroupBookmark, error) {
	name, err := NormalizeGroupName(name)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin save group: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqlUpsertGroup, name, now.UnixNano(), now.UnixNano()); err != nil {
		return nil, fmt.Errorf("store: upserting group %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, sqlClearGroupTabs, name); err != nil {
		return nil, fmt.Errorf("store: clearing group %q: %w", name, err)
	}

	if err := insertTabs(ctx, tx, sqlInsertGroupTab, name, tabs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: committing group %q: %w", name, err)
	}

	s.logger.Info("group bookmarked", slog.String("group", name), slog.Int("tabs", len(tabs)))

	return s.Group(ctx, name)
}

// Group returns the named group bookmark, or ErrNotFound.
func (s *Store) Group(ctx context.Context, name string) (*GroupBookmark, error) {
	name, err := NormalizeGroupName(name)
	if err != nil {
		return nil, err
	}

	g, err := scanGroup(s.db.QueryRowContext(ctx, sqlGetGroup, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("store: loading group %q: %w", name, err)
	}

	if g.Tabs, err = s.loadTabs(ctx, sqlGroupTabs, g.Name); err != nil {
		return nil, err
	}

	return g, nil
}

// ListGroups returns every group bookmark with its tabs, ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]GroupBookmark, error) {
	rows, err := s.db.QueryContext(ctx, sqlListGroups)
	if err != nil {
		return nil, fmt.Errorf("store: listing groups: %w", err)
	}

	var groups []GroupBookmark

	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scanning group row: %w", err)
		}

		groups = append(groups, *g)
	}

	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("store: iterating group rows: %w", err)
	}

	// Release the single connection before the per-group tab queries.
	rows.Close()

	for i := range groups {
		if groups[i].Tabs, err = s.loadTabs(ctx, sqlGroupTabs, groups[i].Name); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// RemoveGroup deletes the named group bookmark, or returns ErrNotFound.
func (s *Store) RemoveGroup(ctx context.Context, name string) error {
	name, err := NormalizeGroupName(name)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, sqlDeleteGroup, name)
	if err != nil {
		return fmt.Errorf("store: removing group %q: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: removing group %q: %w", name, err)
	}

	if n == 0 {
		return fmt.Errorf("group %q: %w", name, ErrNotFound)
	}

	s.logger.Info("group bookmark removed", slog.String("group", name))

	return nil
}

// GroupCount returns the number of group bookmarks.
func (s *Store) GroupCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, sqlCountGroups).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting groups: %w", err)
	}

	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*GroupBookmark, error) {
	var (
		g                GroupBookmark
		created, updated int64
	)

	if err := row.Scan(&g.Name, &created, &updated); err != nil {
		return nil, err
	}

	g.CreatedAt = time.Unix(0, created).UTC()
	g.UpdatedAt = time.Unix(0, updated).UTC()

	return &g, nil
}

func insertTabs(ctx context.Context, tx *sql.Tx, query, owner string, tabs []SavedTab) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("store: preparing tab insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tabs {
		if _, err := stmt.ExecContext(ctx, owner, i, t.URL, t.Title); err != nil {
			return fmt.Errorf("store: inserting tab %d of %s: %w", i, owner, err)
		}
	}

	return nil
}

func (s *Store) loadTabs(ctx context.Context, query, owner string) ([]SavedTab, error) {
	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("store: loading tabs of %s: %w", owner, err)
	}
	defer rows.Close()

	tabs := []SavedTab{}

	for rows.Next() {
		var t SavedTab
		if err := rows.Scan(&t.URL, &t.Title); err != nil {
			return nil, fmt.Errorf("store: scanning tab of %s: %w", owner, err)
		}

		tabs = append(tabs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating tabs of %s: %w", owner, err)
	}

	return tabs, nil
}
