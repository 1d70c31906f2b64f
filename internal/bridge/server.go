package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tonimelisma/tabwarden/internal/config"
	"github.com/tonimelisma/tabwarden/internal/grouping"
	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/store"
	"github.com/tonimelisma/tabwarden/internal/tabid"
)

const (
	maxRequestBytes   = 64 << 10
	readHeaderTimeout = 5 * time.Second

	defaultSessionLimit = 10
	maxSessionLimit     = 100
)

// extensionOrigins are the browser origins allowed to open a WebSocket.
// Requests without an Origin header (the CLI, curl) are always accepted;
// ordinary web pages are not, so a site cannot drive the daemon from a
// visitor's browser.
var extensionOrigins = []string{"chrome-extension://*", "moz-extension://*"}

// Sessions is the session and group bookmark capability behind the
// bridge. *session.Service implements it.
type Sessions interface {
	SaveSession(ctx context.Context) (*store.Session, error)
	RestoreSession(ctx context.Context) (int, error)
	BookmarkGroup(ctx context.Context, name string) (*store.GroupBookmark, error)
	RestoreGroup(ctx context.Context, name string) (int, error)
	RemoveGroup(ctx context.Context, name string) error
	Groups(ctx context.Context) ([]store.GroupBookmark, error)
	Sessions(ctx context.Context, limit int) ([]store.Session, error)
	CurrentGroups(ctx context.Context) ([]grouping.Group, error)
}

// Options are the config values the server reads on every request.
type Options struct {
	PingRate        float64
	PingBurst       int
	ShutdownTimeout time.Duration
}

// OptionsFrom converts a loaded config.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		PingRate:        float64(cfg.PingRate),
		PingBurst:       cfg.PingBurst,
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}
}

// Server routes protocol messages to the lifecycle ingest pipeline and the
// session service.
type Server struct {
	events   lifecycle.Handler
	sessions Sessions
	ledger   *lifecycle.Ledger
	notifier *lifecycle.Notifier
	options  func() Options
	clock    lifecycle.Clock
	logger   *slog.Logger
	pings    *pingLimiter
	router   chi.Router
}

// NewServer creates a Server and its router.
func NewServer(
	events lifecycle.Handler,
	sessions Sessions,
	ledger *lifecycle.Ledger,
	notifier *lifecycle.Notifier,
	options func() Options,
	clock lifecycle.Clock,
	logger *slog.Logger,
) *Server {
	s := &Server{
		events:   events,
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
		options:  options,
		clock:    clock,
		logger:   logger,
		pings:    newPingLimiter(clock.Now),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/sessions", s.handleSessions)
	r.Get("/groups", s.handleCurrentGroups)
	r.Post("/message", s.handleMessage)
	r.Get("/ws", s.handleWebSocket)
	s.router = r

	return s
}

// Handler returns the HTTP handler serving every bridge route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr and serves until ctx is canceled, then shuts down,
// giving in-flight requests the configured shutdown timeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.Serve(ln)
	}()

	s.logger.Info("bridge listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return fmt.Errorf("bridge: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.options().ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge: shutting down: %w", err)
	}

	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge: serving: %w", err)
	}

	s.logger.Info("bridge stopped")

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildStatus(s.ledger, s.notifier, s.clock.Now()))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, Response{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}

		limit = min(n, maxSessionLimit)
	}

	sessions, err := s.sessions.Sessions(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing sessions failed", slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), Response{Error: err.Error()})

		return
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionSummary{ID: sess.ID, CreatedAt: sess.CreatedAt})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCurrentGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.sessions.CurrentGroups(r.Context())
	if err != nil {
		s.logger.Warn("classifying open tabs failed", slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), Response{Error: err.Error()})

		return
	}

	out := make([]OpenGroup, 0, len(groups))
	for _, g := range groups {
		og := OpenGroup{Name: g.Name, Tabs: make([]store.SavedTab, 0, len(g.Tabs))}
		for _, t := range g.Tabs {
			og.Tabs = append(og.Tabs, store.SavedTab{URL: t.URL, Title: t.Title})
		}

		out = append(out, og)
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req Request

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: fmt.Sprintf("decoding request: %v", err)})
		return
	}

	resp, err := s.Dispatch(r.Context(), req)

	writeJSON(w, statusFor(err), resp)
}

// handleWebSocket answers one Response per Request until the peer closes
// the connection or the server shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: extensionOrigins})
	if err != nil {
		s.logger.Debug("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(maxRequestBytes)

	ctx := r.Context()

	for {
		var req Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					s.logger.Debug("websocket read failed", slog.String("error", err.Error()))
				}
			}

			return
		}

		resp, _ := s.Dispatch(ctx, req)

		if err := wsjson.Write(ctx, conn, resp); err != nil {
			s.logger.Debug("websocket write failed", slog.String("error", err.Error()))
			return
		}
	}
}

// Dispatch executes one protocol message. The returned Response is always
// ready to send; the error classifies failures for the transport.
func (s *Server) Dispatch(ctx context.Context, req Request) (Response, error) {
	resp, err := s.dispatch(ctx, req)
	if err != nil {
		resp.Error = err.Error()

		if errors.Is(err, ErrRateLimited) {
			return resp, err
		}

		level := slog.LevelWarn
		if statusFor(err) < http.StatusInternalServerError {
			level = slog.LevelDebug
		}

		s.logger.Log(ctx, level, "bridge request failed",
			slog.String("action", req.Action),
			slog.String("tab", req.TabID),
			slog.String("group", req.GroupName),
			slog.String("error", err.Error()),
		)
	}

	return resp, err
}

func (s *Server) dispatch(ctx context.Context, req Request) (Response, error) {
	id := tabid.New(req.TabID)

	switch req.Action {
	case ActionUpdateActivity:
		opts := s.options()
		if !id.IsZero() && !s.pings.allow(id, opts.PingRate, opts.PingBurst) {
			// The client is told to back off, but the interaction still
			// counts: a ping must always beat the next sweep.
			s.ledger.RecordActivity(id)
			return Response{}, ErrRateLimited
		}

		return s.event(ctx, lifecycle.KindInteraction, id)

	case ActionActivateFrozenTab:
		return s.event(ctx, lifecycle.KindReactivate, id)

	case ActionDismissFrozenTab:
		return s.event(ctx, lifecycle.KindDismiss, id)

	case ActionGetGroupBookmarks:
		groups, err := s.sessions.Groups(ctx)
		if err != nil {
			return Response{}, err
		}

		if groups == nil {
			groups = []store.GroupBookmark{}
		}

		return Response{Groups: groups}, nil

	case ActionSaveSession:
		sess, err := s.sessions.SaveSession(ctx)
		if err != nil {
			return Response{Status: "Failed to save session."}, err
		}

		return Response{Status: fmt.Sprintf("Session saved (%d tabs).", len(sess.Tabs))}, nil

	case ActionRestoreSession:
		n, err := s.sessions.RestoreSession(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return Response{Status: "No saved session."}, err
		}

		if err != nil && n == 0 {
			return Response{Status: "Failed to restore session."}, err
		}

		if err != nil {
			s.logger.Warn("session partially restored", slog.Int("opened", n), slog.String("error", err.Error()))
		}

		return Response{Status: fmt.Sprintf("Session restored (%d tabs).", n)}, nil

	case ActionBookmarkGroup:
		g, err := s.sessions.BookmarkGroup(ctx, req.GroupName)
		if err != nil {
			return Response{Status: "Failed to bookmark group."}, err
		}

		return Response{Status: fmt.Sprintf("Group %q bookmarked (%d tabs).", g.Name, len(g.Tabs))}, nil

	case ActionRestoreGroup:
		n, err := s.sessions.RestoreGroup(ctx, req.GroupName)
		if err != nil && n == 0 {
			return Response{Status: "Failed to restore group."}, err
		}

		if err != nil {
			s.logger.Warn("group partially restored",
				slog.String("group", req.GroupName),
				slog.Int("opened", n),
				slog.String("error", err.Error()),
			)
		}

		return Response{Status: fmt.Sprintf("Group restored (%d tabs).", n)}, nil

	case ActionRemoveGroupBookmark:
		if err := s.sessions.RemoveGroup(ctx, req.GroupName); err != nil {
			return Response{Status: "Failed to remove group."}, err
		}

		return Response{Status: "Group removed."}, nil

	default:
		return Response{}, fmt.Errorf("%w %q", ErrUnknownAction, req.Action)
	}
}

func (s *Server) event(ctx context.Context, kind lifecycle.Kind, id tabid.ID) (Response, error) {
	if err := s.events.Handle(ctx, lifecycle.NewEvent(kind, id)); err != nil {
		return Response{}, err
	}

	return Response{Status: "ok"}, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	// The status line is already sent; an encode failure means the client
	// went away.
	_ = json.NewEncoder(w).Encode(v)
}
