package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/tabwarden/internal/bridge"
	"github.com/tonimelisma/tabwarden/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagCDPURL     string
	flagListen     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// httpClientTimeout bounds CLI requests to the daemon's bridge. Session and
// group restores open tabs one by one, so it is generous.
const httpClientTimeout = 60 * time.Second

// logFilePermissions matches the PID file: owner rw, group/other r.
const logFilePermissions = 0o644

// CLIFlags are the parsed persistent flags.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries what every subcommand needs: flags, the effective
// config, and a logger built from both.
type CLIContext struct {
	Flags      CLIFlags
	Cfg        *config.Config
	CfgPath    string
	Overrides  config.CLIOverrides
	Logger     *slog.Logger
	closeLog   func() error
	httpClient *http.Client

	// pidPath is the daemon's PID file. listenPinned is set when this
	// invocation named a bridge address through --listen or the environment.
	pidPath      string
	listenPinned bool
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext installed by the root pre-run. A
// missing context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("tabwarden: CLIContext missing from command context")
	}

	return cc
}

// Bridge returns a client for the running daemon's bridge.
func (cc *CLIContext) Bridge() *bridge.Client {
	return bridge.NewClient(cc.bridgeAddr(), cc.httpClient, cc.Logger)
}

// bridgeAddr prefers the address the running daemon recorded in its PID
// file, unless this invocation named one explicitly.
func (cc *CLIContext) bridgeAddr() string {
	if cc.listenPinned || cc.pidPath == "" {
		return cc.Cfg.ListenAddr
	}

	_, daemon, err := runningDaemon(cc.pidPath)
	if err != nil || daemon.Listen == "" {
		return cc.Cfg.ListenAddr
	}

	if daemon.Listen != cc.Cfg.ListenAddr {
		cc.Logger.Debug("using bridge address recorded by daemon",
			slog.Int("pid", daemon.PID),
			slog.String("listen", daemon.Listen),
		)
	}

	return daemon.Listen
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabwarden",
		Short: "Freeze idle browser tabs and close the ones you forgot",
		Long: `tabwarden attaches to a Chromium-family browser over the DevTools protocol,
freezes tabs that sit idle, warns before closing tabs that stay frozen,
and closes them. It also saves sessions and bookmarks groups of tabs.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := loadCLIContext(cmd)
			if err != nil {
				return err
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
			if !ok || cc.closeLog == nil {
				return nil
			}

			return cc.closeLog()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagCDPURL, "cdp-url", "", "browser DevTools endpoint (host:port or ws:// URL)")
	cmd.PersistentFlags().StringVar(&flagListen, "listen", "", "bridge listen address")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newGroupCmd())

	return cmd
}

// loadCLIContext resolves the effective configuration from the four-layer
// override chain and builds the logger. A broken config file is an error
// for CLI commands; the daemon re-loads leniently in run.
func loadCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	cli := config.CLIOverrides{ConfigPath: flagConfigPath}
	if cmd.Flags().Changed("cdp-url") {
		cli.CDPURL = &flagCDPURL
	}

	if cmd.Flags().Changed("listen") {
		cli.ListenAddr = &flagListen
	}

	env := config.ReadEnvOverrides()
	path := config.ResolvePath(env, cli)

	bootstrap := buildLogger(nil, flags, os.Stderr)

	var cfg *config.Config
	if cmd.Name() == "run" {
		cfg = config.LoadLenient(path, bootstrap)
	} else {
		loaded, err := config.LoadOrDefault(path, bootstrap)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		cfg = loaded
	}

	config.ApplyOverrides(cfg, env, cli)

	out, closeLog, err := openLogOutput(cfg.LogFile)
	if err != nil {
		return nil, err
	}

	return &CLIContext{
		Flags:      flags,
		Cfg:        cfg,
		CfgPath:    path,
		Overrides:  cli,
		Logger:     buildLogger(cfg, flags, out),
		closeLog:   closeLog,
		httpClient: &http.Client{Timeout: httpClientTimeout},

		pidPath:      config.DefaultPIDPath(),
		listenPinned: cli.ListenAddr != nil || env.ListenAddr != "",
	}, nil
}

// openLogOutput returns stderr, or the configured log file opened for
// appending.
func openLogOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stderr, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), pidDirPermissions); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return f, f.Close, nil
}

// buildLogger creates an slog.Logger configured by the config and CLI
// flags. Config-file log level provides the baseline; --verbose and --quiet
// override it because CLI flags always win. A nil cfg means defaults.
func buildLogger(cfg *config.Config, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(format, w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// useJSONLogs resolves log_format. "auto" picks text for a terminal and JSON
// for anything else (files, pipes, service managers).
func useJSONLogs(format string, w io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
