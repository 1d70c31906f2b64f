package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/tabwarden/internal/bridge"
	"github.com/tonimelisma/tabwarden/internal/cdp"
	"github.com/tonimelisma/tabwarden/internal/config"
	"github.com/tonimelisma/tabwarden/internal/lifecycle"
	"github.com/tonimelisma/tabwarden/internal/session"
	"github.com/tonimelisma/tabwarden/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tab lifecycle daemon",
		Long: `Attach to the browser and manage tab lifecycles until interrupted.

The daemon sweeps open tabs every sweep_interval, freezes idle ones, warns
in the foreground tab before a frozen tab is closed, and closes it. It
serves the message bridge on listen_addr for the CLI and companion
extensions.

Configuration changes are picked up automatically when the config file is
saved, or on SIGHUP ("tabwarden reload"). cdp_url, listen_addr and state_db
only take effect on restart. The first SIGINT/SIGTERM shuts down gracefully;
a second one forces exit.`,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	ctx := shutdownContext(cmd.Context(), logger)

	pid, err := acquirePIDFile(cc.pidPath)
	if err != nil {
		return err
	}
	defer pid.release()

	holder := config.NewHolder(cc.Cfg, cc.CfgPath)
	holder.SetOverrides(cc.Overrides)

	started := *cc.Cfg

	// The CLI finds a bridge started with a non-default --listen here.
	if err := pid.record(started.ListenAddr); err != nil {
		return err
	}

	st, err := store.Open(ctx, started.StatePath(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	host, err := cdp.Connect(ctx, started.CDPURL, started.MaxParallelOps, logger)
	if err != nil {
		return err
	}
	defer host.Close()

	clock := lifecycle.SystemClock()
	settings := lifecycle.FromHolder(holder)

	ledger := lifecycle.NewLedger(clock)
	notifier := lifecycle.NewNotifier(clock, logger)
	ingest := lifecycle.NewIngest(ledger, host, settings, clock, logger)
	sweeper := lifecycle.NewSweeper(ledger, host, notifier, settings, clock, logger)

	sessions := session.NewService(host, st, func() session.Options {
		return session.OptionsFrom(holder.Config())
	}, logger)

	srv := bridge.NewServer(ingest, sessions, ledger, notifier, func() bridge.Options {
		return bridge.OptionsFrom(holder.Config())
	}, clock, logger)

	onReload := func(cfg *config.Config) {
		warnRestartRequired(logger, &started, cfg)
	}

	logger.Info("tabwarden starting",
		slog.String("version", version),
		slog.String("config", cc.CfgPath),
		slog.String("cdp_url", started.CDPURL),
		slog.String("listen", started.ListenAddr),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := host.Watch(gctx, ingest); err != nil {
			return fmt.Errorf("watching browser: %w", err)
		}

		return nil
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx, started.ListenAddr) })
	g.Go(func() error { return config.Watch(gctx, holder, logger, onReload) })
	g.Go(func() error { return reloadOnSIGHUP(gctx, holder, logger, onReload) })

	err = g.Wait()

	logger.Info("tabwarden stopped", slog.Int("tracked_tabs", ledger.Len()))

	if err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

// warnRestartRequired logs settings that changed on reload but are only
// read at startup.
func warnRestartRequired(logger *slog.Logger, started, cfg *config.Config) {
	changed := func(key, was, now string) {
		if was != now {
			logger.Warn("config change requires restart",
				slog.String("key", key),
				slog.String("running", was),
				slog.String("configured", now),
			)
		}
	}

	changed("cdp_url", started.CDPURL, cfg.CDPURL)
	changed("listen_addr", started.ListenAddr, cfg.ListenAddr)
	changed("state_db", started.StatePath(), cfg.StatePath())
}
