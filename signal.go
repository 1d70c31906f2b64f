package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonimelisma/tabwarden/internal/config"
)

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second. The first signal lets the sweeper finish
// outstanding discards and closes and the bridge finish open requests.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown",
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
			return
		}

		// Second signal: force exit.
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit",
				slog.String("signal", sig.String()),
			)
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}

// reloadOnSIGHUP reloads the holder's config file on every SIGHUP until ctx
// is canceled. A failed reload keeps the current config.
func reloadOnSIGHUP(ctx context.Context, h *config.Holder, logger *slog.Logger, onReload func(*config.Config)) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			reloadConfig(h, logger, onReload)
		}
	}
}

func reloadConfig(h *config.Holder, logger *slog.Logger, onReload func(*config.Config)) {
	if err := config.Reload(h, logger); err != nil {
		logger.Warn("config reload failed, keeping current config",
			slog.String("error", err.Error()),
		)

		return
	}

	logger.Info("config reloaded on SIGHUP", slog.String("path", h.Path()))

	if onReload != nil {
		onReload(h.Config())
	}
}
