package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all override layers
// (defaults -> file -> env -> CLI) have been applied.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)

	renderLifecycleSection(ew, &cfg.LifecycleConfig)
	renderHostSection(ew, &cfg.HostConfig)
	renderBridgeSection(ew, &cfg.BridgeConfig)
	renderStoreSection(ew, cfg)
	renderGroupingSection(ew, &cfg.GroupingConfig)
	renderLoggingSection(ew, &cfg.LoggingConfig)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderLifecycleSection(ew *errWriter, l *LifecycleConfig) {
	ew.printf("[lifecycle]\n")
	ew.printf("  extension_enabled       = %t\n", l.ExtensionEnabled)
	ew.printf("  page_freezer_enabled    = %t\n", l.PageFreezerEnabled)
	ew.printf("  freeze_after_seconds    = %d\n", l.FreezeAfterSeconds)
	ew.printf("  frozen_close_seconds    = %d\n", l.FrozenCloseSeconds)
	ew.printf("  warn_lead_seconds       = %d\n", l.WarnLeadSeconds)
	ew.printf("  dismiss_grace_seconds   = %d\n", l.DismissGraceSeconds)
	ew.printf("  overlay_seconds         = %d\n", l.OverlaySeconds)
	ew.printf("  sweep_interval          = %q\n", l.SweepInterval)
	ew.printf("  restricted_url_prefixes = %q\n", l.RestrictedURLPrefixes)
	ew.printf("\n")
}

func renderHostSection(ew *errWriter, h *HostConfig) {
	ew.printf("[host]\n")
	ew.printf("  cdp_url          = %q\n", h.CDPURL)
	ew.printf("  action_timeout   = %q\n", h.ActionTimeout)
	ew.printf("  max_parallel_ops = %d\n", h.MaxParallelOps)
	ew.printf("\n")
}

func renderBridgeSection(ew *errWriter, b *BridgeConfig) {
	ew.printf("[bridge]\n")
	ew.printf("  listen_addr      = %q\n", b.ListenAddr)
	ew.printf("  ping_rate        = %d\n", b.PingRate)
	ew.printf("  ping_burst       = %d\n", b.PingBurst)
	ew.printf("  shutdown_timeout = %q\n", b.ShutdownGrace)
	ew.printf("\n")
}

func renderStoreSection(ew *errWriter, cfg *Config) {
	ew.printf("[store]\n")
	ew.printf("  state_db = %q\n", cfg.StatePath())
	ew.printf("\n")
}

func renderGroupingSection(ew *errWriter, g *GroupingConfig) {
	ew.printf("[grouping]\n")
	ew.printf("  grouping_mode = %q\n", g.GroupingMode)
	ew.printf("  keep_sessions = %d\n", g.KeepSessions)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)

	if l.LogFile != "" {
		ew.printf("  log_file   = %q\n", l.LogFile)
	}
}
