// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for tabwarden. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
// All keys are flat at the top level of the file; the Go structs group them
// by concern through embedding.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	LifecycleConfig
	HostConfig
	BridgeConfig
	StoreConfig
	GroupingConfig
	LoggingConfig
}

// LifecycleConfig holds the freeze/close policy knobs read by the sweeper on
// every tick. Thresholds are whole seconds.
type LifecycleConfig struct {
	ExtensionEnabled      bool     `toml:"extension_enabled"`
	PageFreezerEnabled    bool     `toml:"page_freezer_enabled"`
	FreezeAfterSeconds    int      `toml:"freeze_after_seconds"`
	FrozenCloseSeconds    int      `toml:"frozen_close_seconds"`
	WarnLeadSeconds       int      `toml:"warn_lead_seconds"`
	DismissGraceSeconds   int      `toml:"dismiss_grace_seconds"`
	OverlaySeconds        int      `toml:"overlay_seconds"`
	SweepInterval         string   `toml:"sweep_interval"`
	RestrictedURLPrefixes []string `toml:"restricted_url_prefixes"`
}

// HostConfig controls how the daemon reaches the browser.
type HostConfig struct {
	CDPURL         string `toml:"cdp_url"`
	ActionTimeout  string `toml:"action_timeout"`
	MaxParallelOps int    `toml:"max_parallel_ops"`
}

// BridgeConfig controls the local message bridge used by in-page scripts,
// companion extensions, and the CLI.
type BridgeConfig struct {
	ListenAddr    string `toml:"listen_addr"`
	PingRate      int    `toml:"ping_rate"`
	PingBurst     int    `toml:"ping_burst"`
	ShutdownGrace string `toml:"shutdown_timeout"`
}

// StoreConfig locates the session/bookmark database.
type StoreConfig struct {
	StateDB string `toml:"state_db"`
}

// GroupingConfig controls how tabs are assigned to named groups when a
// group is bookmarked.
type GroupingConfig struct {
	GroupingMode string `toml:"grouping_mode"`
	KeepSessions int    `toml:"keep_sessions"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	CDPURL     *string // --cdp-url flag
	ListenAddr *string // --listen flag
}

// FreezeAfter returns the idle threshold as a duration.
func (l *LifecycleConfig) FreezeAfter() time.Duration {
	return time.Duration(l.FreezeAfterSeconds) * time.Second
}

// CloseAfter returns the time-frozen threshold as a duration.
func (l *LifecycleConfig) CloseAfter() time.Duration {
	return time.Duration(l.FrozenCloseSeconds) * time.Second
}

// WarnLead returns how long before the close threshold the warning fires.
func (l *LifecycleConfig) WarnLead() time.Duration {
	return time.Duration(l.WarnLeadSeconds) * time.Second
}

// DismissGrace returns the exemption window granted on dismissal.
func (l *LifecycleConfig) DismissGrace() time.Duration {
	return time.Duration(l.DismissGraceSeconds) * time.Second
}

// OverlayDuration returns how long a warning overlay stays on screen.
func (l *LifecycleConfig) OverlayDuration() time.Duration {
	return time.Duration(l.OverlaySeconds) * time.Second
}

// SweepEvery returns the parsed sweep interval, falling back to the default
// when the stored string does not parse (Validate rejects that case on load).
func (l *LifecycleConfig) SweepEvery() time.Duration {
	return durationOr(l.SweepInterval, defaultSweepEvery)
}

// ActionDeadline returns the per-request timeout for host actions.
func (h *HostConfig) ActionDeadline() time.Duration {
	return durationOr(h.ActionTimeout, defaultActionDeadline)
}

// ShutdownTimeout returns how long the bridge waits for in-flight requests.
func (b *BridgeConfig) ShutdownTimeout() time.Duration {
	return durationOr(b.ShutdownGrace, defaultShutdownDeadline)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
