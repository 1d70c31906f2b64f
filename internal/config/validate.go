package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation range constants.
const (
	minFreezeAfterSeconds  = 1
	minFrozenCloseSeconds  = 1
	minDismissGraceSeconds = 1
	minOverlaySeconds      = 1
	maxOverlaySeconds      = 60
	minSweepInterval       = 100 * time.Millisecond
	maxSweepInterval       = time.Minute
	minActionTimeout       = 100 * time.Millisecond
	minShutdownTimeout     = time.Second
	minParallelOps         = 1
	maxParallelOps         = 64
	minPingRate            = 0
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLifecycle(&cfg.LifecycleConfig)...)
	errs = append(errs, validateHost(&cfg.HostConfig)...)
	errs = append(errs, validateBridge(&cfg.BridgeConfig)...)
	errs = append(errs, validateGrouping(&cfg.GroupingConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)

	return errors.Join(errs...)
}

func validateLifecycle(l *LifecycleConfig) []error {
	var errs []error

	errs = append(errs, validateMin("freeze_after_seconds", l.FreezeAfterSeconds, minFreezeAfterSeconds)...)
	errs = append(errs, validateMin("frozen_close_seconds", l.FrozenCloseSeconds, minFrozenCloseSeconds)...)
	errs = append(errs, validateMin("warn_lead_seconds", l.WarnLeadSeconds, 0)...)
	errs = append(errs, validateMin("dismiss_grace_seconds", l.DismissGraceSeconds, minDismissGraceSeconds)...)

	if l.OverlaySeconds < minOverlaySeconds || l.OverlaySeconds > maxOverlaySeconds {
		errs = append(errs, fmt.Errorf("overlay_seconds: must be between %d and %d, got %d",
			minOverlaySeconds, maxOverlaySeconds, l.OverlaySeconds))
	}

	errs = append(errs, validateDurationRange("sweep_interval", l.SweepInterval, minSweepInterval, maxSweepInterval)...)

	for i, p := range l.RestrictedURLPrefixes {
		if p == "" {
			errs = append(errs, fmt.Errorf("restricted_url_prefixes[%d]: must not be empty", i))
		}
	}

	return errs
}

func validateHost(h *HostConfig) []error {
	var errs []error

	if h.CDPURL == "" {
		errs = append(errs, errors.New("cdp_url: must not be empty"))
	}

	errs = append(errs, validateDurationRange("action_timeout", h.ActionTimeout, minActionTimeout, 0)...)

	if h.MaxParallelOps < minParallelOps || h.MaxParallelOps > maxParallelOps {
		errs = append(errs, fmt.Errorf("max_parallel_ops: must be between %d and %d, got %d",
			minParallelOps, maxParallelOps, h.MaxParallelOps))
	}

	return errs
}

func validateBridge(b *BridgeConfig) []error {
	var errs []error

	if b.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr: must not be empty"))
	}

	// ping_rate = 0 turns per-tab ping limiting off.
	errs = append(errs, validateMin("ping_rate", b.PingRate, minPingRate)...)

	if b.PingRate > 0 && b.PingBurst < b.PingRate {
		errs = append(errs, fmt.Errorf("ping_burst: must be >= ping_rate (%d), got %d", b.PingRate, b.PingBurst))
	}

	errs = append(errs, validateDurationRange("shutdown_timeout", b.ShutdownGrace, minShutdownTimeout, 0)...)

	return errs
}

func validateMin(field string, value, minimum int) []error {
	if value < minimum {
		return []error{fmt.Errorf("%s: must be >= %d, got %d", field, minimum, value)}
	}

	return nil
}

// validateDurationRange parses value and checks it against [minimum, maximum].
// A zero maximum means unbounded.
func validateDurationRange(field, value string, minimum, maximum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	if maximum > 0 && d > maximum {
		return []error{fmt.Errorf("%s: must be <= %s, got %s", field, maximum, d)}
	}

	return nil
}

func validateGrouping(g *GroupingConfig) []error {
	var errs []error

	if g.GroupingMode != "smart" && g.GroupingMode != "domain" {
		errs = append(errs, fmt.Errorf("grouping_mode: must be one of smart, domain; got %q", g.GroupingMode))
	}

	errs = append(errs, validateMin("keep_sessions", g.KeepSessions, 0)...)

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}
