package config

import "time"

// Default values for configuration options. These represent the "layer 0"
// of the override chain.
const (
	defaultFreezeAfterSeconds  = 5
	defaultFrozenCloseSeconds  = 300
	defaultWarnLeadSeconds     = 5
	defaultDismissGraceSeconds = 30
	defaultOverlaySeconds      = 5
	defaultSweepInterval       = "1s"
	defaultCDPURL              = "127.0.0.1:9222"
	defaultActionTimeout       = "5s"
	defaultMaxParallelOps      = 8
	defaultListenAddr          = "127.0.0.1:17817"
	defaultPingRate            = 20
	defaultPingBurst           = 40
	defaultShutdownTimeout     = "10s"
	defaultGroupingMode        = "smart"
	defaultKeepSessions        = 20
	defaultLogLevel            = "info"
	defaultLogFormat           = "auto"

	defaultSweepEvery       = time.Second
	defaultActionDeadline   = 5 * time.Second
	defaultShutdownDeadline = 10 * time.Second
)

// defaultRestrictedPrefixes are URL prefixes of pages that belong to the
// browser itself or to extensions. Freezing or closing them would disrupt
// the browser UI or the companion extension.
func defaultRestrictedPrefixes() []string {
	return []string{
		"chrome://",
		"chrome-extension://",
		"chrome-untrusted://",
		"devtools://",
		"edge://",
		"about:",
	}
}

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		LifecycleConfig: defaultLifecycleConfig(),
		HostConfig:      defaultHostConfig(),
		BridgeConfig:    defaultBridgeConfig(),
		GroupingConfig:  defaultGroupingConfig(),
		LoggingConfig:   defaultLoggingConfig(),
	}
}

func defaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		ExtensionEnabled:      true,
		PageFreezerEnabled:    true,
		FreezeAfterSeconds:    defaultFreezeAfterSeconds,
		FrozenCloseSeconds:    defaultFrozenCloseSeconds,
		WarnLeadSeconds:       defaultWarnLeadSeconds,
		DismissGraceSeconds:   defaultDismissGraceSeconds,
		OverlaySeconds:        defaultOverlaySeconds,
		SweepInterval:         defaultSweepInterval,
		RestrictedURLPrefixes: defaultRestrictedPrefixes(),
	}
}

func defaultHostConfig() HostConfig {
	return HostConfig{
		CDPURL:         defaultCDPURL,
		ActionTimeout:  defaultActionTimeout,
		MaxParallelOps: defaultMaxParallelOps,
	}
}

func defaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		ListenAddr:    defaultListenAddr,
		PingRate:      defaultPingRate,
		PingBurst:     defaultPingBurst,
		ShutdownGrace: defaultShutdownTimeout,
	}
}

func defaultGroupingConfig() GroupingConfig {
	return GroupingConfig{
		GroupingMode: defaultGroupingMode,
		KeepSessions: defaultKeepSessions,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
