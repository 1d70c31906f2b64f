package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"freeze zero", func(c *Config) { c.FreezeAfterSeconds = 0 }, "freeze_after_seconds"},
		{"close zero", func(c *Config) { c.FrozenCloseSeconds = 0 }, "frozen_close_seconds"},
		{"warn negative", func(c *Config) { c.WarnLeadSeconds = -1 }, "warn_lead_seconds"},
		{"grace zero", func(c *Config) { c.DismissGraceSeconds = 0 }, "dismiss_grace_seconds"},
		{"overlay too long", func(c *Config) { c.OverlaySeconds = 61 }, "overlay_seconds"},
		{"sweep too fast", func(c *Config) { c.SweepInterval = "10ms" }, "sweep_interval"},
		{"sweep too slow", func(c *Config) { c.SweepInterval = "5m" }, "sweep_interval"},
		{"sweep garbage", func(c *Config) { c.SweepInterval = "often" }, "sweep_interval"},
		{"empty prefix", func(c *Config) { c.RestrictedURLPrefixes = []string{""} }, "restricted_url_prefixes[0]"},
		{"empty cdp", func(c *Config) { c.CDPURL = "" }, "cdp_url"},
		{"parallel zero", func(c *Config) { c.MaxParallelOps = 0 }, "max_parallel_ops"},
		{"action timeout tiny", func(c *Config) { c.ActionTimeout = "1ms" }, "action_timeout"},
		{"empty listen", func(c *Config) { c.ListenAddr = "" }, "listen_addr"},
		{"burst below rate", func(c *Config) { c.PingBurst = 1 }, "ping_burst"},
		{"negative ping rate", func(c *Config) { c.PingRate = -1 }, "ping_rate"},
		{"bad grouping mode", func(c *Config) { c.GroupingMode = "tags" }, "grouping_mode"},
		{"negative keep", func(c *Config) { c.KeepSessions = -1 }, "keep_sessions"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_WarnLeadMayExceedCloseThreshold(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.FrozenCloseSeconds = 3
	cfg.WarnLeadSeconds = 10

	assert.NoError(t, Validate(cfg))
}

func TestValidate_ZeroPingRateDisablesLimit(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PingRate = 0
	cfg.PingBurst = 0

	assert.NoError(t, Validate(cfg))
}
