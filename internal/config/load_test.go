package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger so config debug output appears in
// test output for CI visibility.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	tomlContent := `
extension_enabled = true
page_freezer_enabled = false
freeze_after_seconds = 60
frozen_close_seconds = 900
warn_lead_seconds = 10
dismiss_grace_seconds = 45
overlay_seconds = 8
sweep_interval = "2s"
restricted_url_prefixes = ["chrome://", "brave://"]

cdp_url = "ws://127.0.0.1:9333/devtools/browser/abc"
action_timeout = "3s"
max_parallel_ops = 4

listen_addr = "127.0.0.1:9999"
ping_rate = 5
ping_burst = 10
shutdown_timeout = "20s"

state_db = "/tmp/tabwarden-test.db"
grouping_mode = "domain"
keep_sessions = 3

log_level = "debug"
log_format = "json"
log_file = "/tmp/tabwarden.log"
`
	path := writeTestConfig(t, tomlContent)

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.True(t, cfg.ExtensionEnabled)
	assert.False(t, cfg.PageFreezerEnabled)
	assert.Equal(t, 60*time.Second, cfg.FreezeAfter())
	assert.Equal(t, 900*time.Second, cfg.CloseAfter())
	assert.Equal(t, 10*time.Second, cfg.WarnLead())
	assert.Equal(t, 45*time.Second, cfg.DismissGrace())
	assert.Equal(t, 8*time.Second, cfg.OverlayDuration())
	assert.Equal(t, 2*time.Second, cfg.SweepEvery())
	assert.Equal(t, []string{"chrome://", "brave://"}, cfg.RestrictedURLPrefixes)

	assert.Equal(t, "ws://127.0.0.1:9333/devtools/browser/abc", cfg.CDPURL)
	assert.Equal(t, 3*time.Second, cfg.ActionDeadline())
	assert.Equal(t, 4, cfg.MaxParallelOps)

	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.PingRate)
	assert.Equal(t, 10, cfg.PingBurst)
	assert.Equal(t, 20*time.Second, cfg.ShutdownTimeout())

	assert.Equal(t, "/tmp/tabwarden-test.db", cfg.StatePath())
	assert.Equal(t, "domain", cfg.GroupingMode)
	assert.Equal(t, 3, cfg.KeepSessions)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/tabwarden.log", cfg.LogFile)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `freeze_after_seconds = 120`)

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.FreezeAfterSeconds)
	assert.Equal(t, defaultFrozenCloseSeconds, cfg.FrozenCloseSeconds)
	assert.True(t, cfg.ExtensionEnabled)
	assert.True(t, cfg.PageFreezerEnabled)
	assert.Equal(t, defaultRestrictedPrefixes(), cfg.RestrictedURLPrefixes)
	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
}

func TestLoad_UnknownKeySuggestsClosest(t *testing.T) {
	path := writeTestConfig(t, `freeze_afer_seconds = 10`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "freeze_afer_seconds"`)
	assert.Contains(t, err.Error(), `did you mean "freeze_after_seconds"`)
}

func TestLoad_UnknownKeyWithoutSuggestion(t *testing.T) {
	path := writeTestConfig(t, `completely_unrelated = 1`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "completely_unrelated"`)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_InvalidTOMLIsUnreadable(t *testing.T) {
	path := writeTestConfig(t, `freeze_after_seconds = = 3`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigUnreadable))
}

func TestLoad_ValidationErrorsAreJoined(t *testing.T) {
	path := writeTestConfig(t, `
freeze_after_seconds = 0
log_level = "loud"
`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "freeze_after_seconds")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := LoadOrDefault(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadLenient_BrokenFileFallsBackToDefaults(t *testing.T) {
	path := writeTestConfig(t, `this is not toml`)

	cfg := LoadLenient(path, testLogger(t))
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestDefaultConfig_MatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.ExtensionEnabled)
	assert.True(t, cfg.PageFreezerEnabled)
	assert.Equal(t, 5*time.Second, cfg.FreezeAfter())
	assert.Equal(t, 300*time.Second, cfg.CloseAfter())
	assert.Equal(t, 5*time.Second, cfg.WarnLead())
	assert.Equal(t, 30*time.Second, cfg.DismissGrace())
	assert.Equal(t, 5*time.Second, cfg.OverlayDuration())
	assert.Equal(t, time.Second, cfg.SweepEvery())
	assert.NoError(t, Validate(cfg))
}

func TestResolvePath_Precedence(t *testing.T) {
	assert.Equal(t, "/cli.toml", ResolvePath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{ConfigPath: "/cli.toml"}))
	assert.Equal(t, "/env.toml", ResolvePath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{}))
	assert.Equal(t, DefaultConfigPath(), ResolvePath(EnvOverrides{}, CLIOverrides{}))
}

func TestApplyOverrides_CLIWinsOverEnv(t *testing.T) {
	cfg := DefaultConfig()
	cliURL := "127.0.0.1:1111"

	ApplyOverrides(cfg,
		EnvOverrides{CDPURL: "127.0.0.1:2222", ListenAddr: "127.0.0.1:3333"},
		CLIOverrides{CDPURL: &cliURL},
	)

	assert.Equal(t, "127.0.0.1:1111", cfg.CDPURL)
	assert.Equal(t, "127.0.0.1:3333", cfg.ListenAddr)
}

func TestSweepEvery_InvalidFallsBack(t *testing.T) {
	l := LifecycleConfig{SweepInterval: "soon"}
	assert.Equal(t, defaultSweepEvery, l.SweepEvery())
}
