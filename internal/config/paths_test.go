package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "config.toml"))
	assert.Contains(t, path, appName)
}

func TestDefaultPIDPath_InDataDir(t *testing.T) {
	assert.Equal(t, filepath.Join(DefaultDataDir(), pidFileName), DefaultPIDPath())
}

func TestXDGOverrides_Linux(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("Linux-only test")
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, "/xdg/config/tabwarden", DefaultConfigDir())
	assert.Equal(t, "/xdg/data/tabwarden", DefaultDataDir())
}

func TestStatePath_DefaultAndExplicit(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(DefaultDataDir(), stateFileName), cfg.StatePath())

	cfg.StateDB = "/tmp/custom.db"
	assert.Equal(t, "/tmp/custom.db", cfg.StatePath())
}
