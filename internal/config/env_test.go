package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/tabwarden.toml")
	t.Setenv(EnvCDPURL, "9229")
	t.Setenv(EnvListen, "127.0.0.1:1")

	env := ReadEnvOverrides()
	assert.Equal(t, "/etc/tabwarden.toml", env.ConfigPath)
	assert.Equal(t, "9229", env.CDPURL)
	assert.Equal(t, "127.0.0.1:1", env.ListenAddr)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvCDPURL, "")
	t.Setenv(EnvListen, "")

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}
