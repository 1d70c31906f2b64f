package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig = "TABWARDEN_CONFIG"
	EnvCDPURL = "TABWARDEN_CDP_URL"
	EnvListen = "TABWARDEN_LISTEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // TABWARDEN_CONFIG: override config file path
	CDPURL     string // TABWARDEN_CDP_URL: browser DevTools endpoint
	ListenAddr string // TABWARDEN_LISTEN: bridge listen address
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		CDPURL:     os.Getenv(EnvCDPURL),
		ListenAddr: os.Getenv(EnvListen),
	}
}
