package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrConfigUnreadable marks a config file that exists but cannot be read or
// parsed. The daemon treats it as "configuration missing" and falls back to
// defaults (at start) or the last good config (on reload).
var ErrConfigUnreadable = errors.New("config: file unreadable")

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrConfigUnreadable, path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config loaded", slog.String("path", path))

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no config file, using defaults", slog.String("path", path))
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// LoadLenient is LoadOrDefault for the daemon: any load failure is logged
// and defaults are returned instead. The sweep must never be blocked by a
// broken config file.
func LoadLenient(path string, logger *slog.Logger) *Config {
	cfg, err := LoadOrDefault(path, logger)
	if err != nil {
		logger.Warn("config unusable, falling back to defaults",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return DefaultConfig()
	}

	return cfg
}

// ResolvePath picks the config file path: CLI > env > default.
func ResolvePath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}

// ApplyOverrides layers environment and CLI overrides onto cfg in place.
// CLI flags always win over environment variables.
func ApplyOverrides(cfg *Config, env EnvOverrides, cli CLIOverrides) {
	if env.CDPURL != "" {
		cfg.CDPURL = env.CDPURL
	}

	if env.ListenAddr != "" {
		cfg.ListenAddr = env.ListenAddr
	}

	if cli.CDPURL != nil {
		cfg.CDPURL = *cli.CDPURL
	}

	if cli.ListenAddr != nil {
		cfg.ListenAddr = *cli.ListenAddr
	}
}
