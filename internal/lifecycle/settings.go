package lifecycle

import (
	"time"

	"github.com/tonimelisma/tabwarden/internal/config"
)

// Settings is the lifecycle view of the configuration. The sweeper and the
// ingest pipeline fetch a fresh value on every tick or event, so a reload
// takes effect without restarting anything.
type Settings struct {
	Enabled        bool
	FreezerEnabled bool
	FreezeAfter    time.Duration
	CloseAfter     time.Duration
	WarnLead       time.Duration
	DismissGrace   time.Duration
	OverlayFor     time.Duration
	SweepInterval  time.Duration
	ActionTimeout  time.Duration
	MaxParallel    int
	Restricted     []string
}

// SettingsFunc returns the current settings.
type SettingsFunc func() Settings

// SettingsFrom converts a loaded config.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Enabled:        cfg.ExtensionEnabled,
		FreezerEnabled: cfg.PageFreezerEnabled,
		FreezeAfter:    cfg.FreezeAfter(),
		CloseAfter:     cfg.CloseAfter(),
		WarnLead:       cfg.WarnLead(),
		DismissGrace:   cfg.DismissGrace(),
		OverlayFor:     cfg.OverlayDuration(),
		SweepInterval:  cfg.SweepEvery(),
		ActionTimeout:  cfg.ActionDeadline(),
		MaxParallel:    cfg.MaxParallelOps,
		Restricted:     cfg.RestrictedURLPrefixes,
	}
}

// FromHolder returns a SettingsFunc that reads the holder's current config.
func FromHolder(h *config.Holder) SettingsFunc {
	return func() Settings {
		return SettingsFrom(h.Config())
	}
}

// DefaultSettings returns the settings of the default configuration.
func DefaultSettings() Settings {
	return SettingsFrom(config.DefaultConfig())
}
