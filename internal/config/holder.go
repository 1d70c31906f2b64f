package config

import "sync"

// Holder provides thread-safe access to a mutable *Config and an immutable
// config file path. The sweeper, the ingest pipeline, and the bridge all read
// through a shared Holder, so a reload (SIGHUP or file change) updates
// config in exactly one place.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string // immutable after construction
	cli  CLIOverrides
}

// NewHolder creates a Holder with the initial config and config file path.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{
		cfg:  cfg,
		path: path,
	}
}

// Config returns the current config snapshot. Thread-safe (read lock).
// Callers must treat the returned value as read-only.
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file path.
func (h *Holder) Path() string {
	return h.path
}

// Update replaces the config. Thread-safe (write lock).
func (h *Holder) Update(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg = cfg
}

// SetOverrides records the CLI flag overrides so that reloads re-apply
// them on top of the re-read file.
func (h *Holder) SetOverrides(cli CLIOverrides) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cli = cli
}

// Overrides returns the CLI flag overrides recorded with SetOverrides.
func (h *Holder) Overrides() CLIOverrides {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cli
}
