package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolder_UpdateIsVisibleToReaders(t *testing.T) {
	t.Parallel()

	initial := DefaultConfig()
	h := NewHolder(initial, "/tmp/config.toml")

	assert.Same(t, initial, h.Config())
	assert.Equal(t, "/tmp/config.toml", h.Path())

	next := DefaultConfig()
	next.FreezeAfterSeconds = 99
	h.Update(next)

	assert.Equal(t, 99, h.Config().FreezeAfterSeconds)
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	h := NewHolder(DefaultConfig(), "")

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			cfg := DefaultConfig()
			cfg.FreezeAfterSeconds = i + 1
			h.Update(cfg)
		}()

		go func() {
			defer wg.Done()
			assert.NotNil(t, h.Config())
		}()
	}

	wg.Wait()
	assert.Positive(t, h.Config().FreezeAfterSeconds)
}
