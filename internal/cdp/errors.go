package cdp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/cdp"

	"github.com/tonimelisma/tabwarden/internal/lifecycle"
)

// ErrDisconnected is returned by Watch when the browser connection drops.
var ErrDisconnected = errors.New("cdp: browser connection closed")

// goneMessages are DevTools error messages meaning the target went away.
var goneMessages = []string{
	"No target with given id",
	"No session with given id",
	"Target closed",
	"target not found",
}

// classify wraps DevTools errors about vanished targets in
// lifecycle.ErrTabNotFound so the core can tell them apart from real
// failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		msg = cdpErr.Message
	}

	for _, gone := range goneMessages {
		if strings.Contains(msg, gone) {
			return fmt.Errorf("cdp: %s: %w: %w", op, lifecycle.ErrTabNotFound, err)
		}
	}

	return fmt.Errorf("cdp: %s: %w", op, err)
}
