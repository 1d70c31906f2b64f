package lifecycle

import (
	"errors"
	"fmt"

	"github.com/tonimelisma/tabwarden/internal/tabid"
)

// Sentinel errors. Host adapters wrap ErrTabNotFound when the target tab no
// longer exists so callers can tell a vanished tab from a rejected request.
var (
	ErrTabNotFound    = errors.New("lifecycle: tab not found")
	ErrMalformedEvent = errors.New("lifecycle: malformed event")
)

// HostError is a failed host action (discard, remove, activate, overlay).
// It is transient by definition: the sweep logs it and relies on later
// events or ticks to reconcile the ledger. Nothing retries synchronously.
type HostError struct {
	Op  string
	Tab tabid.ID
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("lifecycle: %s tab %s: %v", e.Op, e.Tab, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// hostError wraps err as a *HostError unless it already is one.
func hostError(op string, id tabid.ID, err error) error {
	var he *HostError
	if errors.As(err, &he) {
		return err
	}

	return &HostError{Op: op, Tab: id, Err: err}
}
