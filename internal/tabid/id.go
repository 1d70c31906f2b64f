// Package tabid provides a type-safe tab identity for host-reported tab
// identifiers. DevTools target IDs are upper-case hex strings; extension
// hosts report small integers. Both normalize to the same comparable form
// so that map keys and JSON round-trips agree regardless of the source.
//
// This is a leaf package with zero external dependencies beyond stdlib.
package tabid

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a normalized tab identifier. The zero value (ID{}) represents an
// absent or unknown tab.
type ID struct {
	value string
}

// New creates a normalized ID from a raw host identifier. Surrounding
// whitespace is trimmed and letters are upper-cased. Empty input returns
// the zero ID.
func New(raw string) ID {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ID{}
	}

	return ID{value: strings.ToUpper(trimmed)}
}

// String returns the normalized tab ID string.
func (id ID) String() string {
	return id.value
}

// IsZero reports whether this is the zero-value ID.
func (id ID) IsZero() bool {
	return id.value == ""
}

// Compare orders IDs lexically. Used to keep snapshots deterministic.
func (id ID) Compare(other ID) int {
	return strings.Compare(id.value, other.value)
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The input is
// normalized just like New().
func (id *ID) UnmarshalText(text []byte) error {
	*id = New(string(text))
	return nil
}

// UnmarshalJSON accepts both JSON strings and JSON integers, since extension
// hosts send numeric tab ids and DevTools hosts send string target ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("tabid: decoding string id: %w", err)
		}

		*id = New(s)

		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("tabid: id must be a string or integer, got %s", data)
	}

	*id = New(strconv.FormatInt(n, 10))

	return nil
}

// Compile-time interface assertions.
var (
	_ encoding.TextMarshaler   = ID{}
	_ encoding.TextUnmarshaler = (*ID)(nil)
	_ json.Unmarshaler         = (*ID)(nil)
	_ fmt.Stringer             = ID{}
)
