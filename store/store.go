// Package store defines the key/value capability the zarr reader consumes and
// the gocloud.dev backed transports that satisfy it.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by a Store when a key is absent. It is the only
// error the reader treats as "no data"; every other error is a transport
// failure.
var ErrNotFound = errors.New("not found")

// Store is a read-only key to bytes provider. Implementations must be safe
// for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the value stored under key, or an error wrapping
	// ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
}

// IsNotFound reports whether err signals an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Join builds a normalized logical key from path elements.
//
// To ensure consistent behaviour across different storage systems, logical
// paths are normalized as follows:
//   - backward slashes are replaced with forward slashes
//   - leading and trailing slashes are stripped
//   - runs of slashes collapse to a single slash
//
// Empty elements are skipped, so Join("", ".zarray") is ".zarray".
func Join(elems ...string) string {
	var sb strings.Builder
	for _, e := range elems {
		e = strings.ReplaceAll(e, "\\", "/")
		for _, part := range strings.Split(e, "/") {
			if part == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('/')
			}
			sb.WriteString(part)
		}
	}
	return sb.String()
}
