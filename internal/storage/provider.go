// Package storage defines the durable key/value abstraction behind the stores.
//
// A Provider plays the role of per-origin browser storage: string keys,
// opaque byte values, whole-value reads and writes. A Watcher reports keys
// changed by any writer sharing the same backing, which is how independent
// store instances learn about each other's commits.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

// ErrNotExist is returned by Get when a key has never been written or was removed.
var ErrNotExist = errors.New("storage: key does not exist")

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Provider is the interface for durable key/value operations.
type Provider interface {
	// Get returns the value stored under key, or an error wrapping ErrNotExist.
	Get(key string) ([]byte, error)
	// Set durably replaces the value stored under key.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys lists every stored key.
	Keys() ([]string, error)
}

// ChangeFunc is called with the key of every externally observable change.
type ChangeFunc func(key string)

// Watcher reports changed keys until ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, logger *slog.Logger, cb ChangeFunc) error
}

// Backend is a Provider that can also be watched and closed.
type Backend interface {
	Provider
	Watcher
	Close() error
}

// ValidKey rejects keys that are empty, too long, or could escape a directory.
func ValidKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

var (
	_ Backend = (*FS)(nil)
	_ Backend = (*SQLite)(nil)
	_ Backend = (*Memory)(nil)
)
