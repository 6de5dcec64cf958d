// Package digest computes content digests used to detect unchanged writes and
// to recognise a store's own writes when they echo back through a watcher.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters of Sum, for log lines.
func Short(data []byte) string {
	return Sum(data)[:12]
}
