// Package cache persists synthesized audio on disk, keyed by content and
// voice. The audio file's existence is the cache index; there is no
// separate metadata store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key identifies a cached synthesis. It is a pure function of the trimmed
// sentence text and the voice identifier, stable across restarts.
type Key string

// NewKey derives the cache key for a sentence and voice: the hex SHA-256
// digest of the trimmed text, joined to the voice id by an underscore.
func NewKey(text, voice string) Key {
	digest := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return Key(hex.EncodeToString(digest[:]) + "_" + voice)
}

func (k Key) String() string { return string(k) }
