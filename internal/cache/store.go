package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/lectern-app/lectern/internal/speech"
)

// AudioExt is the file extension for cached audio artifacts.
const AudioExt = "pcm"

// Entry is a cached synthesis as read back from disk. Timestamps may be
// empty when the sidecar is missing or unreadable; audio is always present.
type Entry struct {
	Audio []byte
	Raw   []speech.RawTimestamp
}

// Timestamps returns the entry's word timings in milliseconds.
func (e *Entry) Timestamps() []speech.Timestamp {
	return speech.ToMillis(e.Raw)
}

// Store is the disk-backed audio cache. Entries are immutable once
// written and never evicted by this layer. Read and write faults are
// logged and treated as misses or skipped writes, never propagated.
type Store struct {
	dir    string
	logger *log.Logger
}

// NewStore creates a store rooted at dir, creating the directory if
// needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: log.Default().With("component", "cache"),
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// AudioPath returns the on-disk path of the audio artifact for key.
func (s *Store) AudioPath(key Key) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s", key, AudioExt))
}

// sidecarPath is the timestamps file: the audio path plus ".json".
func (s *Store) sidecarPath(key Key) string {
	return s.AudioPath(key) + ".json"
}

// Has reports whether the audio artifact for key exists on disk.
func (s *Store) Has(key Key) bool {
	_, err := os.Stat(s.AudioPath(key))
	return err == nil
}

// Read returns the cached entry for key, or ok=false on a miss. A
// missing or corrupt timestamps sidecar degrades to an entry with no
// timestamps rather than a miss.
func (s *Store) Read(key Key) (*Entry, bool) {
	audio, err := os.ReadFile(s.AudioPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	entry := &Entry{Audio: audio}

	sidecar, err := os.ReadFile(s.sidecarPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("timestamp sidecar unreadable", "key", key, "error", err)
		}
		return entry, true
	}
	if err := json.Unmarshal(sidecar, &entry.Raw); err != nil {
		s.logger.Warn("timestamp sidecar corrupt", "key", key, "error", err)
		entry.Raw = nil
	}
	return entry, true
}

// Write persists the audio artifact and its timestamps sidecar.
// Redundant writes for the same key are harmless; synthesis output for
// identical input is equivalent for playback. Failures are logged and
// swallowed.
func (s *Store) Write(key Key, audio []byte, raw []speech.RawTimestamp) {
	if err := os.WriteFile(s.AudioPath(key), audio, 0o644); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
		return
	}

	sidecar, err := json.Marshal(raw)
	if err != nil {
		s.logger.Warn("timestamp sidecar encode failed", "key", key, "error", err)
		return
	}
	if err := os.WriteFile(s.sidecarPath(key), sidecar, 0o644); err != nil {
		s.logger.Warn("timestamp sidecar write failed", "key", key, "error", err)
	}
}
