// Package state persists imported books, reading progress and session
// preferences, and tells interested surfaces when progress changes.
//
// Everything is stored as small JSON values under logical keys:
//
//	book:<hash>      BookRecord
//	progress:<hash>  current excerpt index
//	activeBook       hash of the most recently opened book
//	pref:<name>      free-form user preference
//
// A Backend only has to provide atomic single-key overwrite. Concurrent
// writers to the same key race and the last write wins.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	bookPrefix     = "book:"
	progressPrefix = "progress:"
	prefPrefix     = "pref:"

	// ActiveKey holds the active book pointer. It doubles as the notifier
	// topic published when the pointer moves.
	ActiveKey = "activeBook"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ErrCorrupt is returned by lookups whose stored value cannot be decoded.
var ErrCorrupt = errors.New("stored value is corrupt")

// Backend is a flat key/value store with atomic single-key writes.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Put overwrites key with value.
	Put(key string, value []byte) error
	// Delete removes keys. Missing keys are not an error.
	Delete(keys ...string) error
	Close() error
}

// Open returns the backend named kind rooted at dir.
func Open(kind, dir string) (Backend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	switch kind {
	case "", BackendFile:
		return NewFileBackend(dir)
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "spoon.db"))
	default:
		return nil, fmt.Errorf("unknown state backend %q", kind)
	}
}

// DefaultDir returns XDG_STATE_HOME/spoon or ~/.local/state/spoon
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "spoon")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "spoon")
}

func bookKey(hash string) string     { return bookPrefix + hash }
func progressKey(hash string) string { return progressPrefix + hash }
func prefKey(name string) string     { return prefPrefix + name }

// ProgressHash returns the book hash for a progress key.
func ProgressHash(key string) (string, bool) {
	if !strings.HasPrefix(key, progressPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, progressPrefix), true
}

// topicKey maps a notifier topic back to the key whose value it tracks.
func topicKey(topic string) string {
	if topic == ActiveKey {
		return ActiveKey
	}
	return progressKey(topic)
}
