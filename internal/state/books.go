package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/metcalfc/spoon/internal/logging"
)

// ErrNotFound is returned by Lookup when no record is stored.
var ErrNotFound = errors.New("record not found")

// BookRecord is the cached result of extracting and segmenting one file.
// Records are written whole and never modified afterwards.
type BookRecord struct {
	Title string `json:"title"`
	// Chapters is nil on records written before chapters were kept.
	// Treat nil as unknown, not as a book without chapters.
	Chapters []string `json:"chapters,omitempty"`
	Segments []string `json:"segments"`
}

// HasChapters reports whether the record carries chapter texts.
func (r *BookRecord) HasChapters() bool {
	return r.Chapters != nil
}

// ContentStore caches BookRecords by content hash. There is no eviction.
type ContentStore struct {
	backend Backend
}

// NewContentStore returns a ContentStore over b.
func NewContentStore(b Backend) *ContentStore {
	return &ContentStore{backend: b}
}

// Lookup returns the record for hash, ErrNotFound when absent, or an error
// wrapping ErrCorrupt when the stored value does not decode.
func (s *ContentStore) Lookup(hash string) (*BookRecord, error) {
	data, ok, err := s.backend.Get(bookKey(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	var rec BookRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(rec.Segments) == 0 {
		return nil, fmt.Errorf("%w: record has no segments", ErrCorrupt)
	}
	return &rec, nil
}

// Get returns the record for hash. A corrupt record reads as a miss.
func (s *ContentStore) Get(hash string) (*BookRecord, bool) {
	rec, err := s.Lookup(hash)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			logging.Warn("Cached book unreadable, treating as miss", "hash", hash, "error", err)
		}
		return nil, false
	}
	return rec, true
}

// Has reports whether a readable record exists for hash.
func (s *ContentStore) Has(hash string) bool {
	_, ok := s.Get(hash)
	return ok
}

// Put stores rec under hash, replacing any previous value.
func (s *ContentStore) Put(hash string, rec *BookRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.backend.Put(bookKey(hash), data)
}

// Delete removes the record and its progress entry.
func (s *ContentStore) Delete(hash string) error {
	return s.backend.Delete(bookKey(hash), progressKey(hash))
}
