package state

import (
	"encoding/json"
)

// ReadingState is the persisted progress for one book.
type ReadingState struct {
	CurrentIndex int `json:"current_index"`
}

// ProgressStore persists the current excerpt index per book and publishes
// every change on its Notifier. It stores whatever index it is given;
// clamping to the book's range is the caller's job.
type ProgressStore struct {
	backend  Backend
	notifier *Notifier
}

// NewProgressStore returns a ProgressStore over b publishing on n.
func NewProgressStore(b Backend, n *Notifier) *ProgressStore {
	return &ProgressStore{backend: b, notifier: n}
}

// Get returns the saved index for hash, or 0 if none is readable.
func (s *ProgressStore) Get(hash string) int {
	data, ok, err := s.backend.Get(progressKey(hash))
	if err != nil || !ok {
		return 0
	}
	var st ReadingState
	if err := json.Unmarshal(data, &st); err != nil {
		return 0
	}
	return st.CurrentIndex
}

// Set saves index for hash and notifies subscribers of hash.
func (s *ProgressStore) Set(hash string, index int) error {
	return s.SetFrom(hash, index, "")
}

// SetFrom is Set on behalf of origin. Subscribers registered with the same
// origin are not notified.
func (s *ProgressStore) SetFrom(hash string, index int, origin string) error {
	data, err := json.Marshal(ReadingState{CurrentIndex: index})
	if err != nil {
		return err
	}
	s.notifier.recordWrite(hash, data)
	if err := s.backend.Put(progressKey(hash), data); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.PublishFrom(hash, origin)
	}
	return nil
}

// Init writes index 0 for hash if nothing is stored yet. It does not notify.
func (s *ProgressStore) Init(hash string) error {
	_, ok, err := s.backend.Get(progressKey(hash))
	if err != nil || ok {
		return err
	}
	data, _ := json.Marshal(ReadingState{})
	return s.backend.Put(progressKey(hash), data)
}

// Clear removes the saved index for hash and notifies subscribers.
func (s *ProgressStore) Clear(hash string) error {
	s.notifier.recordWrite(hash, nil)
	if err := s.backend.Delete(progressKey(hash)); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Publish(hash)
	}
	return nil
}
