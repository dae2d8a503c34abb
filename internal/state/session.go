package state

import (
	"encoding/json"
)

// Preference names.
const (
	PrefVerbosity   = "verbosity"
	PrefInstruction = "instruction"
)

// Verbosity values for PrefVerbosity.
const (
	VerbosityBrief    = "brief"
	VerbosityDetailed = "detailed"
)

// Session holds the process-wide active book pointer and user preferences.
type Session struct {
	backend  Backend
	notifier *Notifier
}

// NewSession returns a Session over b. Moves of the active pointer are
// published on n under ActiveKey.
func NewSession(b Backend, n *Notifier) *Session {
	return &Session{backend: b, notifier: n}
}

// Active returns the hash of the most recently opened book.
func (s *Session) Active() (string, bool) {
	var hash string
	if !s.getString(ActiveKey, &hash) || hash == "" {
		return "", false
	}
	return hash, true
}

// SetActive points the session at hash.
func (s *Session) SetActive(hash string) error {
	if cur, ok := s.Active(); ok && cur == hash {
		return nil
	}
	if err := s.putString(ActiveKey, hash); err != nil {
		return err
	}
	s.publish()
	return nil
}

// ClearActive removes the active book pointer.
func (s *Session) ClearActive() error {
	if err := s.backend.Delete(ActiveKey); err != nil {
		return err
	}
	s.publish()
	return nil
}

// Pref returns the named preference or def when unset.
func (s *Session) Pref(name, def string) string {
	var v string
	if !s.getString(prefKey(name), &v) {
		return def
	}
	return v
}

// SetPref stores the named preference.
func (s *Session) SetPref(name, value string) error {
	return s.putString(prefKey(name), value)
}

// ClearPref removes the named preference.
func (s *Session) ClearPref(name string) error {
	return s.backend.Delete(prefKey(name))
}

func (s *Session) publish() {
	if s.notifier != nil {
		s.notifier.Publish(ActiveKey)
	}
}

func (s *Session) getString(key string, out *string) bool {
	data, ok, err := s.backend.Get(key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *Session) putString(key, value string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.backend.Put(key, data)
}
