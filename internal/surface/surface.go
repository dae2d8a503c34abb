// Package surface implements the read and advance loop shared by every UI.
//
// A Surface keeps a local copy of the active book and its index. Its own
// moves are applied locally first and then written to the library. Moves
// made elsewhere arrive as notifications, after which the surface re-reads
// the stored index and adopts it when it differs and is in range. A surface
// is never notified of its own writes, so a run of quick moves cannot be
// rolled back by a late echo. When two surfaces move at once the last write
// wins, and each keeps its own position until it hears of the other's.
package surface

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/logging"
	"github.com/metcalfc/spoon/internal/state"
)

// ErrNotReady is returned by navigation while no book is loaded.
var ErrNotReady = errors.New("no book loaded")

// surfaces numbers surfaces so each writes under its own origin.
var surfaces atomic.Uint64

// Surface is one UI's view of the library. Methods are safe for
// concurrent use.
type Surface struct {
	name   string
	origin string
	lib    *library.Library

	// saveMu is held from a move's local update until its write lands,
	// and by Reconcile while it reads the store.
	saveMu sync.Mutex

	mu          sync.Mutex
	state       State
	unsubBook   library.Unsubscribe
	unsubActive library.Unsubscribe
	closed      bool

	changes chan struct{}
}

// New returns an Idle surface following the library's active book. Call
// Close when the UI goes away.
func New(name string, lib *library.Library) *Surface {
	s := &Surface{
		name:    name,
		origin:  fmt.Sprintf("%s#%d", name, surfaces.Add(1)),
		lib:     lib,
		state:   Idle{},
		changes: make(chan struct{}, 1),
	}
	s.unsubActive = lib.SubscribeAs(state.ActiveKey, s.origin, s.Reconcile)
	return s
}

// Changes signals after the state changed because of something other than
// a call on this surface. Signals coalesce; read State after each one.
func (s *Surface) Changes() <-chan struct{} { return s.changes }

// State returns the current state.
func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready returns the current state if a book is loaded.
func (s *Surface) Ready() (Ready, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.(Ready)
	return r, ok
}

// Activate loads the active book from the library, or goes Idle if there
// is none or it is no longer cached.
func (s *Surface) Activate() State {
	book, err := s.lib.Restore()
	if err != nil {
		if !errors.Is(err, library.ErrNoActiveBook) {
			logging.Warn("Restore failed", "surface", s.name, "error", err)
		}
		s.mu.Lock()
		s.setBookLocked(nil)
		st := s.state
		s.mu.Unlock()
		return st
	}
	return s.adopt(book)
}

// Import loads data through the library. The surface is Loading for the
// duration and ends Ready or Failed.
func (s *Surface) Import(source string, data []byte) (State, error) {
	s.mu.Lock()
	s.state = Loading{Source: source}
	s.mu.Unlock()
	s.signal()

	book, err := s.lib.ImportBook(data)
	if err != nil {
		s.mu.Lock()
		s.setBookLocked(nil)
		s.state = Failed{Err: err}
		s.mu.Unlock()
		return Failed{Err: err}, err
	}
	return s.adopt(book), nil
}

// Open switches to a book already in the cache.
func (s *Surface) Open(hash string) (State, error) {
	book, err := s.lib.Reopen(hash)
	if err != nil {
		return s.State(), err
	}
	return s.adopt(book), nil
}

func (s *Surface) adopt(book *library.Book) State {
	r := Ready{
		Hash:     book.Hash,
		Title:    book.Record.Title,
		Segments: book.Record.Segments,
		Chapters: book.Record.Chapters,
		Index:    Clamp(book.Index, book.Len()),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBookLocked(&r)
	s.state = r
	logging.Debug("Surface ready", "surface", s.name, "hash", r.Hash, "index", r.Index, "total", r.Len())
	return r
}

// setBookLocked moves the progress subscription to r's book, or drops it
// when r is nil. s.mu must be held.
func (s *Surface) setBookLocked(r *Ready) {
	if cur, ok := s.state.(Ready); ok && r != nil && cur.Hash == r.Hash && s.unsubBook != nil {
		return
	}
	if s.unsubBook != nil {
		s.unsubBook()
		s.unsubBook = nil
	}
	if r == nil {
		s.state = Idle{}
		return
	}
	if !s.closed {
		s.unsubBook = s.lib.SubscribeAs(r.Hash, s.origin, s.Reconcile)
	}
}

// Jump moves to index i, clamped to the book, and saves it.
func (s *Surface) Jump(i int) (Ready, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	r, ok := s.state.(Ready)
	if !ok {
		s.mu.Unlock()
		return Ready{}, ErrNotReady
	}
	r.Index = Clamp(i, r.Len())
	s.state = r
	s.mu.Unlock()

	if err := s.lib.SetProgressFrom(r.Hash, r.Index, s.origin); err != nil {
		return r, fmt.Errorf("save progress: %w", err)
	}
	return r, nil
}

// Advance moves by delta excerpts, clamped to the book.
func (s *Surface) Advance(delta int) (Ready, error) {
	r, ok := s.Ready()
	if !ok {
		return Ready{}, ErrNotReady
	}
	return s.Jump(r.Index + delta)
}

// Next returns the current excerpt formatted for pasting and moves to the
// following one. On the last excerpt it returns the text without moving.
func (s *Surface) Next() (string, Ready, error) {
	r, ok := s.Ready()
	if !ok {
		return "", Ready{}, ErrNotReady
	}
	text := FormatExcerpt(r.Index, r.Text())
	if r.Last() {
		return text, r, nil
	}
	r, err := s.Jump(r.Index + 1)
	return text, r, err
}

// Search jumps to excerpt N when query is a number. Otherwise it finds the
// first excerpt after the current one containing query, ignoring case and
// wrapping around. found is false when nothing matched; the index is then
// left alone.
func (s *Surface) Search(query string) (r Ready, found bool, err error) {
	query = strings.TrimSpace(query)
	r, ok := s.Ready()
	if !ok {
		return Ready{}, false, ErrNotReady
	}
	if query == "" {
		return r, false, nil
	}

	if n, convErr := strconv.Atoi(query); convErr == nil {
		r, err = s.Jump(n - 1)
		return r, err == nil, err
	}

	needle := strings.ToLower(query)
	total := r.Len()
	for i := 0; i < total; i++ {
		idx := (r.Index + 1 + i) % total
		if strings.Contains(strings.ToLower(r.Segments[idx]), needle) {
			r, err = s.Jump(idx)
			return r, err == nil, err
		}
	}
	return r, false, nil
}

// ContextText renders everything read so far for the assistant.
func (s *Surface) ContextText() (string, error) {
	r, ok := s.Ready()
	if !ok {
		return "", ErrNotReady
	}
	return ContextText(r.Segments, r.Index), nil
}

// Reconcile handles a change notification for topic. Progress topics make
// the surface re-read the stored index; the active book topic makes it
// follow the pointer to another book, or go Idle when it is cleared.
func (s *Surface) Reconcile(topic string) {
	if topic == state.ActiveKey {
		s.followActive()
		return
	}

	// A move in flight has updated the local index but not the store yet.
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	idx := s.lib.GetProgress(topic)

	s.mu.Lock()
	r, ok := s.state.(Ready)
	if !ok || r.Hash != topic {
		s.mu.Unlock()
		return
	}
	if idx == r.Index || idx < 0 || idx >= r.Len() {
		s.mu.Unlock()
		return
	}
	r.Index = idx
	s.state = r
	s.mu.Unlock()

	logging.Debug("Adopted external progress", "surface", s.name, "hash", topic, "index", idx)
	s.signal()
}

func (s *Surface) followActive() {
	hash, ok := s.lib.Active()

	s.mu.Lock()
	cur, ready := s.state.(Ready)
	_, loading := s.state.(Loading)
	_, failed := s.state.(Failed)
	s.mu.Unlock()

	switch {
	case loading:
		// the import in flight decides
		return
	case failed:
		// stays until the user imports, opens or activates
		return
	case !ok:
		if ready {
			if _, cached := s.lib.OpenCached(cur.Hash); cached {
				return
			}
			s.mu.Lock()
			s.setBookLocked(nil)
			s.mu.Unlock()
			logging.Info("Active book cleared elsewhere", "surface", s.name, "hash", cur.Hash)
			s.signal()
		}
		return
	case ready && cur.Hash == hash:
		return
	}

	rec, cached := s.lib.OpenCached(hash)
	if !cached {
		return
	}
	s.adopt(&library.Book{Hash: hash, Record: rec, Index: s.lib.GetProgress(hash)})
	logging.Info("Switched to active book", "surface", s.name, "hash", hash)
	s.signal()
}

// Resync re-reads the active pointer and stored index. Call it when the UI
// regains focus, since notifications are best-effort.
func (s *Surface) Resync() State {
	s.followActive()
	if r, ok := s.Ready(); ok {
		s.Reconcile(r.Hash)
	}
	return s.State()
}

func (s *Surface) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Close releases the surface's subscriptions.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.unsubBook != nil {
		s.unsubBook()
		s.unsubBook = nil
	}
	if s.unsubActive != nil {
		s.unsubActive()
		s.unsubActive = nil
	}
}
