// Package library is the core every surface talks to. It imports books
// through the extract and segment pipeline at most once per distinct file,
// and reads, writes and watches reading progress.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metcalfc/spoon/internal/logging"
	"github.com/metcalfc/spoon/internal/reader"
	"github.com/metcalfc/spoon/internal/state"
	"golang.org/x/sync/singleflight"
)

// DefaultInstruction is the preamble copied to the assistant before the
// first excerpt when the user has not written their own.
const DefaultInstruction = `You are my English reading assistant. I will send you passages from an English book one at a time. For each passage, please respond in the following format:

## Translation
Translate every sentence into Chinese, keeping the original sentence order. Place the English sentence first, followed by the Chinese translation on the next line, with a blank line between each pair.

## Key Vocabulary
List 5-10 important or difficult words/phrases from this passage in a table:
| Word/Phrase | Meaning (Chinese) | Example from text |

## Summary
Summarize the main idea of this passage in 2-3 sentences in Chinese.

---
Keep this format consistent for every passage I send. No need to confirm or repeat instructions. Just wait for my first passage.`

// Book is an opened book: its identity, cached record and saved index.
type Book struct {
	Hash   string
	Record *state.BookRecord
	Index  int
}

// Len returns the number of excerpts.
func (b *Book) Len() int { return len(b.Record.Segments) }

// Library owns the stores for one process. Create it once at start-up and
// share it with every surface.
type Library struct {
	backend  state.Backend
	notifier *state.Notifier
	books    *state.ContentStore
	progress *state.ProgressStore
	session  *state.Session
	target   int
	imports  singleflight.Group
}

// Option configures a Library.
type Option func(*Library)

// WithTargetWords sets the excerpt size used for new imports.
func WithTargetWords(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.target = n
		}
	}
}

// New returns a Library over b, publishing changes on n.
func New(b state.Backend, n *state.Notifier, opts ...Option) *Library {
	l := &Library{
		backend:  b,
		notifier: n,
		books:    state.NewContentStore(b),
		progress: state.NewProgressStore(b, n),
		session:  state.NewSession(b, n),
		target:   reader.DefaultTargetWords,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ImportBook hashes data and returns the cached record, running extraction
// and segmentation on a miss. Concurrent imports of the same bytes share one
// run. Nothing is stored unless the whole pipeline succeeds. On success the
// book becomes active.
func (l *Library) ImportBook(data []byte) (*Book, error) {
	hash := state.ComputeHash(data)

	v, err, shared := l.imports.Do(hash, func() (interface{}, error) {
		return l.load(hash, data)
	})
	if err != nil {
		logging.Warn("Import failed", "hash", hash, "error", err)
		return nil, err
	}
	if shared {
		logging.Debug("Import shared with concurrent caller", "hash", hash)
	}
	rec := v.(*state.BookRecord)

	if err := l.progress.Init(hash); err != nil {
		return nil, fmt.Errorf("init progress: %w", err)
	}
	if err := l.session.SetActive(hash); err != nil {
		return nil, fmt.Errorf("set active book: %w", err)
	}
	return &Book{Hash: hash, Record: rec, Index: l.progress.Get(hash)}, nil
}

func (l *Library) load(hash string, data []byte) (*state.BookRecord, error) {
	rec, err := l.books.Lookup(hash)
	switch {
	case err == nil:
		logging.Debug("Book cache hit", "hash", hash)
		return rec, nil
	case errors.Is(err, state.ErrCorrupt):
		logging.Warn("Cached book corrupt, extracting again", "hash", hash, "error", err)
	case !errors.Is(err, state.ErrNotFound):
		return nil, err
	}

	start := time.Now()
	book, err := reader.Extract(data)
	if err != nil {
		if errors.Is(err, reader.ErrNoChapters) {
			return nil, fmt.Errorf("%w: %w", ErrNoExtractableText, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreadableContainer, err)
	}

	rec = &state.BookRecord{
		Title:    book.Title,
		Chapters: book.Chapters,
		Segments: reader.Segment(book.Chapters, l.target),
	}
	if len(rec.Segments) == 0 {
		return nil, ErrNoExtractableText
	}
	if err := l.books.Put(hash, rec); err != nil {
		return nil, fmt.Errorf("store book: %w", err)
	}

	logging.Info("Book imported",
		"hash", hash,
		"title", rec.Title,
		"chapters", len(rec.Chapters),
		"segments", len(rec.Segments),
		"elapsed", time.Since(start))
	return rec, nil
}

// OpenCached returns the stored record for hash. A corrupt record reads as
// a miss.
func (l *Library) OpenCached(hash string) (*state.BookRecord, bool) {
	return l.books.Get(hash)
}

// Reopen opens a cached book without its source bytes and makes it active.
func (l *Library) Reopen(hash string) (*Book, error) {
	rec, err := l.books.Lookup(hash)
	if err != nil {
		if errors.Is(err, state.ErrCorrupt) {
			return nil, fmt.Errorf("%w: %w", ErrNotCached, ErrCacheCorrupt)
		}
		return nil, ErrNotCached
	}
	if err := l.session.SetActive(hash); err != nil {
		return nil, fmt.Errorf("set active book: %w", err)
	}
	return &Book{Hash: hash, Record: rec, Index: l.progress.Get(hash)}, nil
}

// Restore reopens the active book from a previous session.
func (l *Library) Restore() (*Book, error) {
	hash, ok := l.session.Active()
	if !ok {
		return nil, ErrNoActiveBook
	}
	return l.Reopen(hash)
}

// Active returns the hash of the active book.
func (l *Library) Active() (string, bool) {
	return l.session.Active()
}

// GetProgress returns the saved excerpt index for hash, 0 if none.
func (l *Library) GetProgress(hash string) int {
	return l.progress.Get(hash)
}

// SetProgress saves index for hash and notifies subscribers. Callers clamp
// to the book's range first; negative indices are rejected here.
func (l *Library) SetProgress(hash string, index int) error {
	return l.SetProgressFrom(hash, index, "")
}

// SetProgressFrom is SetProgress on behalf of origin. Subscribers that
// registered with SubscribeAs under the same origin are not called back.
func (l *Library) SetProgressFrom(hash string, index int, origin string) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	return l.progress.SetFrom(hash, index, origin)
}

// Unsubscribe releases a subscription. Safe to call more than once.
type Unsubscribe func()

// Subscribe calls fn with the topic whenever hash's progress may have
// changed. Pass state.ActiveKey to follow the active book pointer instead.
// fn runs on its own goroutine and should re-read rather than trust any
// cached value.
func (l *Library) Subscribe(hash string, fn func(topic string)) Unsubscribe {
	return l.SubscribeAs(hash, "", fn)
}

// SubscribeAs is Subscribe for a writer identified by origin. Its own
// SetProgressFrom calls do not reach fn.
func (l *Library) SubscribeAs(hash, origin string, fn func(topic string)) Unsubscribe {
	sub := l.notifier.SubscribeAs(hash, origin)
	go func() {
		for topic := range sub.C {
			fn(topic)
		}
	}()
	return sub.Unsubscribe
}

// ClearBook removes the record and progress for hash. If it was the active
// book the pointer is cleared too.
func (l *Library) ClearBook(hash string) error {
	if err := l.books.Delete(hash); err != nil {
		return fmt.Errorf("clear book: %w", err)
	}
	l.notifier.Publish(hash)
	if active, ok := l.session.Active(); ok && active == hash {
		if err := l.session.ClearActive(); err != nil {
			return fmt.Errorf("clear active book: %w", err)
		}
	}
	logging.Info("Book cleared", "hash", hash)
	return nil
}

// Verbosity returns the list display preference.
func (l *Library) Verbosity() string {
	return l.session.Pref(state.PrefVerbosity, state.VerbosityBrief)
}

// SetVerbosity stores the list display preference.
func (l *Library) SetVerbosity(v string) error {
	if v != state.VerbosityBrief && v != state.VerbosityDetailed {
		return fmt.Errorf("verbosity must be %q or %q, got %q", state.VerbosityBrief, state.VerbosityDetailed, v)
	}
	return l.session.SetPref(state.PrefVerbosity, v)
}

// Instruction returns the assistant preamble.
func (l *Library) Instruction() string {
	return l.session.Pref(state.PrefInstruction, DefaultInstruction)
}

// SetInstruction stores the assistant preamble. An empty value restores the
// default.
func (l *Library) SetInstruction(s string) error {
	if s == "" {
		return l.session.ClearPref(state.PrefInstruction)
	}
	return l.session.SetPref(state.PrefInstruction, s)
}

// StartSync begins pushing changes made by other processes into the
// notifier until ctx is done. File backends are watched; anything else, or
// a watcher that fails to start, is polled every interval. A watcher
// failure is returned wrapped in ErrSyncUnavailable alongside the running
// poller, so callers can warn and carry on.
func (l *Library) StartSync(ctx context.Context, interval time.Duration) error {
	fb, ok := l.backend.(*state.FileBackend)
	if !ok {
		go state.NewPoller(l.backend, l.notifier, interval).Run(ctx)
		return nil
	}

	w, err := state.NewWatcher(fb, l.notifier)
	if err != nil {
		logging.Warn("File watcher unavailable, polling instead", "error", err)
		go state.NewPoller(l.backend, l.notifier, interval).Run(ctx)
		return fmt.Errorf("%w: %w", ErrSyncUnavailable, err)
	}
	go func() {
		<-ctx.Done()
		w.Close()
	}()
	go w.Run(ctx)
	return nil
}
