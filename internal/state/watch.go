package state

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/metcalfc/spoon/internal/logging"
)

// Watcher turns file changes made by other processes in a FileBackend
// directory into notifier signals. Progress files still holding the value
// this process last wrote are skipped; that change was published when it
// was made.
type Watcher struct {
	fw       *fsnotify.Watcher
	backend  *FileBackend
	notifier *Notifier
}

// NewWatcher starts watching b's directory.
func NewWatcher(b *FileBackend, n *Notifier) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(b.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", b.Dir(), err)
	}
	return &Watcher{fw: fw, backend: b, notifier: n}, nil
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Warn("State watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	key, ok := KeyForFile(ev.Name)
	if !ok {
		return
	}
	if key == ActiveKey {
		w.notifier.Publish(ActiveKey)
		return
	}
	hash, ok := ProgressHash(key)
	if !ok {
		return
	}
	if value, _, err := w.backend.Get(key); err == nil && w.notifier.ownWrite(hash, value) {
		return
	}
	w.notifier.Publish(hash)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Poller re-reads the values behind every subscribed topic on an interval
// and publishes the ones that changed. It covers backends without file
// events and stands in when the Watcher cannot start.
type Poller struct {
	backend  Backend
	notifier *Notifier
	interval time.Duration
	last     map[string]string
}

// NewPoller returns a Poller checking every interval.
func NewPoller(b Backend, n *Notifier, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{backend: b, notifier: n, interval: interval, last: make(map[string]string)}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll does one pass. The first sighting of a topic only records a baseline.
// A change back to what this process itself last wrote is not published.
func (p *Poller) Poll() {
	topics := p.notifier.Topics()
	seen := make(map[string]bool, len(topics))

	for _, topic := range topics {
		seen[topic] = true
		value, _, err := p.backend.Get(topicKey(topic))
		if err != nil {
			logging.Debug("Poll read failed", "topic", topic, "error", err)
			continue
		}
		cur := string(value)
		prev, known := p.last[topic]
		p.last[topic] = cur
		if known && prev != cur && !p.notifier.ownWrite(topic, value) {
			p.notifier.Publish(topic)
		}
	}

	for topic := range p.last {
		if !seen[topic] {
			delete(p.last, topic)
		}
	}
}
