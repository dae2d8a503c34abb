package state

import (
	"sort"
	"sync"

	"github.com/metcalfc/spoon/internal/logging"
)

// Notifier fans out "this key changed, re-read it" signals. Topics are book
// hashes, plus ActiveKey for the active book pointer.
//
// Each subscription holds at most one pending signal. A publish that finds
// one already queued is folded into it, so slow observers never block
// writers and never lose the fact that something changed.
//
// A subscription may carry an origin. Publishes made with the same origin
// skip it, so a writer is never told about its own write.
type Notifier struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	wrote  map[string]string
	closed bool
}

// Subscription receives the topic on C whenever it is published.
type Subscription struct {
	C      <-chan string
	ch     chan string
	topic  string
	origin string
	n      *Notifier
	once   sync.Once
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs:  make(map[string]map[*Subscription]struct{}),
		wrote: make(map[string]string),
	}
}

// Subscribe registers interest in topic. Call Unsubscribe when the owner
// goes away.
func (n *Notifier) Subscribe(topic string) *Subscription {
	return n.SubscribeAs(topic, "")
}

// SubscribeAs is Subscribe for an owner that also writes. Publishes from
// the same origin are not delivered to it.
func (n *Notifier) SubscribeAs(topic, origin string) *Subscription {
	ch := make(chan string, 1)
	sub := &Subscription{C: ch, ch: ch, topic: topic, origin: origin, n: n}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return sub
	}
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[*Subscription]struct{})
	}
	n.subs[topic][sub] = struct{}{}
	logging.Debug("Subscriber added", "topic", topic, "origin", origin, "total", len(n.subs[topic]))
	return sub
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		n := s.n
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, ok := n.subs[s.topic]; ok {
			if _, ok := set[s]; ok {
				delete(set, s)
				close(s.ch)
			}
			if len(set) == 0 {
				delete(n.subs, s.topic)
			}
		}
	})
}

// Publish signals every subscriber of topic. It never blocks.
func (n *Notifier) Publish(topic string) {
	n.PublishFrom(topic, "")
}

// PublishFrom signals every subscriber of topic except those subscribed
// with origin. An empty origin reaches everyone.
func (n *Notifier) PublishFrom(topic, origin string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs[topic] {
		if origin != "" && sub.origin == origin {
			continue
		}
		select {
		case sub.ch <- topic:
		default:
			// already pending
		}
	}
}

// recordWrite remembers the raw value this process last stored behind
// topic. A nil value records a delete.
func (n *Notifier) recordWrite(topic string, value []byte) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.wrote[topic] = string(value)
}

// ownWrite reports whether value is what this process last stored behind
// topic. Such a change was already published in-process when it was made.
func (n *Notifier) ownWrite(topic string, value []byte) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.wrote[topic]
	return ok && last == string(value)
}

// Topics returns the topics that currently have subscribers.
func (n *Notifier) Topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.subs))
	for t := range n.subs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Close unsubscribes everyone.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for topic, set := range n.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(n.subs, topic)
	}
}
