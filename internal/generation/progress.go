package generation

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// EventType distinguishes progress text from state transitions.
type EventType string

const (
	EventProgress EventType = "progress"
	EventState    EventType = "state"
)

// Event is one message on a controller's progress channel.
type Event struct {
	Capability string    `json:"capability"`
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Busy       bool      `json:"busy"`
	ErrorKind  Kind      `json:"error_kind,omitempty"`
	Time       time.Time `json:"time"`
}

var (
	ErrSubscriberExists  = errors.New("subscriber already exists")
	ErrBroadcasterClosed = errors.New("broadcaster is closed")
)

// BroadcasterStats counts deliveries across all subscribers.
type BroadcasterStats struct {
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// Broadcaster fans events out to subscribers without blocking the publisher.
// A subscriber whose buffer is full misses the event; Last always holds the
// newest one so late readers can catch up.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	last   *Event
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]chan Event)}
}

// Subscribe registers id and returns its event channel. The channel is
// closed by Unsubscribe or Close.
func (b *Broadcaster) Subscribe(id string, buffer int) (<-chan Event, error) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBroadcasterClosed
	}
	if _, ok := b.subs[id]; ok {
		return nil, ErrSubscriberExists
	}
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	return ch, nil
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Broadcaster) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = &ev
	b.published.Add(1)

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Last returns the most recently published event.
func (b *Broadcaster) Last() (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Event{}, false
	}
	return *b.last, true
}

func (b *Broadcaster) Stats() BroadcasterStats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return BroadcasterStats{
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: n,
	}
}

// Close disconnects every subscriber. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
