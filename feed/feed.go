// Package feed is the dashboard/observability boundary: a best-effort
// fan-out of task snapshots and messages. Publishing never blocks the
// pipeline; a slow consumer loses events rather than stalling a task
// transition.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/rustyeddy/tradeflow/message"
	"github.com/rustyeddy/tradeflow/task"
)

// Event pairs a task snapshot with the message that triggered it.
// Either field may be unset when the trigger was purely one or the
// other.
type Event struct {
	Task    *task.Task
	Message *message.Message
}

// Feed fans events out to bounded subscriber channels, dropping per
// subscriber when a channel is full.
type Feed struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	dropped atomic.Uint64
}

// New creates an empty feed.
func New() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel function. The
// buffer bounds how far the consumer may lag before events drop.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if cur, ok := f.subs[id]; ok && cur == ch {
			delete(f.subs, id)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish offers the event to every subscriber without blocking.
func (f *Feed) Publish(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped returns how many events were discarded across subscribers.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

// TaskChanged implements task.Notifier, forwarding lifecycle changes
// into the feed.
func (f *Feed) TaskChanged(t task.Task) {
	f.Publish(Event{Task: &t})
}

// MessageSeen publishes a message observation paired with the task it
// belongs to, when known.
func (f *Feed) MessageSeen(t *task.Task, msg message.Message) {
	f.Publish(Event{Task: t, Message: &msg})
}
