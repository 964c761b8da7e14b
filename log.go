package harness

import (
	"sync"

	"github.com/rickchristie/harness/internal/buffer"
)

// subscription is one live observer's registration: an id for removal
// and an unbounded queue so the observer's pace never backpressures the
// producer or other observers.
type subscription struct {
	id  uint64
	buf *buffer.Unbounded[Event]
}

// eventLog owns a streaming host's append-only event buffer and its set
// of live subscribers. All methods are concurrent-safe.
//
// Append and subscribe share one mutex, which is what makes
// replay-then-live seamless: a subscriber registered under the lock has
// already been fed every buffered event and will receive every later
// append, with no gap and no duplicate.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	subs   []*subscription
	frozen bool
	nextID uint64
}

func newEventLog() *eventLog {
	return &eventLog{}
}

// append records ev and broadcasts it to every live subscriber. Returns
// false once the log is frozen; frozen logs are immutable.
func (l *eventLog) append(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return false
	}

	l.events = append(l.events, ev)
	for _, sub := range l.subs {
		sub.buf.Send(ev)
	}
	return true
}

// subscribe returns a channel that replays the current buffer and then
// continues with live events. On a frozen log the channel closes after
// the replay drains.
func (l *eventLog) subscribe() (<-chan Event, UnsubscribeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub := &subscription{
		id:  l.nextID,
		buf: buffer.NewUnbounded[Event](),
	}
	l.nextID++

	// Send never blocks, so the whole backlog fits under the lock.
	for _, ev := range l.events {
		sub.buf.Send(ev)
	}

	if l.frozen {
		sub.buf.Close()
		return sub.buf.Receive(), func() {}
	}

	l.subs = append(l.subs, sub)
	return sub.buf.Receive(), func() {
		l.unsubscribe(sub)
	}
}

// unsubscribe removes one subscriber without touching the others.
func (l *eventLog) unsubscribe(sub *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub.buf.Close()
	for i, s := range l.subs {
		if s.id == sub.id {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

// freeze makes the buffer immutable and clears the subscriber set. Each
// live queue still drains its pending events before its channel closes.
// Safe to call multiple times.
func (l *eventLog) freeze() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return
	}
	l.frozen = true

	for _, sub := range l.subs {
		sub.buf.Close()
	}
	l.subs = nil
}

// snapshot returns a copy of the buffer in emission order.
func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// size returns the number of buffered events.
func (l *eventLog) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
