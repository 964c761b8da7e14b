// Package buffer provides the unbounded queue that backs per-observer
// event delivery.
package buffer

import (
	"sync"
)

// Unbounded is a queue whose Send never blocks, no matter how slowly the
// consumer drains it. Each live stream observer gets its own Unbounded so
// one observer's pace never affects the producer or other observers.
//
// A background goroutine moves items from the internal queue to the output
// channel:
//
//	buf := buffer.NewUnbounded[Event]()
//	go func() {
//	    for ev := range buf.Receive() {
//	        // consume
//	    }
//	}()
//	buf.Send(ev) // never blocks
//	buf.Close()  // closes Receive() after pending items drain
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	cond   *sync.Cond
	closed bool
	out    chan T
}

// NewUnbounded creates a ready-to-use unbounded queue.
func NewUnbounded[T any]() *Unbounded[T] {
	b := &Unbounded[T]{
		items: make([]T, 0, 16),
		out:   make(chan T, 1),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.drainLoop()
	return b
}

// drainLoop moves items from the queue to the output channel until the
// queue is closed and fully drained.
func (b *Unbounded[T]) drainLoop() {
	for {
		item, ok := b.dequeue()
		if !ok {
			close(b.out)
			return
		}
		// May block here when the consumer is slow; the queue keeps
		// absorbing Sends in the meantime.
		b.out <- item
	}
}

// dequeue blocks until an item is available or the queue is closed.
// Returns (zero, false) once closed and empty.
func (b *Unbounded[T]) dequeue() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.items) == 0 && !b.closed {
		b.cond.Wait()
	}

	if len(b.items) == 0 {
		var zero T
		return zero, false
	}

	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

// Send enqueues an item. Never blocks; safe from any goroutine.
// Sends after Close are silently dropped.
func (b *Unbounded[T]) Send(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.items = append(b.items, item)
	b.cond.Signal()
}

// Receive returns the output channel. It closes after Close once all
// pending items have been delivered.
func (b *Unbounded[T]) Receive() <-chan T {
	return b.out
}

// Close marks the queue closed. Safe to call multiple times.
func (b *Unbounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	b.cond.Signal()
}

// Len reports the number of undelivered items still queued.
func (b *Unbounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
