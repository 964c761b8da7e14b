package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnbounded_OrderPreserved(t *testing.T) {
	type input struct {
		items []int
	}

	type expected struct {
		received []int
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "delivers items in send order",
			input:    input{items: []int{1, 2, 3, 4, 5}},
			expected: expected{received: []int{1, 2, 3, 4, 5}},
		},
		{
			name:     "close with nothing queued",
			input:    input{items: nil},
			expected: expected{received: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewUnbounded[int]()

			for _, item := range tt.input.items {
				buf.Send(item)
			}
			buf.Close()

			var received []int
			for item := range buf.Receive() {
				received = append(received, item)
			}

			assert.Equal(t, tt.expected.received, received)
		})
	}
}

func TestUnbounded_SendNeverBlocks(t *testing.T) {
	buf := NewUnbounded[int]()

	// No consumer attached at all; 10k sends must still finish promptly.
	done := make(chan struct{})
	go func() {
		for i := range 10000 {
			buf.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked without a consumer")
	}

	buf.Close()

	count := 0
	for range buf.Receive() {
		count++
	}
	assert.Equal(t, 10000, count)
}

func TestUnbounded_ConcurrentSenders(t *testing.T) {
	buf := NewUnbounded[int]()
	const senders = 8
	const perSender = 500

	var wg sync.WaitGroup
	wg.Add(senders)
	for i := range senders {
		go func(id int) {
			defer wg.Done()
			for j := range perSender {
				buf.Send(id*perSender + j)
			}
		}(i)
	}
	wg.Wait()
	buf.Close()

	count := 0
	for range buf.Receive() {
		count++
	}
	assert.Equal(t, senders*perSender, count)
}

func TestUnbounded_SendAfterCloseDropped(t *testing.T) {
	buf := NewUnbounded[int]()
	buf.Send(1)
	buf.Close()
	buf.Send(2)

	var received []int
	for item := range buf.Receive() {
		received = append(received, item)
	}

	assert.Equal(t, []int{1}, received)
}

func TestUnbounded_CloseIdempotent(t *testing.T) {
	buf := NewUnbounded[int]()
	buf.Close()
	buf.Close()

	select {
	case _, ok := <-buf.Receive():
		assert.False(t, ok, "expected channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestUnbounded_SlowConsumerDrainsEverything(t *testing.T) {
	buf := NewUnbounded[int]()

	received := make(chan int, 100)
	go func() {
		for item := range buf.Receive() {
			time.Sleep(time.Millisecond)
			received <- item
		}
		close(received)
	}()

	for i := range 100 {
		buf.Send(i)
	}
	buf.Close()

	count := 0
	for range received {
		count++
	}
	assert.Equal(t, 100, count)
}
