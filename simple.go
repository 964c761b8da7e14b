package harness

import (
	"context"
	"sync"
)

// SimpleHost runs a single asynchronous function to one value, with no
// event stream. Create one with Start.
//
// It shares the streaming host's lifecycle guarantees: eager start, one
// memoized outcome, finalize hooks exactly once before Result resolves,
// idempotent Cleanup. Its event buffer simply stays empty.
type SimpleHost[T any] struct {
	cfg     *config
	fn      Func[T]
	scope   *cancelScope
	session *Session
	log     *eventLog

	settleOnce sync.Once
	done       chan struct{}
	result     *Result[T]
}

// Start begins running fn immediately and returns its host. The work
// runs exactly once no matter how many times Result is called.
func Start[T any](fn Func[T], opts ...Option) *SimpleHost[T] {
	cfg := newConfig(opts)
	h := &SimpleHost[T]{
		cfg:   cfg,
		fn:    fn,
		scope: newCancelScope(cfg.parents...),
		log:   newEventLog(),
		done:  make(chan struct{}),
	}
	// No sink: a simple host has no event stream to feed.
	h.session = newSession(cfg, h.scope.Context(), nil)

	cfg.logger.Debug().Str("session", cfg.name).Msg("host started")
	go h.run()
	return h
}

// Session returns the host's session.
func (h *SimpleHost[T]) Session() *Session {
	return h.session
}

func (h *SimpleHost[T]) run() {
	value, err := h.fn(h.scope.Context(), h.session)

	h.settleOnce.Do(func() {
		var out Outcome[T]

		switch {
		case err == nil:
			out = Outcome[T]{Kind: OutcomeSucceeded, Value: value, Summary: h.session.Summary()}
		case isAbortError(err) || h.scope.Fired():
			out = Outcome[T]{Kind: OutcomeCanceled, Summary: h.session.Summary()}
		default:
			out = Outcome[T]{Kind: OutcomeFailed, Err: err, Summary: h.session.Summary()}
		}

		h.scope.Cancel(errSettled)
		h.log.freeze()
		h.scope.Release()

		h.result = &Result[T]{Outcome: out, Events: h.log.snapshot()}
		h.cfg.logger.Debug().
			Str("session", h.cfg.name).
			Str("outcome", string(out.Kind)).
			Msg("host settled")

		_ = h.session.fin.run(context.Background())
		close(h.done)
	})
}

// Stream implements Host. A simple host produces no events: the channel
// delivers nothing and closes when the host settles.
func (h *SimpleHost[T]) Stream() (<-chan Event, UnsubscribeFunc) {
	return h.log.subscribe()
}

// Result implements Host. Waits for the outcome; repeated calls return
// the identical memoized snapshot.
func (h *SimpleHost[T]) Result(ctx context.Context) (*Result[T], error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel implements Host. No-op once the outcome is settled.
func (h *SimpleHost[T]) Cancel() {
	h.scope.Cancel(ErrCanceled)
}

// Cleanup implements Host. The finalize hooks already ran on the path
// that produced the outcome, so on a settled host this is a no-op; it is
// safe to call any number of times. On a still-running host it cancels
// and waits like the streaming host does.
func (h *SimpleHost[T]) Cleanup(ctx context.Context) error {
	select {
	case <-h.done:
	default:
		h.scope.Cancel(ErrCleanup)
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return h.session.fin.run(ctx)
}

var _ Host[int] = (*SimpleHost[int])(nil)
