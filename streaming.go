package harness

import (
	"context"
	"errors"
	"sync"
)

// errSettled is the cancellation cause used when a host reaches terminal
// state and fires the effective context to stop in-flight provider calls.
var errSettled = errors.New("harness: work settled")

// StreamHost drives a unit of work that emits a sequence of events and
// ultimately produces one final value. Create one with StartStream.
//
// The host starts eagerly: no observer needs to attach for work to
// proceed. Every emitted event is appended to an ordered buffer and
// broadcast to live observers; once the work settles the buffer freezes,
// the outcome is memoized, finalize hooks run, and Result resolves.
type StreamHost[T any] struct {
	cfg     *config
	fn      Func[T]
	scope   *cancelScope
	session *Session
	log     *eventLog

	settleOnce sync.Once
	done       chan struct{}
	result     *Result[T]
}

// StartStream begins running fn immediately and returns its host.
//
// fn emits domain events through the Session; the host appends each to
// the buffer and broadcasts it. The terminal event is synthesized by the
// host from fn's return: a value becomes an EventComplete, a non-abort
// error becomes an EventError, and an abort-shaped error (or a fired
// cancellation) produces no event and a canceled outcome.
func StartStream[T any](fn Func[T], opts ...Option) *StreamHost[T] {
	cfg := newConfig(opts)
	h := &StreamHost[T]{
		cfg:   cfg,
		fn:    fn,
		scope: newCancelScope(cfg.parents...),
		log:   newEventLog(),
		done:  make(chan struct{}),
	}
	h.session = newSession(cfg, h.scope.Context(), func(ev Event) {
		h.log.append(ev)
	})

	cfg.logger.Debug().Str("session", cfg.name).Msg("stream host started")
	go h.run()
	return h
}

// Session returns the host's session. Useful for registering finalize
// hooks or reading the live Summary from outside the work function.
func (h *StreamHost[T]) Session() *Session {
	return h.session
}

func (h *StreamHost[T]) run() {
	value, err := h.fn(h.scope.Context(), h.session)
	h.settle(value, err)
}

// settle converges on exactly one outcome: classifies fn's return,
// appends the synthesized terminal event (if any), freezes the buffer,
// fires the effective context, memoizes the result snapshot, and runs
// the finalize hooks. Only the first caller has any effect.
func (h *StreamHost[T]) settle(value T, err error) {
	h.settleOnce.Do(func() {
		var out Outcome[T]

		switch {
		case err == nil:
			ev := h.session.completeEvent(value)
			h.log.append(ev)
			out = Outcome[T]{Kind: OutcomeSucceeded, Value: value, Summary: ev.Summary}
		case isAbortError(err) || h.scope.Fired():
			// Cancellation folds into the outcome with no event.
			out = Outcome[T]{Kind: OutcomeCanceled, Summary: h.session.Summary()}
		default:
			var partial any
			var pe *PartialError
			if errors.As(err, &pe) {
				partial = pe.Partial
			}
			ev := h.session.errorEvent(err, partial)
			h.log.append(ev)
			out = Outcome[T]{Kind: OutcomeFailed, Err: err, Summary: ev.Summary}
		}

		// Stop any in-flight provider calls from doing needless work.
		h.scope.Cancel(errSettled)
		h.log.freeze()
		h.scope.Release()

		h.result = &Result[T]{Outcome: out, Events: h.log.snapshot()}
		h.cfg.logger.Debug().
			Str("session", h.cfg.name).
			Str("outcome", string(out.Kind)).
			Int("events", len(h.result.Events)).
			Msg("stream host settled")

		// Hooks are guaranteed to have run before Result resolves.
		_ = h.session.fin.run(context.Background())
		close(h.done)
	})
}

// Stream implements Host. Each call returns an independent sequence:
// the buffered backlog replays first, then live events follow. On a
// settled host the channel closes after the replay.
func (h *StreamHost[T]) Stream() (<-chan Event, UnsubscribeFunc) {
	return h.log.subscribe()
}

// Result implements Host. It waits for the terminal outcome and returns
// the memoized snapshot; repeated calls return the identical snapshot
// and the work never reruns.
func (h *StreamHost[T]) Result(ctx context.Context) (*Result[T], error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel implements Host. Cooperative: the work function must observe
// the effective context for cancellation to take effect before its next
// provider call. No-op once the outcome is settled.
func (h *StreamHost[T]) Cancel() {
	h.scope.Cancel(ErrCanceled)
}

// Cleanup implements Host. If the work has not settled it first requests
// cancellation and waits for the run to settle, then runs the finalize
// hooks (shared with the settle path, so they execute exactly once) and
// clears the subscriber set. Idempotent.
func (h *StreamHost[T]) Cleanup(ctx context.Context) error {
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

	if err := h.session.fin.run(ctx); err != nil {
		return err
	}
	h.log.freeze()
	return nil
}

var _ Host[string] = (*StreamHost[string])(nil)
