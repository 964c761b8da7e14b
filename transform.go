package harness

import (
	"context"
	"fmt"
	"sync"
)

// MapEvents derives a host that behaves exactly like h except that every
// event passes through fn before observers see it. Lifecycle guarantees
// are preserved: Cancel and Cleanup delegate to the wrapped host, and the
// derived host owns no cancellation or buffer state of its own.
//
// The mapped EventComplete's Value determines the derived host's final
// value and must be a U. If fn returns an error (or panics) the offending
// event is replaced with a synthesized EventError and the derived
// outcome becomes failed; a thrown transform never crashes the stream.
// A non-succeeded wrapped outcome passes through unchanged and the final
// value is never transformed away.
//
// For a host that produces no terminal event (a SimpleHost), there is no
// complete event to map, so the wrapped value must already be a U.
func MapEvents[T, U any](h Host[T], fn func(Event) (Event, error)) Host[U] {
	return &mappedHost[T, U]{
		inner:    h,
		mapEvent: fn,
		mapValue: func(v T, mapped *Event) (U, error) {
			if mapped != nil {
				u, ok := mapped.Value.(U)
				if !ok {
					return u, fmt.Errorf("harness: transformed value is %T, not %T", mapped.Value, u)
				}
				return u, nil
			}
			u, ok := any(v).(U)
			if !ok {
				return u, fmt.Errorf("harness: value is %T, not %T", v, u)
			}
			return u, nil
		},
	}
}

// MapValue derives a host that transforms only the final value; all other
// events pass through unchanged. The same pass-through and error rules as
// MapEvents apply.
func MapValue[T, U any](h Host[T], fn func(T) (U, error)) Host[U] {
	return &mappedHost[T, U]{
		inner: h,
		mapEvent: func(ev Event) (Event, error) {
			if ev.Type != EventComplete {
				return ev, nil
			}
			v, _ := ev.Value.(T)
			u, err := fn(v)
			if err != nil {
				return Event{}, err
			}
			mapped := ev
			mapped.Value = u
			return mapped, nil
		},
		mapValue: func(v T, mapped *Event) (U, error) {
			if mapped != nil {
				u, ok := mapped.Value.(U)
				if !ok {
					return u, fmt.Errorf("harness: transformed value is %T, not %T", mapped.Value, u)
				}
				return u, nil
			}
			return fn(v)
		},
	}
}

// mappedHost is the derived host behind MapEvents and MapValue. It holds
// no buffer: live streams map the inner subscription on the fly, and the
// result maps the inner frozen buffer once, memoized.
type mappedHost[T, U any] struct {
	inner    Host[T]
	mapEvent func(Event) (Event, error)
	mapValue func(v T, mappedComplete *Event) (U, error)

	once   sync.Once
	result *Result[U]
}

// Stream implements Host. Events from the inner subscription pass
// through the transform; a transform failure emits a synthesized
// EventError and ends the derived stream.
func (m *mappedHost[T, U]) Stream() (<-chan Event, UnsubscribeFunc) {
	in, unsub := m.inner.Stream()
	out := make(chan Event)
	stop := make(chan struct{})

	var stopOnce sync.Once
	cancel := func() {
		stopOnce.Do(func() {
			close(stop)
			unsub()
		})
	}

	go func() {
		defer close(out)
		for ev := range in {
			mapped, err := m.applyEvent(ev)
			if err != nil {
				select {
				case out <- synthesizedErrorEvent(ev, err):
				case <-stop:
				}
				cancel()
				return
			}
			select {
			case out <- mapped:
			case <-stop:
				return
			}
		}
	}()

	return out, cancel
}

// Result implements Host. The inner result's events are mapped exactly
// once and the snapshot is memoized, so repeated calls compare equal.
func (m *mappedHost[T, U]) Result(ctx context.Context) (*Result[U], error) {
	res, err := m.inner.Result(ctx)
	if err != nil {
		return nil, err
	}

	m.once.Do(func() {
		m.result = m.buildResult(res)
	})
	return m.result, nil
}

func (m *mappedHost[T, U]) buildResult(res *Result[T]) *Result[U] {
	events := make([]Event, 0, len(res.Events))
	var mappedComplete *Event

	for _, ev := range res.Events {
		mapped, err := m.applyEvent(ev)
		if err != nil {
			events = append(events, synthesizedErrorEvent(ev, err))
			return &Result[U]{
				Outcome: Outcome[U]{Kind: OutcomeFailed, Err: err, Summary: res.Summary},
				Events:  events,
			}
		}
		events = append(events, mapped)
		if mapped.Type == EventComplete {
			c := mapped
			mappedComplete = &c
		}
	}

	out := Outcome[U]{Kind: res.Kind, Err: res.Err, Summary: res.Summary}
	if res.Kind == OutcomeSucceeded {
		u, err := m.mapValue(res.Value, mappedComplete)
		if err != nil {
			events = append(events, synthesizedErrorEvent(Event{}, err))
			return &Result[U]{
				Outcome: Outcome[U]{Kind: OutcomeFailed, Err: err, Summary: res.Summary},
				Events:  events,
			}
		}
		out.Value = u
	}

	return &Result[U]{Outcome: out, Events: events}
}

// Cancel implements Host, delegating to the wrapped host.
func (m *mappedHost[T, U]) Cancel() {
	m.inner.Cancel()
}

// Cleanup implements Host, delegating to the wrapped host.
func (m *mappedHost[T, U]) Cleanup(ctx context.Context) error {
	return m.inner.Cleanup(ctx)
}

// applyEvent runs the transform with panic containment.
func (m *mappedHost[T, U]) applyEvent(ev Event) (mapped Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("harness: event transform panicked: %v", r)
		}
	}()
	return m.mapEvent(ev)
}

// synthesizedErrorEvent replaces an event whose transform failed. It
// keeps the source event's timing so the derived sequence stays
// coherent.
func synthesizedErrorEvent(src Event, err error) Event {
	return Event{
		ID:        newEventID(),
		Type:      EventError,
		Timestamp: src.Timestamp,
		Elapsed:   src.Elapsed,
		Delta:     src.Delta,
		Err:       err,
		Summary:   src.Summary,
	}
}
