package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sync"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tmc/langchaingo/llms"
)

// ErrReservedEventType is returned by Emit when user code tries to emit
// one of the terminal event types. This is protocol misuse: it surfaces
// synchronously at the Emit call and is never folded into the outcome.
var ErrReservedEventType = errors.New("harness: reserved event type")

// ErrNoModel is returned by Generate when the host was started without a
// Model.
var ErrNoModel = errors.New("harness: no model configured")

// Session is the collaborator a unit of work runs against. It performs
// provider calls, stamps timing metrics onto emitted events, keeps the
// usage/cost Summary, and collects finalize hooks for the host.
//
// A host creates exactly one Session at start and passes it to the work
// function together with the effective cancellation context. Sessions are
// safe for concurrent use.
type Session struct {
	name    string
	ctx     context.Context
	model   Model
	pricing *Pricing
	logger  zerolog.Logger
	fin     *finalizer
	schemas map[string]*jsonschema.Schema
	sink    func(Event)

	mu      sync.Mutex
	start   time.Time
	last    time.Time
	summary *Summary
}

// newSession wires a Session to its host. sink receives every stamped
// event; the host appends and broadcasts from there. A nil sink drops
// emitted events, which is what the simple host wants.
func newSession(cfg *config, ctx context.Context, sink func(Event)) *Session {
	return &Session{
		name:    cfg.name,
		ctx:     ctx,
		model:   cfg.model,
		pricing: cfg.pricing,
		logger:  cfg.logger,
		fin:     newFinalizer(cfg.logger),
		schemas: cfg.schemas,
		sink:    sink,
		start:   time.Now(),
		summary: newSummary(),
	}
}

// Name returns the session name given at Start (empty by default).
func (s *Session) Name() string {
	return s.name
}

// Context returns the effective cancellation context. It is the same
// context the work function receives; provider calls made outside
// Generate should pass it through so cancellation takes effect.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Emit produces a user-domain event: stamps it with timing metrics,
// hands it to the host for buffering and broadcast, and returns the
// stamped event.
//
// Emitting a reserved type (EventComplete, EventError) returns
// ErrReservedEventType. If a JSON Schema was registered for typ via
// WithEventSchema, the payload is validated first and a validation
// failure is returned without the event being delivered.
func (s *Session) Emit(typ string, payload map[string]any) (Event, error) {
	if IsReservedType(typ) {
		return Event{}, fmt.Errorf("%w: %q", ErrReservedEventType, typ)
	}

	if schema, ok := s.schemas[typ]; ok {
		if err := schema.Validate(map[string]any(payload)); err != nil {
			return Event{}, fmt.Errorf("harness: event %q payload: %w", typ, err)
		}
	}

	ev := s.stamp(Event{Type: typ, Payload: payload})
	s.deliver(ev)
	return ev, nil
}

// OnDone registers a finalize hook. Hooks run exactly once when the host
// finalizes, in last-registered-first order. Hook errors are logged and
// never surface to callers.
func (s *Session) OnDone(hook func() error) {
	s.fin.register(hook)
}

// Summary returns a snapshot of the usage/cost aggregate so far. Safe to
// call any number of times, including after a failure.
func (s *Session) Summary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.summary.Clone()
	sum.Duration = time.Since(s.start)
	return sum
}

// Generate performs a provider call through the configured Model and
// records its normalized usage into the Summary.
func (s *Session) Generate(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*ContentResponse, error) {
	if s.model == nil {
		return nil, ErrNoModel
	}

	resp, err := s.model.GenerateContent(ctx, messages, options...)
	if resp != nil && resp.Info != nil {
		s.RecordUsage(s.model.Name(), resp.Info)
	}
	return resp, err
}

// RecordUsage folds one provider call's usage into the Summary, with
// cost looked up from the pricing table. Use this when calling providers
// outside Generate.
func (s *Session) RecordUsage(model string, info *GenerationInfo) {
	if info == nil {
		return
	}
	cost := s.pricing.Cost(model, info)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.add(model, info, cost)
}

// stamp assigns the event an ID and timing metrics. Delta is measured
// against the previous stamped event in this session.
func (s *Session) stamp(ev Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ev.ID = newEventID()
	ev.Timestamp = now
	ev.Elapsed = now.Sub(s.start)
	if !s.last.IsZero() {
		ev.Delta = now.Sub(s.last)
	}
	s.last = now
	return ev
}

// deliver hands a stamped event to the host.
func (s *Session) deliver(ev Event) {
	if s.sink == nil {
		s.logger.Debug().Str("type", ev.Type).Msg("event emitted on non-streaming session; dropped")
		return
	}
	s.sink(ev)
}

// completeEvent builds the reserved terminal event for a success. Only
// hosts call this; Emit rejects the reserved types.
func (s *Session) completeEvent(value any) Event {
	sum := s.Summary()
	s.logger.Debug().Str("session", s.name).Msg("session complete")
	return s.stamp(Event{Type: EventComplete, Value: value, Summary: sum})
}

// errorEvent builds the reserved terminal event for a work failure,
// carrying the error, an optional partial value, and the best-effort
// Summary.
func (s *Session) errorEvent(err error, partial any) Event {
	sum := s.Summary()
	s.logger.Debug().Str("session", s.name).Err(err).Msg("session failed")
	return s.stamp(Event{Type: EventError, Err: err, Partial: partial, Summary: sum})
}

// compileEventSchema compiles a raw JSON Schema map for payload
// validation. Panics on an invalid schema: schemas are fixed at Start
// time, so this is a programmer error.
func compileEventSchema(typ string, raw map[string]any) *jsonschema.Schema {
	data, err := json.Marshal(raw)
	if err != nil {
		panic(fmt.Sprintf("harness: marshal schema for event %q: %v", typ, err))
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		panic(fmt.Sprintf("harness: parse schema for event %q: %v", typ, err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		panic(fmt.Sprintf("harness: add schema resource for event %q: %v", typ, err))
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("harness: compile schema for event %q: %v", typ, err))
	}
	return compiled
}
