package harness

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// UnsubscribeFunc cancels a stream subscription. After calling, the
// subscription channel is closed and no more events are delivered. Safe
// to call multiple times.
type UnsubscribeFunc func()

// Func is a unit of work. It receives the effective cancellation context
// and the host's Session, and produces one final value.
//
// Cancellation is cooperative: the host never interrupts a running Func.
// Pass ctx through to provider calls (or check it between steps) for
// cancellation to take effect.
type Func[T any] func(ctx context.Context, s *Session) (T, error)

// Host is the lifecycle controller around one eagerly started unit of
// work. It fans produced events out to any number of observers, converges
// on exactly one Outcome, and runs finalize hooks exactly once no matter
// how Stream, Result, Cancel, and Cleanup interleave.
//
// Use Start for a plain asynchronous function and StartStream for work
// that emits a sequence of events; use MapEvents or MapValue to derive a
// transformed view of an existing host.
type Host[T any] interface {
	// Stream returns an independent event sequence: the full backlog
	// replays first, then live events follow with no gap or duplicate.
	// The channel closes after the terminal event (or at terminal state
	// for event-less hosts). Call the UnsubscribeFunc when abandoning
	// the stream early.
	Stream() (<-chan Event, UnsubscribeFunc)

	// Result waits for the terminal outcome and returns the memoized
	// snapshot. The error is non-nil only when ctx expires while
	// waiting; work failure and cancellation arrive through the
	// Outcome's Kind.
	Result(ctx context.Context) (*Result[T], error)

	// Cancel fires the host's internal cancellation source. No-op once
	// the outcome is settled.
	Cancel()

	// Cleanup cancels still-running work, waits for it to settle, runs
	// the finalize hooks (at most once, shared with the natural
	// end-of-work path), and clears live subscribers. Idempotent and
	// safe to call concurrently with Result. The error is non-nil only
	// when ctx expires while waiting.
	Cleanup(ctx context.Context) error
}

type config struct {
	name    string
	parents []context.Context
	model   Model
	pricing *Pricing
	logger  zerolog.Logger
	schemas map[string]*jsonschema.Schema
}

func newConfig(opts []Option) *config {
	cfg := &config{
		pricing: NewPricing(),
		logger:  zerolog.Nop(),
		schemas: make(map[string]*jsonschema.Schema),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a host at Start time. Hosts begin running inside
// Start, so there is no post-construction configuration.
type Option func(*config)

// WithName sets the session name used in log entries.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithCancelParents merges external cancellation contexts into the
// host's effective context. The host is canceled as soon as any parent
// is, with that parent's cause as the reason. Pass a context pre-wired
// to a timer for deadline semantics.
func WithCancelParents(parents ...context.Context) Option {
	return func(cfg *config) {
		cfg.parents = append(cfg.parents, parents...)
	}
}

// WithModel sets the Model used by Session.Generate.
func WithModel(m Model) Option {
	return func(cfg *config) {
		cfg.model = m
	}
}

// WithPricing sets the pricing table for cost bookkeeping. Defaults to
// an empty table (all calls cost zero).
func WithPricing(p *Pricing) Option {
	return func(cfg *config) {
		cfg.pricing = p
	}
}

// WithLogger sets the logger for host lifecycle and finalize-hook
// reporting. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithEventSchema registers a JSON Schema that Emit validates payloads
// of the given event type against. Panics on an invalid schema.
func WithEventSchema(typ string, raw map[string]any) Option {
	return func(cfg *config) {
		cfg.schemas[typ] = compileEventSchema(typ, raw)
	}
}
