package harness

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// finalizer guards the registered finalize hooks so they run at most once
// no matter how many call sites request finalization concurrently (the
// natural end-of-work path racing an explicit Cleanup, for example).
//
// Hooks execute in last-registered-first order. A hook error or panic is
// logged and never stops the remaining hooks, and never surfaces to a
// caller: finalize hooks are expected to handle their own recoverable
// errors internally.
type finalizer struct {
	mu      sync.Mutex
	hooks   []func() error
	started bool
	done    chan struct{}
	logger  zerolog.Logger
}

func newFinalizer(logger zerolog.Logger) *finalizer {
	return &finalizer{
		done:   make(chan struct{}),
		logger: logger,
	}
}

// register appends a hook. Registrations after finalization has started
// are dropped; the run already snapshotted its hook list.
func (f *finalizer) register(hook func() error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		f.logger.Debug().Msg("finalize hook registered after finalization started; dropped")
		return
	}
	f.hooks = append(f.hooks, hook)
}

// run executes the hooks exactly once across all callers. The first
// caller flips the flag and executes; every concurrent or later caller
// waits for that same run, bounded by its own ctx. The flag transitions
// even if a hook fails.
func (f *finalizer) run(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		select {
		case <-f.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.started = true
	hooks := f.hooks
	f.mu.Unlock()

	defer close(f.done)
	for i := len(hooks) - 1; i >= 0; i-- {
		f.runHook(hooks[i])
	}
	return nil
}

// runHook isolates a single hook: its error is logged, its panic is
// recovered, and either way the next hook still runs.
func (f *finalizer) runHook(hook func() error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Any("panic", r).Msg("finalize hook panicked")
		}
	}()

	if err := hook(); err != nil {
		f.logger.Error().Err(err).Msg("finalize hook failed")
	}
}

// ran reports whether a run has completed.
func (f *finalizer) ran() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
