package harness

import (
	"context"
	"errors"
)

// ErrCanceled is the cancellation cause recorded when Cancel is called on
// a host without a more specific reason.
var ErrCanceled = errors.New("harness: host canceled")

// ErrCleanup is the cancellation cause recorded when Cleanup has to stop a
// still-running unit of work before finalizing.
var ErrCleanup = errors.New("harness: canceled by cleanup")

// cancelScope merges the host's internal cancellation source with any
// caller-supplied parent contexts into one effective context. The
// effective context is canceled when any input fires; the first trigger
// wins and its cause is preserved, later triggers are no-ops.
type cancelScope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	stops  []func() bool
}

// newCancelScope builds the effective context from the internal source
// plus parents. A parent that is already canceled at combination time
// cancels the effective context immediately with that parent's cause.
func newCancelScope(parents ...context.Context) *cancelScope {
	ctx, cancel := context.WithCancelCause(context.Background())
	s := &cancelScope{ctx: ctx, cancel: cancel}

	for _, parent := range parents {
		if parent == nil {
			continue
		}
		if parent.Err() != nil {
			cancel(context.Cause(parent))
			break
		}
		p := parent
		s.stops = append(s.stops, context.AfterFunc(p, func() {
			cancel(context.Cause(p))
		}))
	}

	return s
}

// Context returns the effective context. Work functions and provider
// calls observe cancellation through it.
func (s *cancelScope) Context() context.Context {
	return s.ctx
}

// Cancel fires the internal source with the given cause. Idempotent: once
// the effective context is canceled, further calls keep the original
// cause. A nil cause records ErrCanceled.
func (s *cancelScope) Cancel(cause error) {
	if cause == nil {
		cause = ErrCanceled
	}
	s.cancel(cause)
}

// Fired reports whether the effective context has been canceled.
func (s *cancelScope) Fired() bool {
	return s.ctx.Err() != nil
}

// Reason returns the cause of the first trigger, or nil if none fired.
func (s *cancelScope) Reason() error {
	if s.ctx.Err() == nil {
		return nil
	}
	return context.Cause(s.ctx)
}

// Release detaches the listeners registered on parent contexts. Called
// once the host reaches terminal state; after that the parents have
// nothing left to interrupt.
func (s *cancelScope) Release() {
	for _, stop := range s.stops {
		stop()
	}
}

// isAbortError reports whether err is cancellation wearing an error shape
// rather than a genuine work failure. Such errors fold into the canceled
// outcome instead of failing the host.
func isAbortError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCanceled) ||
		errors.Is(err, ErrCleanup)
}
