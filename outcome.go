package harness

// OutcomeKind classifies how a unit of work ended.
type OutcomeKind string

const (
	// OutcomeSucceeded means the work produced its final value.
	OutcomeSucceeded OutcomeKind = "succeeded"

	// OutcomeFailed means the work raised a non-cancellation error.
	OutcomeFailed OutcomeKind = "failed"

	// OutcomeCanceled means the work ended because cancellation fired,
	// or because it raised an abort-shaped error.
	OutcomeCanceled OutcomeKind = "canceled"
)

// Outcome is the terminal classification of a host's unit of work.
// Exactly one of the three kinds applies; a Summary is always present.
//
// Work failure and cancellation are delivered through Kind, never as an
// error return from Result. Callers inspect the tag:
//
//	res, err := host.Result(ctx)
//	if err != nil {
//	    // only the caller's own ctx expired while waiting
//	}
//	switch res.Kind {
//	case harness.OutcomeSucceeded:
//	    use(res.Value)
//	case harness.OutcomeFailed:
//	    log(res.Err)
//	case harness.OutcomeCanceled:
//	    // no error to handle
//	}
type Outcome[T any] struct {
	// Kind is the terminal classification.
	Kind OutcomeKind

	// Value is the final value. Valid only when Kind is OutcomeSucceeded.
	Value T

	// Err is the work failure. Non-nil only when Kind is OutcomeFailed.
	Err error

	// Summary is the session's usage/cost aggregate at termination.
	Summary *Summary
}

// Result is the memoized terminal snapshot of a host: the outcome plus the
// entire frozen event buffer, regardless of whether the caller ever
// streamed. Repeated Result calls on the same host return the identical
// snapshot; the underlying work runs exactly once.
type Result[T any] struct {
	Outcome[T]

	// Events is the frozen event buffer in emission order. For a
	// streaming host this includes the terminal event (when one was
	// produced); for a simple host it is empty.
	Events []Event
}
